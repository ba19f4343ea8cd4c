package db

type Room struct {
	ID             string  `gorm:"primaryKey;type:uuid"`
	Name           string  `gorm:"size:120;not null"`
	HostID         string  `gorm:"size:128;not null;index"`
	Status         string  `gorm:"size:16;not null;index:idx_rooms_status_round_end,priority:1"`
	CurrentRound   int     `gorm:"not null;default:0"`
	MaxRounds      int     `gorm:"not null"`
	CurrentArtist  *string `gorm:"size:128"`
	CurrentWord    *string `gorm:"size:120"`
	RoundStartTime *int64
	RoundEndTime   *int64   `gorm:"index:idx_rooms_status_round_end,priority:2"`
	InviteCode     string   `gorm:"size:12;not null;uniqueIndex"`
	MaxPlayers     int      `gorm:"not null"`
	Version        int64    `gorm:"not null;default:0"`
	CreatedAt      int64    `gorm:"not null"`
	Players        []Player `gorm:"constraint:OnDelete:CASCADE"`
	Strokes        []Stroke `gorm:"constraint:OnDelete:CASCADE"`
	Guesses        []Guess  `gorm:"constraint:OnDelete:CASCADE"`
	Sketches       []Sketch `gorm:"constraint:OnDelete:CASCADE"`
	Invites        []Invite `gorm:"constraint:OnDelete:CASCADE"`
}
