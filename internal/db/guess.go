package db

type Guess struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	RoomID     string `gorm:"type:uuid;not null;index:idx_guesses_room_round,priority:1"`
	Round      int    `gorm:"not null;index:idx_guesses_room_round,priority:2"`
	PlayerID   string `gorm:"size:128;not null"`
	PlayerName string `gorm:"size:64;not null"`
	Text       string `gorm:"size:280;not null"`
	IsCorrect  bool   `gorm:"not null;default:false"`
	GuessedAt  int64  `gorm:"not null"`
	Points     int    `gorm:"not null;default:0"`
}
