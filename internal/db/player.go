package db

type Player struct {
	ID       string  `gorm:"primaryKey;type:uuid"`
	RoomID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_players_room_user"`
	UserID   string  `gorm:"size:128;not null;uniqueIndex:idx_players_room_user;index"`
	Name     string  `gorm:"size:64;not null"`
	Email    *string `gorm:"size:254"`
	Score    int     `gorm:"not null;default:0"`
	IsActive bool    `gorm:"not null;default:true"`
	JoinedAt int64   `gorm:"not null;index"`
	Seq      int64   `gorm:"autoIncrement;not null"`
}
