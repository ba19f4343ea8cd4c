package db

import "gorm.io/datatypes"

// Event is a notification outbox row.
type Event struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	RoomID       *string        `gorm:"type:uuid;index"`
	Kind         string         `gorm:"size:32;not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt    int64          `gorm:"not null"`
	DispatchedAt *int64         `gorm:"index"`
	Attempts     int            `gorm:"not null;default:0"`
	LastError    string         `gorm:"type:text;not null;default:''"`
}
