package db

import "time"

// Word is an entry of the managed word list. Text is unique ignoring case;
// the index is created by Migrate and the SQL migrations.
type Word struct {
	ID         uint      `gorm:"primaryKey"`
	Text       string    `gorm:"size:120;not null"`
	Difficulty string    `gorm:"size:16;not null;default:'medium'"`
	Category   string    `gorm:"size:64;not null;default:''"`
	CreatedAt  time.Time `gorm:"not null"`
}
