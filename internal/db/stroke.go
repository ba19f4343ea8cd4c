package db

import (
	"draw-royale/internal/game"

	"gorm.io/datatypes"
)

// Stroke rows hold their points as a jsonb array so live batches can be
// appended in place.
type Stroke struct {
	ID       int64                           `gorm:"primaryKey;autoIncrement"`
	RoomID   string                          `gorm:"type:uuid;not null;index:idx_strokes_room_round,priority:1;uniqueIndex:idx_strokes_live,where:is_live"`
	Round    int                             `gorm:"not null;index:idx_strokes_room_round,priority:2;uniqueIndex:idx_strokes_live,where:is_live"`
	ArtistID string                          `gorm:"size:128;not null;uniqueIndex:idx_strokes_live,where:is_live"`
	Points   datatypes.JSONSlice[game.Point] `gorm:"type:jsonb;not null"`
	Color    string                          `gorm:"size:32;not null"`
	Width    float64                         `gorm:"not null"`
	DrawnAt  int64                           `gorm:"not null"`
	IsLive   bool                            `gorm:"not null;default:false"`
}
