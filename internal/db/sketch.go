package db

type Sketch struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	RoomID     string `gorm:"type:uuid;not null;uniqueIndex:idx_sketches_room_round_artist"`
	Round      int    `gorm:"not null;uniqueIndex:idx_sketches_room_round_artist"`
	ArtistID   string `gorm:"size:128;not null;uniqueIndex:idx_sketches_room_round_artist"`
	ArtistName string `gorm:"size:64;not null"`
	Word       string `gorm:"size:120;not null"`
	ImageRef   string `gorm:"size:255;not null"`
	SavedAt    int64  `gorm:"not null"`
}
