package db

type Invite struct {
	ID               string  `gorm:"primaryKey;type:uuid"`
	RoomID           string  `gorm:"type:uuid;not null;index"`
	Email            string  `gorm:"size:254;not null;index"`
	InvitedBy        string  `gorm:"size:128;not null"`
	InvitedAt        int64   `gorm:"not null"`
	Status           string  `gorm:"size:16;not null"`
	MessageID        *string `gorm:"size:128;index"`
	JoinedAt         *int64
	JoinedPlayerName *string `gorm:"size:64"`
	LastUpdated      int64   `gorm:"not null"`
}
