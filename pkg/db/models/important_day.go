package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// ImportantDay is a user-tracked date (birthday, wedding, meeting) the app
// surfaces when planning outfits. Occasion holds the canonical enum;
// RawOccasion keeps whatever label the client submitted.
type ImportantDay struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Date        time.Time      `gorm:"column:date;not null"`
	Name        *string        `gorm:"column:name"`
	Occasion    enums.Occasion `gorm:"column:occasion;type:occasion;not null"`
	RawOccasion string         `gorm:"column:raw_occasion;not null"`
	Notes       *string        `gorm:"column:notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
