package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// ClothingItem is a single wardrobe garment owned by a user. Category holds
// the canonical enum; RawCategory keeps whatever label the client submitted.
type ClothingItem struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Name        string                 `gorm:"column:name;not null"`
	Category    enums.ClothingCategory `gorm:"column:category;type:clothing_category;not null"`
	RawCategory string                 `gorm:"column:raw_category;not null"`
	SubCategory *string                `gorm:"column:sub_category"`
	Color       *string                `gorm:"column:color"`
	Season      *string                `gorm:"column:season"`
	Material    *string                `gorm:"column:material"`
	Size        *string                `gorm:"column:size"`
	Brand       *string                `gorm:"column:brand"`
	Description *string                `gorm:"column:description"`

	ImageURL string `gorm:"column:image_url;not null"`
	ImageKey string `gorm:"column:image_key;not null"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	LastWornAt *time.Time `gorm:"column:last_worn_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
