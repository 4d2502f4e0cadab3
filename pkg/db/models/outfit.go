package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/combinewear/wardrobe-backend/pkg/db/types"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// Outfit is a named collection of clothing item ids with a lifecycle status.
// ItemIDs are copies, not foreign keys; deleting an item leaves historical
// outfits untouched.
type Outfit struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Name        string             `gorm:"column:name;not null"`
	ItemIDs     dbtypes.UUIDArray  `gorm:"column:item_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	Status      enums.OutfitStatus `gorm:"column:status;type:outfit_status;not null;default:'suggested'"`
	Description *string            `gorm:"column:description"`
	IsFavorite  bool               `gorm:"column:is_favorite;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
