package outfits

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/internal/wardrobe"
	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// OutfitDTO is the wire representation of an outfit with its items resolved.
// Items referencing since-deleted wardrobe rows are dropped from Items but
// kept in ItemIDs.
type OutfitDTO struct {
	ID          uuid.UUID                  `json:"id"`
	Name        string                     `json:"name"`
	Status      enums.OutfitStatus         `json:"status"`
	Description *string                    `json:"description,omitempty"`
	IsFavorite  bool                       `json:"is_favorite"`
	ItemIDs     []uuid.UUID                `json:"item_ids"`
	Items       []wardrobe.ClothingItemDTO `json:"items"`
	Source      string                     `json:"source,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// OutfitList is one page of outfits. NextCursor is empty on the last page.
type OutfitList struct {
	Outfits    []OutfitDTO `json:"outfits"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// GenerateInput carries the optional context for a generation request.
type GenerateInput struct {
	Weather  *string
	Exclude  *uuid.UUID
	Feedback string
}

// CreateInput models a user-assembled outfit.
type CreateInput struct {
	Name        string
	ItemIDs     []uuid.UUID
	Description *string
}

// StatusResult is returned from a status transition. Next is populated when
// marking an outfit worn chains a fresh suggestion.
type StatusResult struct {
	Outfit OutfitDTO  `json:"outfit"`
	Next   *OutfitDTO `json:"next,omitempty"`
}

func toOutfitDTO(outfit models.Outfit, items []models.ClothingItem) OutfitDTO {
	byID := make(map[uuid.UUID]models.ClothingItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	resolved := make([]wardrobe.ClothingItemDTO, 0, len(outfit.ItemIDs))
	for _, id := range outfit.ItemIDs {
		if item, ok := byID[id]; ok {
			resolved = append(resolved, wardrobe.ToItemDTO(item))
		}
	}

	return OutfitDTO{
		ID:          outfit.ID,
		Name:        outfit.Name,
		Status:      outfit.Status,
		Description: outfit.Description,
		IsFavorite:  outfit.IsFavorite,
		ItemIDs:     []uuid.UUID(outfit.ItemIDs),
		Items:       resolved,
		CreatedAt:   outfit.CreatedAt,
		UpdatedAt:   outfit.UpdatedAt,
	}
}
