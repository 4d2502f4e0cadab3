package wardrobe

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// ClothingItemDTO is the wire representation of a wardrobe item.
type ClothingItemDTO struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Category    enums.ClothingCategory `json:"category"`
	RawCategory string                 `json:"raw_category,omitempty"`
	SubCategory *string                `json:"sub_category,omitempty"`
	Color       *string                `json:"color,omitempty"`
	Season      *string                `json:"season,omitempty"`
	Material    *string                `json:"material,omitempty"`
	Size        *string                `json:"size,omitempty"`
	Brand       *string                `json:"brand,omitempty"`
	Description *string                `json:"description,omitempty"`
	ImageURL    string                 `json:"image_url"`
	IsActive    bool                   `json:"is_active"`
	LastWornAt  *time.Time             `json:"last_worn_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CreateItemInput models a new wardrobe item. Category carries the submitted
// label as-is; normalization happens in the service.
type CreateItemInput struct {
	Name        string
	Category    string
	SubCategory *string
	Color       *string
	Season      *string
	Material    *string
	Size        *string
	Brand       *string
	Description *string
	ImageURL    string
	ImageKey    string
}

// UpdateItemInput is a partial update; nil fields are left untouched.
type UpdateItemInput struct {
	Name        *string
	Category    *string
	SubCategory *string
	Color       *string
	Season      *string
	Material    *string
	Size        *string
	Brand       *string
	Description *string
	IsActive    *bool
}

// StatsDTO summarizes a wardrobe for the statistics screen.
type StatsDTO struct {
	Total       int64             `json:"total"`
	ByCategory  map[string]int64  `json:"by_category"`
	ByColor     map[string]int64  `json:"by_color"`
	RecentItems []ClothingItemDTO `json:"recent_items"`
}

// AnalysisDTO is the garment suggestion produced by the vision model.
type AnalysisDTO struct {
	OK          bool    `json:"ok"`
	Name        string  `json:"name,omitempty"`
	Category    string  `json:"category,omitempty"`
	SubCategory string  `json:"sub_category,omitempty"`
	Color       string  `json:"color,omitempty"`
	Season      string  `json:"season,omitempty"`
	Material    string  `json:"material,omitempty"`
	Description string  `json:"description,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

func ToItemDTO(item models.ClothingItem) ClothingItemDTO {
	return ClothingItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		RawCategory: item.RawCategory,
		SubCategory: item.SubCategory,
		Color:       item.Color,
		Season:      item.Season,
		Material:    item.Material,
		Size:        item.Size,
		Brand:       item.Brand,
		Description: item.Description,
		ImageURL:    item.ImageURL,
		IsActive:    item.IsActive,
		LastWornAt:  item.LastWornAt,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func ToItemDTOs(items []models.ClothingItem) []ClothingItemDTO {
	out := make([]ClothingItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ToItemDTO(item))
	}
	return out
}
