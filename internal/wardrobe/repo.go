package wardrobe

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
)

// ErrItemNotFound is returned when an item lookup misses or the caller does
// not own the row. Ownership mismatches are indistinguishable from missing
// rows on purpose.
var ErrItemNotFound = errors.New("clothing item not found")

// Repository encapsulates clothing item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wardrobe repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Repository) GetByID(ctx context.Context, userID, itemID uuid.UUID) (*models.ClothingItem, error) {
	var item models.ClothingItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListByUser returns the caller's active items, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ClothingItem, error) {
	var items []models.ClothingItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListByIDs returns the subset of the given ids the caller actually owns.
// Unknown or foreign ids are simply absent from the result.
func (r *Repository) ListByIDs(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]models.ClothingItem, error) {
	if len(itemIDs) == 0 {
		return []models.ClothingItem{}, nil
	}
	var items []models.ClothingItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateFields applies a column update map to an owned item.
func (r *Repository) UpdateFields(ctx context.Context, userID, itemID uuid.UUID, updates map[string]any) (*models.ClothingItem, error) {
	if len(updates) == 0 {
		return r.GetByID(ctx, userID, itemID)
	}
	result := r.db.WithContext(ctx).
		Model(&models.ClothingItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}
	return r.GetByID(ctx, userID, itemID)
}

// MarkWorn stamps last_worn_at for every given item owned by the user.
func (r *Repository) MarkWorn(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ClothingItem{}).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Update("last_worn_at", gorm.Expr("CURRENT_TIMESTAMP")).
		Error
}

func (r *Repository) Delete(ctx context.Context, userID, itemID uuid.UUID) (*models.ClothingItem, error) {
	item, err := r.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.ClothingItem{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// DeleteAllForUser removes every item a user owns. Used by account deletion.
func (r *Repository) DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.ClothingItem{}).
		Error
}

type categoryCount struct {
	Category string `gorm:"column:category"`
	Count    int64  `gorm:"column:count"`
}

type colorCount struct {
	Color string `gorm:"column:color"`
	Count int64  `gorm:"column:count"`
}

// Stats aggregates the caller's active wardrobe.
func (r *Repository) Stats(ctx context.Context, userID uuid.UUID, recentLimit int) (int64, map[string]int64, map[string]int64, []models.ClothingItem, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.ClothingItem{}).
			Where("user_id = ? AND is_active = ?", userID, true)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return 0, nil, nil, nil, err
	}

	var byCategory []categoryCount
	if err := base().
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return 0, nil, nil, nil, err
	}

	var byColor []colorCount
	if err := base().
		Select("LOWER(color) AS color, COUNT(*) AS count").
		Where("color IS NOT NULL AND color <> ''").
		Group("LOWER(color)").
		Scan(&byColor).Error; err != nil {
		return 0, nil, nil, nil, err
	}

	var recent []models.ClothingItem
	if recentLimit > 0 {
		if err := base().
			Order("created_at DESC").
			Limit(recentLimit).
			Find(&recent).Error; err != nil {
			return 0, nil, nil, nil, err
		}
	}

	categories := make(map[string]int64, len(byCategory))
	for _, row := range byCategory {
		categories[row.Category] = row.Count
	}
	colors := make(map[string]int64, len(byColor))
	for _, row := range byColor {
		colors[row.Color] = row.Count
	}

	return total, categories, colors, recent, nil
}
