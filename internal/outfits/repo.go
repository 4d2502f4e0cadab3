package outfits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/pagination"
)

// ErrOutfitNotFound is returned for missing rows and ownership mismatches alike.
var ErrOutfitNotFound = errors.New("outfit not found")

// Repository encapsulates outfit persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an outfit repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, outfit *models.Outfit) (*models.Outfit, error) {
	return r.CreateTx(ctx, nil, outfit)
}

// CreateTx inserts within the given transaction, or the base DB when tx is nil.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, outfit *models.Outfit) (*models.Outfit, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	if outfit.ID == uuid.Nil {
		outfit.ID = uuid.New()
	}
	if err := db.WithContext(ctx).Create(outfit).Error; err != nil {
		return nil, err
	}
	return outfit, nil
}

func (r *Repository) GetByID(ctx context.Context, userID, outfitID uuid.UUID) (*models.Outfit, error) {
	var outfit models.Outfit
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", outfitID, userID).
		First(&outfit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOutfitNotFound
		}
		return nil, err
	}
	return &outfit, nil
}

// ListByUser returns the caller's outfits, newest first. A non-nil cursor
// resumes after the (created_at, id) position it encodes, and a positive
// limit caps the page.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Outfit, error) {
	qb := r.db.WithContext(ctx).
		Where("user_id = ?", userID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}

	var outfits []models.Outfit
	err := qb.Order("created_at DESC").Order("id DESC").Find(&outfits).Error
	if err != nil {
		return nil, err
	}
	return outfits, nil
}

// RecentExcluded returns the caller's most recent outfits in the statuses the
// generator must avoid repeating.
func (r *Repository) RecentExcluded(ctx context.Context, userID uuid.UUID, limit int) ([]models.Outfit, error) {
	var outfits []models.Outfit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []enums.OutfitStatus{
			enums.OutfitStatusDisliked,
			enums.OutfitStatusSuggested,
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&outfits).Error
	if err != nil {
		return nil, err
	}
	return outfits, nil
}

// UpdateStatus transitions an owned outfit and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, userID, outfitID uuid.UUID, status enums.OutfitStatus) (*models.Outfit, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Outfit{}).
		Where("id = ? AND user_id = ?", outfitID, userID).
		Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOutfitNotFound
	}
	return r.GetByID(ctx, userID, outfitID)
}

func (r *Repository) Delete(ctx context.Context, userID, outfitID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", outfitID, userID).
		Delete(&models.Outfit{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutfitNotFound
	}
	return nil
}

// DeleteDisliked bulk-deletes the caller's disliked outfits and reports how
// many rows went away.
func (r *Repository) DeleteDisliked(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.OutfitStatusDisliked).
		Delete(&models.Outfit{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteAllForUser removes every outfit a user owns. Used by account deletion.
func (r *Repository) DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Outfit{}).
		Error
}
