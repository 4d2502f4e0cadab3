package importantdays

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
)

// ErrDayNotFound is returned when a lookup misses or the caller does not own
// the row. Ownership mismatches are indistinguishable from missing rows on
// purpose.
var ErrDayNotFound = errors.New("important day not found")

// Repository encapsulates important day persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an important days repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, day *models.ImportantDay) (*models.ImportantDay, error) {
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(day).Error; err != nil {
		return nil, err
	}
	return day, nil
}

func (r *Repository) GetByID(ctx context.Context, userID, dayID uuid.UUID) (*models.ImportantDay, error) {
	var day models.ImportantDay
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", dayID, userID).
		First(&day).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	return &day, nil
}

// ListByUser returns the caller's days ordered by the date itself, soonest
// first, so the upcoming entries lead the list.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ImportantDay, error) {
	var days []models.ImportantDay
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}

// UpdateFields applies a column update map to an owned day.
func (r *Repository) UpdateFields(ctx context.Context, userID, dayID uuid.UUID, updates map[string]any) (*models.ImportantDay, error) {
	if len(updates) == 0 {
		return r.GetByID(ctx, userID, dayID)
	}
	result := r.db.WithContext(ctx).
		Model(&models.ImportantDay{}).
		Where("id = ? AND user_id = ?", dayID, userID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrDayNotFound
	}
	return r.GetByID(ctx, userID, dayID)
}

func (r *Repository) Delete(ctx context.Context, userID, dayID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", dayID, userID).
		Delete(&models.ImportantDay{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDayNotFound
	}
	return nil
}

// DeleteAllForUser removes every day a user owns. Used by account deletion.
func (r *Repository) DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.ImportantDay{}).
		Error
}
