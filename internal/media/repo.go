package media

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// ErrMediaNotFound is returned when no media row matches the lookup.
var ErrMediaNotFound = errors.New("media not found")

// Repository exposes media metadata persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a media record.
func (r *Repository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// FindByID retrieves an owner-scoped media record.
func (r *Repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByKey retrieves an owner-scoped media record by its storage key.
func (r *Repository) FindByKey(ctx context.Context, userID uuid.UUID, gcsKey string) (*models.Media, error) {
	var m models.Media
	err := r.db.WithContext(ctx).
		Where("gcs_key = ? AND user_id = ?", gcsKey, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpdateStatusTx moves a media row through its lifecycle inside a
// caller-owned transaction.
func (r *Repository) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.MediaStatus) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// DeleteRow removes a media record. Missing rows are not an error so the
// worker can process duplicate deletion events.
func (r *Repository) DeleteRow(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}

// ListStuckDeletions returns rows whose deletion was requested or failed
// before the cutoff, so the sweep job can requeue them.
func (r *Repository) ListStuckDeletions(ctx context.Context, cutoff time.Time, limit int) ([]models.Media, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []enums.MediaStatus{enums.MediaStatusDeleteRequested, enums.MediaStatusDeleteFailed}).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Media
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PurgeAllForUser removes every media row a user owns inside a caller-owned
// transaction and returns what was removed so deletion events can cover the
// storage objects.
func (r *Repository) PurgeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Media, error) {
	if tx == nil {
		tx = r.db
	}

	var rows []models.Media
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Media{}).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
