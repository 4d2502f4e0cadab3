package outfits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	dbtypes "github.com/combinewear/wardrobe-backend/pkg/db/types"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/pagination"
)

func setupOutfitsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outfits (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  item_ids TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'suggested',
  description TEXT,
  is_favorite INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedOutfit(t *testing.T, db *gorm.DB, userID uuid.UUID, name string, status enums.OutfitStatus, createdAt time.Time) *models.Outfit {
	t.Helper()

	outfit := &models.Outfit{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		ItemIDs:   dbtypes.UUIDArray{uuid.New(), uuid.New()},
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(outfit).Error)
	return outfit
}

func TestOutfitRepoRecentExcluded(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Now().Add(-time.Hour)

	seedOutfit(t, db, owner, "oldest-suggested", enums.OutfitStatusSuggested, base)
	seedOutfit(t, db, owner, "worn", enums.OutfitStatusWorn, base.Add(10*time.Minute))
	seedOutfit(t, db, owner, "custom", enums.OutfitStatusCustom, base.Add(15*time.Minute))
	disliked := seedOutfit(t, db, owner, "disliked", enums.OutfitStatusDisliked, base.Add(20*time.Minute))
	newest := seedOutfit(t, db, owner, "newest-suggested", enums.OutfitStatusSuggested, base.Add(30*time.Minute))
	seedOutfit(t, db, uuid.New(), "someone-elses", enums.OutfitStatusDisliked, base.Add(40*time.Minute))

	got, err := repo.RecentExcluded(ctx, owner, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, disliked.ID, got[1].ID)
}

func TestOutfitRepoUpdateStatusOwnerScoped(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	outfit := seedOutfit(t, db, owner, "look", enums.OutfitStatusSuggested, time.Now())

	updated, err := repo.UpdateStatus(ctx, owner, outfit.ID, enums.OutfitStatusWorn)
	require.NoError(t, err)
	assert.Equal(t, enums.OutfitStatusWorn, updated.Status)
	assert.Len(t, []uuid.UUID(updated.ItemIDs), 2)

	_, err = repo.UpdateStatus(ctx, uuid.New(), outfit.ID, enums.OutfitStatusDisliked)
	assert.ErrorIs(t, err, ErrOutfitNotFound)
}

func TestOutfitRepoDeleteDislikedOnlyTouchesOwnersDisliked(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	now := time.Now()

	seedOutfit(t, db, owner, "disliked-1", enums.OutfitStatusDisliked, now)
	seedOutfit(t, db, owner, "disliked-2", enums.OutfitStatusDisliked, now)
	kept := seedOutfit(t, db, owner, "suggested", enums.OutfitStatusSuggested, now)
	foreign := seedOutfit(t, db, other, "their-disliked", enums.OutfitStatusDisliked, now)

	count, err := repo.DeleteDisliked(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = repo.GetByID(ctx, owner, kept.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, other, foreign.ID)
	assert.NoError(t, err)
}

func TestOutfitRepoDeleteOwnerScoped(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	outfit := seedOutfit(t, db, owner, "look", enums.OutfitStatusSuggested, time.Now())

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New(), outfit.ID), ErrOutfitNotFound)
	require.NoError(t, repo.Delete(ctx, owner, outfit.ID))
	assert.ErrorIs(t, repo.Delete(ctx, owner, outfit.ID), ErrOutfitNotFound)
}

func TestOutfitRepoListByUserNewestFirst(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Now().Add(-time.Hour)
	seedOutfit(t, db, owner, "old", enums.OutfitStatusWorn, base)
	newest := seedOutfit(t, db, owner, "new", enums.OutfitStatusSuggested, base.Add(time.Minute))

	got, err := repo.ListByUser(ctx, owner, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newest.ID, got[0].ID)
}

func TestOutfitRepoListByUserCursorPagination(t *testing.T) {
	db := setupOutfitsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Now().Add(-time.Hour)
	oldest := seedOutfit(t, db, owner, "first", enums.OutfitStatusWorn, base)
	middle := seedOutfit(t, db, owner, "second", enums.OutfitStatusWorn, base.Add(time.Minute))
	newest := seedOutfit(t, db, owner, "third", enums.OutfitStatusSuggested, base.Add(2*time.Minute))

	first, err := repo.ListByUser(ctx, owner, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, newest.ID, first[0].ID)
	assert.Equal(t, middle.ID, first[1].ID)

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	rest, err := repo.ListByUser(ctx, owner, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
}
