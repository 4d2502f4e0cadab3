package media

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

func setupMediaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.Exec(`
		CREATE TABLE media (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'uploaded',
			url TEXT,
			gcs_key TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
	if err != nil {
		t.Fatalf("create media table: %v", err)
	}
	return db
}

func seedMedia(t *testing.T, repo *Repository, userID uuid.UUID, key string) *models.Media {
	t.Helper()

	row, err := repo.Create(context.Background(), &models.Media{
		UserID:    userID,
		Kind:      enums.MediaKindWardrobeItem,
		Status:    enums.MediaStatusUploaded,
		GCSKey:    key,
		FileName:  "item.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("seed media: %v", err)
	}
	return row
}

func TestMediaRepoOwnerScopedLookups(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupMediaTestDB(t))
	owner := uuid.New()
	seeded := seedMedia(t, repo, owner, "wardrobe/owner/a.jpg")

	found, err := repo.FindByKey(context.Background(), owner, seeded.GCSKey)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if found.ID != seeded.ID {
		t.Fatalf("expected %s, got %s", seeded.ID, found.ID)
	}

	if _, err := repo.FindByKey(context.Background(), uuid.New(), seeded.GCSKey); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("foreign user should not see the row, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), uuid.New(), seeded.ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("foreign user should not see the row by id, got %v", err)
	}
}

func TestMediaRepoUpdateStatus(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupMediaTestDB(t))
	owner := uuid.New()
	seeded := seedMedia(t, repo, owner, "wardrobe/owner/b.jpg")

	if err := repo.UpdateStatusTx(context.Background(), nil, seeded.ID, enums.MediaStatusDeleteRequested); err != nil {
		t.Fatalf("UpdateStatusTx: %v", err)
	}
	reloaded, err := repo.FindByID(context.Background(), owner, seeded.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.Status != enums.MediaStatusDeleteRequested {
		t.Fatalf("expected delete_requested, got %s", reloaded.Status)
	}

	if err := repo.UpdateStatusTx(context.Background(), nil, uuid.New(), enums.MediaStatusDeleted); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound for missing row, got %v", err)
	}
}

func TestMediaRepoDeleteRowIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupMediaTestDB(t))
	seeded := seedMedia(t, repo, uuid.New(), "wardrobe/owner/c.jpg")

	if err := repo.DeleteRow(context.Background(), seeded.ID); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	if err := repo.DeleteRow(context.Background(), seeded.ID); err != nil {
		t.Fatalf("second DeleteRow should be a noop: %v", err)
	}
}

func TestMediaRepoPurgeAllForUser(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupMediaTestDB(t))
	owner := uuid.New()
	other := uuid.New()
	seedMedia(t, repo, owner, "wardrobe/owner/d.jpg")
	seedMedia(t, repo, owner, "profiles/owner/e.jpg")
	kept := seedMedia(t, repo, other, "wardrobe/other/f.jpg")

	purged, err := repo.PurgeAllForUser(context.Background(), nil, owner)
	if err != nil {
		t.Fatalf("PurgeAllForUser: %v", err)
	}
	if len(purged) != 2 {
		t.Fatalf("expected 2 purged rows, got %d", len(purged))
	}

	if _, err := repo.FindByID(context.Background(), other, kept.ID); err != nil {
		t.Fatalf("other user's media must survive: %v", err)
	}

	again, err := repo.PurgeAllForUser(context.Background(), nil, owner)
	if err != nil {
		t.Fatalf("second purge: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected empty second purge, got %d rows", len(again))
	}
}
