package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			profile_image_url TEXT,
			profile_image_key TEXT,
			favorite_colors TEXT NOT NULL DEFAULT '{}',
			style_tags TEXT NOT NULL DEFAULT '{}',
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			email_verify_token TEXT,
			email_verify_expires_at DATETIME,
			password_reset_token TEXT,
			password_reset_expires_at DATETIME,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
	if err != nil {
		t.Fatalf("create users table: %v", err)
	}
	return db
}

func seedUser(t *testing.T, repo *Repository, username, email string) *models.User {
	t.Helper()

	user, err := repo.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "argon2id$stub",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestUserRepoFindByEmailAndUsername(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupUsersTestDB(t))
	seeded := seedUser(t, repo, "deniz", "deniz@example.com")

	byEmail, err := repo.FindByEmail(context.Background(), "deniz@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if byEmail.ID != seeded.ID {
		t.Fatalf("expected %s, got %s", seeded.ID, byEmail.ID)
	}

	byUsername, err := repo.FindByUsername(context.Background(), "deniz")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if byUsername.ID != seeded.ID {
		t.Fatalf("expected %s, got %s", seeded.ID, byUsername.ID)
	}

	if _, err := repo.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepoUpdateFields(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupUsersTestDB(t))
	seeded := seedUser(t, repo, "old-name", "rename@example.com")

	updated, err := repo.UpdateFields(context.Background(), seeded.ID, map[string]any{
		"username": "new-name",
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.Username != "new-name" {
		t.Fatalf("expected renamed user, got %q", updated.Username)
	}

	if _, err := repo.UpdateFields(context.Background(), uuid.New(), map[string]any{"username": "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing user, got %v", err)
	}
}

func TestUserRepoPasswordRotationClearsResetToken(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupUsersTestDB(t))
	seeded := seedUser(t, repo, "rotator", "rotate@example.com")

	expires := time.Now().Add(time.Hour).UTC()
	if err := repo.SetPasswordResetToken(context.Background(), seeded.ID, "reset-123", expires); err != nil {
		t.Fatalf("SetPasswordResetToken: %v", err)
	}

	byToken, err := repo.FindByPasswordResetToken(context.Background(), "reset-123")
	if err != nil {
		t.Fatalf("FindByPasswordResetToken: %v", err)
	}
	if byToken.ID != seeded.ID {
		t.Fatalf("token resolved the wrong user")
	}

	if err := repo.UpdatePassword(context.Background(), seeded.ID, "argon2id$new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if _, err := repo.FindByPasswordResetToken(context.Background(), "reset-123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("reset token should be cleared after rotation, got %v", err)
	}

	reloaded, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.PasswordHash != "argon2id$new" {
		t.Fatalf("expected rotated hash, got %q", reloaded.PasswordHash)
	}
}

func TestUserRepoEmailVerificationLifecycle(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupUsersTestDB(t))
	seeded := seedUser(t, repo, "verifier", "verify@example.com")

	expires := time.Now().Add(24 * time.Hour).UTC()
	if err := repo.SetEmailVerifyToken(context.Background(), seeded.ID, "verify-456", expires); err != nil {
		t.Fatalf("SetEmailVerifyToken: %v", err)
	}

	byToken, err := repo.FindByEmailVerifyToken(context.Background(), "verify-456")
	if err != nil {
		t.Fatalf("FindByEmailVerifyToken: %v", err)
	}
	if byToken.EmailVerified {
		t.Fatal("user should not be verified yet")
	}

	if err := repo.MarkEmailVerified(context.Background(), seeded.ID); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}

	reloaded, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !reloaded.EmailVerified {
		t.Fatal("expected verified flag set")
	}
	if reloaded.EmailVerifyToken != nil {
		t.Fatalf("expected cleared token, got %v", *reloaded.EmailVerifyToken)
	}
}

func TestUserRepoDelete(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupUsersTestDB(t))
	seeded := seedUser(t, repo, "leaver", "leave@example.com")

	if err := repo.DeleteTx(context.Background(), nil, seeded.ID); err != nil {
		t.Fatalf("DeleteTx: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), seeded.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := repo.DeleteTx(context.Background(), nil, seeded.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on double delete, got %v", err)
	}
}
