package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/security"
)

type stubUserRepo struct {
	users    map[uuid.UUID]*models.User
	byName   map[string]*models.User
	deleted  []uuid.UUID
	lastHash string
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		users:  map[uuid.UUID]*models.User{},
		byName: map[string]*models.User{},
	}
	for _, user := range seed {
		repo.users[user.ID] = user
		repo.byName[user.Username] = user
	}
	return repo
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.byName[username]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

func (s *stubUserRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if username, ok := fields["username"].(string); ok {
		user.Username = username
	}
	if url, ok := fields["profile_image_url"].(string); ok {
		user.ProfileImageURL = &url
	}
	if key, ok := fields["profile_image_key"].(string); ok {
		user.ProfileImageKey = &key
	}
	return user, nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	s.lastHash = hash
	return nil
}

func (s *stubUserRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubPurger struct {
	calls int
	err   error
}

func (s *stubPurger) DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	s.calls++
	return s.err
}

type stubMediaPurger struct {
	rows  []models.Media
	calls int
}

func (s *stubMediaPurger) PurgeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Media, error) {
	s.calls++
	return s.rows, nil
}

type stubKeyDeleter struct {
	keys []string
	err  error
}

func (s *stubKeyDeleter) RequestDeletionByKey(ctx context.Context, userID uuid.UUID, gcsKey string) error {
	s.keys = append(s.keys, gcsKey)
	return s.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type captureEmitter struct {
	events []outbox.DomainEvent
}

func (c *captureEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func userCodeOf(err error) pkgerrors.Code {
	if e := pkgerrors.As(err); e != nil {
		return e.Code()
	}
	return ""
}

func seededUser(t *testing.T, username string) *models.User {
	t.Helper()

	hash, err := security.HashPassword("hunter42", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: hash,
	}
}

func TestUpdateProfileRejectsTakenUsername(t *testing.T) {
	t.Parallel()

	first := seededUser(t, "taken")
	second := seededUser(t, "renamer")
	svc, err := NewService(ServiceParams{Repo: newStubUserRepo(first, second)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	wanted := "taken"
	_, err = svc.UpdateProfile(context.Background(), second.ID, UpdateProfileInput{Username: &wanted})
	if userCodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateProfileAllowsKeepingOwnUsername(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "stable")
	svc, err := NewService(ServiceParams{Repo: newStubUserRepo(user)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	same := "stable"
	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Username: &same})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if dto.Username != "stable" {
		t.Fatalf("unexpected username %q", dto.Username)
	}
}

func TestUpdatePreferencesCapsFavoriteColors(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "colorful")
	svc, err := NewService(ServiceParams{Repo: newStubUserRepo(user)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.UpdatePreferences(context.Background(), user.ID, PreferencesInput{
		FavoriteColors: []string{"red", "blue", "green", "black"},
	})
	if userCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for 4 colors, got %v", err)
	}

	// Duplicates collapse before the cap is applied.
	if _, err := svc.UpdatePreferences(context.Background(), user.ID, PreferencesInput{
		FavoriteColors: []string{"Red", "red ", "blue", "green"},
	}); err != nil {
		t.Fatalf("deduplicated colors should pass: %v", err)
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "rotator")
	repo := newStubUserRepo(user)
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{
		CurrentPassword: "wrong-password",
		NewPassword:     "next-secret",
	})
	if userCodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{
		CurrentPassword: "hunter42",
		NewPassword:     "next-secret",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if repo.lastHash == "" || repo.lastHash == user.PasswordHash {
		t.Fatal("expected a fresh hash to be stored")
	}
}

func TestChangePasswordEnforcesMinLength(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "shorty")
	svc, err := NewService(ServiceParams{Repo: newStubUserRepo(user)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{
		CurrentPassword: "hunter42",
		NewPassword:     "abc",
	})
	if userCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetProfileImageQueuesOldKeyForDeletion(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "pictured")
	oldKey := "profiles/" + user.ID.String() + "/old.jpg"
	user.ProfileImageKey = &oldKey

	deleter := &stubKeyDeleter{}
	svc, err := NewService(ServiceParams{Repo: newStubUserRepo(user), Images: deleter})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	dto, err := svc.SetProfileImage(context.Background(), user.ID,
		"https://storage.googleapis.com/bucket/new.jpg", "profiles/new.jpg")
	if err != nil {
		t.Fatalf("SetProfileImage: %v", err)
	}
	if dto.ProfileImageURL == nil || *dto.ProfileImageURL != "https://storage.googleapis.com/bucket/new.jpg" {
		t.Fatalf("unexpected profile image url %v", dto.ProfileImageURL)
	}
	if len(deleter.keys) != 1 || deleter.keys[0] != oldKey {
		t.Fatalf("expected old key queued for deletion, got %v", deleter.keys)
	}
}

func TestDeleteAccountPurgesAndEmitsEvents(t *testing.T) {
	t.Parallel()

	user := seededUser(t, "leaver")
	repo := newStubUserRepo(user)
	wardrobePurge := &stubPurger{}
	outfitPurge := &stubPurger{}
	dayPurge := &stubPurger{}
	media := &stubMediaPurger{rows: []models.Media{
		{ID: uuid.New(), UserID: user.ID, Kind: enums.MediaKindWardrobeItem, GCSKey: "wardrobe/a.jpg"},
		{ID: uuid.New(), UserID: user.ID, Kind: enums.MediaKindUserProfile, GCSKey: "profiles/b.jpg"},
	}}
	emitter := &captureEmitter{}

	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Wardrobe:      wardrobePurge,
		Outfits:       outfitPurge,
		ImportantDays: dayPurge,
		Media:         media,
		Tx:            passthroughTx{},
		Outbox:        emitter,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.DeleteAccount(context.Background(), user.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if wardrobePurge.calls != 1 || outfitPurge.calls != 1 || dayPurge.calls != 1 || media.calls != 1 {
		t.Fatalf("expected every purger to run once")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != user.ID {
		t.Fatalf("expected user row removed, got %v", repo.deleted)
	}

	if len(emitter.events) != 3 {
		t.Fatalf("expected 2 media events + 1 user event, got %d", len(emitter.events))
	}
	var mediaEvents, userEvents int
	for _, event := range emitter.events {
		switch event.EventType {
		case enums.EventMediaDeleteRequested:
			mediaEvents++
		case enums.EventUserDeleted:
			userEvents++
		}
	}
	if mediaEvents != 2 || userEvents != 1 {
		t.Fatalf("unexpected event mix: %d media, %d user", mediaEvents, userEvents)
	}
}

func TestDeleteAccountMissingUser(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{Repo: newStubUserRepo()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.DeleteAccount(context.Background(), uuid.New()); userCodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
