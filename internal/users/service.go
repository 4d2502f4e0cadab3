package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
	"github.com/combinewear/wardrobe-backend/pkg/security"
)

const maxFavoriteColors = 3

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type wardrobePurger interface {
	DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type outfitPurger interface {
	DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type importantDayPurger interface {
	DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// mediaPurger removes the media rows a user owns and reports what it removed
// so the deletion events can cover the storage objects.
type mediaPurger interface {
	PurgeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Media, error)
}

type imageDeleter interface {
	RequestDeletionByKey(ctx context.Context, userID uuid.UUID, gcsKey string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the profile and account-lifecycle surface.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	SetProfileImage(ctx context.Context, userID uuid.UUID, url, gcsKey string) (*ProfileDTO, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*ProfileDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo          userRepository
	wardrobe      wardrobePurger
	outfits       outfitPurger
	importantDays importantDayPurger
	media         mediaPurger
	images        imageDeleter
	tx            txRunner
	outbox        eventEmitter
	password      config.PasswordConfig
	logg          *logger.Logger
}

// ServiceParams bundles the service collaborators. Only the repository is
// mandatory; purgers and the outbox degrade individual features when absent.
type ServiceParams struct {
	Repo          userRepository
	Wardrobe      wardrobePurger
	Outfits       outfitPurger
	ImportantDays importantDayPurger
	Media         mediaPurger
	Images        imageDeleter
	Tx            txRunner
	Outbox        eventEmitter
	Password      config.PasswordConfig
	Logger        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Outbox != nil && params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required when outbox is set")
	}
	return &service{
		repo:          params.Repo,
		wardrobe:      params.Wardrobe,
		outfits:       params.Outfits,
		importantDays: params.ImportantDays,
		media:         params.Media,
		images:        params.Images,
		tx:            params.Tx,
		outbox:        params.Outbox,
		password:      params.Password,
		logg:          params.Logger,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "load profile")
	}
	return ToProfileDTO(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	fields := map[string]any{}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		if existing, err := s.repo.FindByUsername(ctx, username); err == nil && existing.ID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		fields["username"] = username
	}

	user, err := s.repo.UpdateFields(ctx, userID, fields)
	if err != nil {
		return nil, mapRepoError(err, "update profile")
	}
	return ToProfileDTO(user), nil
}

// SetProfileImage records a freshly uploaded image and queues removal of the
// previous object so storage does not accumulate orphans.
func (s *service) SetProfileImage(ctx context.Context, userID uuid.UUID, url, gcsKey string) (*ProfileDTO, error) {
	if url == "" || gcsKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url and key are required")
	}

	current, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "load profile")
	}

	user, err := s.repo.UpdateFields(ctx, userID, map[string]any{
		"profile_image_url": url,
		"profile_image_key": gcsKey,
	})
	if err != nil {
		return nil, mapRepoError(err, "update profile image")
	}

	if s.images != nil && current.ProfileImageKey != nil && *current.ProfileImageKey != gcsKey {
		if err := s.images.RequestDeletionByKey(ctx, userID, *current.ProfileImageKey); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "queueing previous profile image for deletion failed")
		}
	}
	return ToProfileDTO(user), nil
}

func (s *service) UpdatePreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*ProfileDTO, error) {
	colors := normalizeTags(input.FavoriteColors)
	if len(colors) > maxFavoriteColors {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d favorite colors allowed", maxFavoriteColors))
	}

	user, err := s.repo.UpdateFields(ctx, userID, map[string]any{
		"favorite_colors": pq.StringArray(colors),
		"style_tags":      pq.StringArray(normalizeTags(input.StyleTags)),
	})
	if err != nil {
		return nil, mapRepoError(err, "update preferences")
	}
	return ToProfileDTO(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if len(input.NewPassword) < s.minPasswordLength() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", s.minPasswordLength()))
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return mapRepoError(err, "load profile")
	}

	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return mapRepoError(err, "update password")
	}
	return nil
}

// DeleteAccount removes the account and everything it owns in a single
// transaction. Storage objects are not touched inline; a deletion event per
// media row hands that to the media worker.
func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return mapRepoError(err, "load profile")
	}

	purge := func(tx *gorm.DB) error {
		if s.wardrobe != nil {
			if err := s.wardrobe.DeleteAllForUser(ctx, tx, userID); err != nil {
				return fmt.Errorf("purge wardrobe: %w", err)
			}
		}
		if s.outfits != nil {
			if err := s.outfits.DeleteAllForUser(ctx, tx, userID); err != nil {
				return fmt.Errorf("purge outfits: %w", err)
			}
		}
		if s.importantDays != nil {
			if err := s.importantDays.DeleteAllForUser(ctx, tx, userID); err != nil {
				return fmt.Errorf("purge important days: %w", err)
			}
		}

		var purgedMedia []models.Media
		if s.media != nil {
			rows, err := s.media.PurgeAllForUser(ctx, tx, userID)
			if err != nil {
				return fmt.Errorf("purge media: %w", err)
			}
			purgedMedia = rows
		}

		if err := s.repo.DeleteTx(ctx, tx, userID); err != nil {
			return err
		}

		if s.outbox == nil {
			return nil
		}
		for _, media := range purgedMedia {
			event := outbox.DomainEvent{
				EventType:     enums.EventMediaDeleteRequested,
				AggregateType: enums.AggregateMedia,
				AggregateID:   media.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: userID},
				Data: payloads.MediaDeleteRequestedEvent{
					MediaID: media.ID,
					UserID:  userID,
					Kind:    media.Kind,
					GCSKey:  media.GCSKey,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit media deletion: %w", err)
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserDeleted,
			AggregateType: enums.AggregateUser,
			AggregateID:   userID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.UserDeletedEvent{
				UserID:    userID,
				Email:     user.Email,
				DeletedAt: time.Now().UTC(),
			},
		})
	}

	if s.tx == nil {
		err = purge(nil)
	} else {
		err = s.tx.WithTx(ctx, purge)
	}
	if err != nil {
		return mapRepoError(err, "delete account")
	}
	return nil
}

func (s *service) minPasswordLength() int {
	if s.password.MinLength > 0 {
		return s.password.MinLength
	}
	return 6
}

// normalizeTags trims, lowercases and deduplicates free-form tag input.
func normalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := map[string]bool{}
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func mapRepoError(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgErr := pkgerrors.As(err); pkgErr != nil {
		return err
	}
	if errors.Is(err, ErrUserNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
