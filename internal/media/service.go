package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
	"github.com/combinewear/wardrobe-backend/pkg/storage/gcs"
)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Media, error)
	FindByKey(ctx context.Context, userID uuid.UUID, gcsKey string) (*models.Media, error)
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.MediaStatus) error
	DeleteRow(ctx context.Context, id uuid.UUID) error
}

type objectStore interface {
	UploadObject(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (*gcs.ObjectInfo, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the image pipeline: validated streaming uploads into object
// storage plus deletion through the outbox so the worker can reclaim
// objects.
type Service interface {
	Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*MediaDTO, error)
	Delete(ctx context.Context, userID, mediaID uuid.UUID) error
	RequestDeletionByKey(ctx context.Context, userID uuid.UUID, gcsKey string) error
}

type service struct {
	repo     mediaRepository
	store    objectStore
	tx       txRunner
	outbox   eventEmitter
	bucket   string
	maxBytes int64
	logg     *logger.Logger
}

// ServiceParams bundles the collaborators for the media service.
type ServiceParams struct {
	Repo   mediaRepository
	Store  objectStore
	Tx     txRunner
	Outbox eventEmitter
	Bucket string
	Media  config.MediaConfig
	Logger *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("storage bucket required")
	}
	if params.Outbox != nil && params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required when outbox is set")
	}

	maxMB := params.Media.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	return &service{
		repo:     params.Repo,
		store:    params.Store,
		tx:       params.Tx,
		outbox:   params.Outbox,
		bucket:   params.Bucket,
		maxBytes: int64(maxMB) << 20,
		logg:     params.Logger,
	}, nil
}

// UploadInput models one incoming image.
type UploadInput struct {
	Kind      enums.MediaKind
	FileName  string
	MimeType  string
	SizeBytes int64
	Body      io.Reader
}

// MediaDTO is the transport shape for a stored object.
type MediaDTO struct {
	ID        uuid.UUID         `json:"id"`
	Kind      enums.MediaKind   `json:"kind"`
	Status    enums.MediaStatus `json:"status"`
	URL       string            `json:"url"`
	GCSKey    string            `json:"gcs_key"`
	FileName  string            `json:"file_name"`
	MimeType  string            `json:"mime_type"`
	SizeBytes int64             `json:"size_bytes"`
	CreatedAt time.Time         `json:"created_at"`
}

func (s *service) Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*MediaDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image body is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image size must be positive")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("image exceeds the %d MB upload limit", s.maxBytes>>20))
	}

	mimeType, err := sniffMimeType(input.MimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse mime type")
	}
	ext, ok := extByMime[mimeType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
	}

	mediaID := uuid.New()
	gcsKey := buildGCSKey(input.Kind, userID, mediaID, ext)

	info, err := s.store.UploadObject(ctx, s.bucket, gcsKey, mimeType, input.Body, input.SizeBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload object")
	}

	row := &models.Media{
		ID:        mediaID,
		UserID:    userID,
		Kind:      input.Kind,
		Status:    enums.MediaStatusUploaded,
		URL:       &info.URL,
		GCSKey:    gcsKey,
		FileName:  sanitizeFileName(input.FileName),
		MimeType:  mimeType,
		SizeBytes: input.SizeBytes,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		// The object is already in the bucket. Reclaim it rather than
		// leaving an orphan behind a failed insert.
		if delErr := s.store.DeleteObject(ctx, s.bucket, gcsKey); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "reclaiming object after failed insert failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media row")
	}

	return toMediaDTO(row), nil
}

// Delete marks an owned media row for deletion and emits the worker event
// in the same transaction.
func (s *service) Delete(ctx context.Context, userID, mediaID uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, userID, mediaID)
	if err != nil {
		return mapRepoError(err, "load media")
	}
	return s.requestDeletion(ctx, row)
}

// RequestDeletionByKey queues deletion for the object behind a storage key.
// A missing row is treated as already deleted.
func (s *service) RequestDeletionByKey(ctx context.Context, userID uuid.UUID, gcsKey string) error {
	if strings.TrimSpace(gcsKey) == "" {
		return nil
	}

	row, err := s.repo.FindByKey(ctx, userID, gcsKey)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return nil
		}
		return mapRepoError(err, "load media by key")
	}
	return s.requestDeletion(ctx, row)
}

func (s *service) requestDeletion(ctx context.Context, row *models.Media) error {
	if row.Status == enums.MediaStatusDeleteRequested || row.Status == enums.MediaStatusDeleted {
		return nil
	}

	apply := func(tx *gorm.DB) error {
		if err := s.repo.UpdateStatusTx(ctx, tx, row.ID, enums.MediaStatusDeleteRequested); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMediaDeleteRequested,
			AggregateType: enums.AggregateMedia,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: row.UserID},
			Data: payloads.MediaDeleteRequestedEvent{
				MediaID: row.ID,
				UserID:  row.UserID,
				Kind:    row.Kind,
				GCSKey:  row.GCSKey,
			},
		})
	}

	var err error
	if s.tx == nil {
		err = apply(nil)
	} else {
		err = s.tx.WithTx(ctx, apply)
	}
	if err != nil {
		return mapRepoError(err, "request media deletion")
	}
	return nil
}

func buildGCSKey(kind enums.MediaKind, userID, mediaID uuid.UUID, ext string) string {
	prefix := "wardrobe"
	if kind == enums.MediaKindUserProfile {
		prefix = "profiles"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, userID, mediaID, ext)
}

func toMediaDTO(row *models.Media) *MediaDTO {
	dto := &MediaDTO{
		ID:        row.ID,
		Kind:      row.Kind,
		Status:    row.Status,
		GCSKey:    row.GCSKey,
		FileName:  row.FileName,
		MimeType:  row.MimeType,
		SizeBytes: row.SizeBytes,
		CreatedAt: row.CreatedAt,
	}
	if row.URL != nil {
		dto.URL = *row.URL
	}
	return dto
}

func mapRepoError(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgErr := pkgerrors.As(err); pkgErr != nil {
		return err
	}
	if errors.Is(err, ErrMediaNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// sanitizeFileName keeps only the base name and replaces whitespace so keys
// and filenames stay shell and URL safe.
func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
