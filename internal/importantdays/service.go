package importantdays

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
)

type dayRepository interface {
	Create(ctx context.Context, day *models.ImportantDay) (*models.ImportantDay, error)
	GetByID(ctx context.Context, userID, dayID uuid.UUID) (*models.ImportantDay, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ImportantDay, error)
	UpdateFields(ctx context.Context, userID, dayID uuid.UUID, updates map[string]any) (*models.ImportantDay, error)
	Delete(ctx context.Context, userID, dayID uuid.UUID) error
}

// Service exposes important day CRUD.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateDayInput) (*ImportantDayDTO, error)
	Get(ctx context.Context, userID, dayID uuid.UUID) (*ImportantDayDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]ImportantDayDTO, error)
	Update(ctx context.Context, userID, dayID uuid.UUID, input UpdateDayInput) (*ImportantDayDTO, error)
	Delete(ctx context.Context, userID, dayID uuid.UUID) error
}

type service struct {
	repo dayRepository
}

// NewService constructs an important days service.
func NewService(repo dayRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("important days repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateDayInput) (*ImportantDayDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	rawOccasion := strings.TrimSpace(input.Occasion)
	if rawOccasion == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "occasion is required")
	}

	day := &models.ImportantDay{
		UserID:      userID,
		Date:        input.Date.UTC(),
		Name:        trimPtr(input.Name),
		Occasion:    enums.NormalizeOccasion(rawOccasion),
		RawOccasion: rawOccasion,
		Notes:       trimPtr(input.Notes),
	}

	created, err := s.repo.Create(ctx, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist important day")
	}
	dto := ToDayDTO(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, dayID uuid.UUID) (*ImportantDayDTO, error) {
	day, err := s.repo.GetByID(ctx, userID, dayID)
	if err != nil {
		return nil, mapRepoError(err, "load important day")
	}
	dto := ToDayDTO(*day)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ImportantDayDTO, error) {
	days, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list important days")
	}
	return ToDayDTOs(days), nil
}

func (s *service) Update(ctx context.Context, userID, dayID uuid.UUID, input UpdateDayInput) (*ImportantDayDTO, error) {
	updates := map[string]any{}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "date cannot be empty")
		}
		updates["date"] = input.Date.UTC()
	}
	if input.Occasion != nil {
		raw := strings.TrimSpace(*input.Occasion)
		if raw == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "occasion cannot be empty")
		}
		updates["occasion"] = enums.NormalizeOccasion(raw)
		updates["raw_occasion"] = raw
	}
	assignOptional(updates, "name", input.Name)
	assignOptional(updates, "notes", input.Notes)

	day, err := s.repo.UpdateFields(ctx, userID, dayID, updates)
	if err != nil {
		return nil, mapRepoError(err, "update important day")
	}
	dto := ToDayDTO(*day)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, dayID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, dayID); err != nil {
		return mapRepoError(err, "delete important day")
	}
	return nil
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, ErrDayNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "important day not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func assignOptional(updates map[string]any, column string, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		updates[column] = nil
		return
	}
	updates[column] = trimmed
}
