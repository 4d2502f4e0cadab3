package outfits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	dbtypes "github.com/combinewear/wardrobe-backend/pkg/db/types"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/metrics"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
	"github.com/combinewear/wardrobe-backend/pkg/pagination"
)

const recentExclusionLimit = 4

type outfitRepository interface {
	Create(ctx context.Context, outfit *models.Outfit) (*models.Outfit, error)
	CreateTx(ctx context.Context, tx *gorm.DB, outfit *models.Outfit) (*models.Outfit, error)
	GetByID(ctx context.Context, userID, outfitID uuid.UUID) (*models.Outfit, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Outfit, error)
	RecentExcluded(ctx context.Context, userID uuid.UUID, limit int) ([]models.Outfit, error)
	UpdateStatus(ctx context.Context, userID, outfitID uuid.UUID, status enums.OutfitStatus) (*models.Outfit, error)
	Delete(ctx context.Context, userID, outfitID uuid.UUID) error
	DeleteDisliked(ctx context.Context, userID uuid.UUID) (int64, error)
}

type itemSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ClothingItem, error)
	ListByIDs(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]models.ClothingItem, error)
	MarkWorn(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes outfit generation and lifecycle semantics.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*OutfitDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OutfitDTO, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OutfitList, error)
	UpdateStatus(ctx context.Context, userID, outfitID uuid.UUID, status string) (*StatusResult, error)
	Delete(ctx context.Context, userID, outfitID uuid.UUID) error
	DeleteDisliked(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo      outfitRepository
	items     itemSource
	assembler *Assembler
	tx        txRunner
	outbox    eventEmitter
	metrics   *metrics.GenerationMetrics
	logg      *logger.Logger
}

// NewService constructs an outfit service. tx and outbox may both be nil in
// which case generated outfits are persisted without domain events.
func NewService(repo outfitRepository, items itemSource, assembler *Assembler, tx txRunner, emitter eventEmitter, m *metrics.GenerationMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("outfit repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item source required")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler required")
	}
	if emitter != nil && tx == nil {
		return nil, fmt.Errorf("transaction runner required when emitting events")
	}
	return &service{
		repo:      repo,
		items:     items,
		assembler: assembler,
		tx:        tx,
		outbox:    emitter,
		metrics:   m,
		logg:      logg,
	}, nil
}

func (s *service) Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*OutfitDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	started := time.Now()

	wardrobeItems, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wardrobe")
	}
	if len(wardrobeItems) < 2 {
		s.observe(metrics.OutcomeRejected, started)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "not enough items in the wardrobe to generate an outfit")
	}

	exclusions := s.collectExclusions(ctx, userID, wardrobeItems, input)

	weather := ""
	if input.Weather != nil {
		weather = strings.TrimSpace(*input.Weather)
	}

	itemIDs, outcome, err := s.assembler.Assemble(ctx, wardrobeItems, exclusions, weather)
	if err != nil {
		s.observe(metrics.OutcomeRejected, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "assemble outfit")
	}

	outfit := &models.Outfit{
		UserID:  userID,
		Name:    suggestionName(time.Now()),
		ItemIDs: dbtypes.UUIDArray(itemIDs),
		Status:  enums.OutfitStatusSuggested,
	}
	if err := s.persistGenerated(ctx, outfit, outcome); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist outfit")
	}

	s.observe(outcome, started)

	dto := s.resolve(ctx, userID, *outfit)
	dto.Source = outcome
	return &dto, nil
}

// persistGenerated writes the outfit and its domain event in one transaction
// so the event is exactly as durable as the row.
func (s *service) persistGenerated(ctx context.Context, outfit *models.Outfit, source string) error {
	if s.outbox == nil {
		_, err := s.repo.Create(ctx, outfit)
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.CreateTx(ctx, tx, outfit); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOutfitGenerated,
			AggregateType: enums.AggregateOutfit,
			AggregateID:   outfit.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: outfit.UserID},
			Data: payloads.OutfitGeneratedEvent{
				OutfitID:  outfit.ID,
				UserID:    outfit.UserID,
				ItemIDs:   []uuid.UUID(outfit.ItemIDs),
				Source:    source,
				CreatedAt: outfit.CreatedAt,
			},
		})
	})
}

// collectExclusions merges the query-based recents with the immediate
// exclusion from a just-disliked outfit. The immediate one matters because
// the disliked row may not yet be visible to a read-after-write query.
func (s *service) collectExclusions(ctx context.Context, userID uuid.UUID, wardrobeItems []models.ClothingItem, input GenerateInput) []Exclusion {
	names := make(map[uuid.UUID]string, len(wardrobeItems))
	for _, item := range wardrobeItems {
		names[item.ID] = item.Name
	}

	toExclusion := func(outfit models.Outfit) Exclusion {
		ex := Exclusion{Name: outfit.Name}
		for _, id := range outfit.ItemIDs {
			if name, ok := names[id]; ok {
				ex.ItemNames = append(ex.ItemNames, name)
			}
		}
		return ex
	}

	var exclusions []Exclusion
	seen := map[uuid.UUID]bool{}

	if input.Feedback == "disliked" && input.Exclude != nil && *input.Exclude != uuid.Nil {
		if outfit, err := s.repo.GetByID(ctx, userID, *input.Exclude); err == nil {
			exclusions = append(exclusions, toExclusion(*outfit))
			seen[outfit.ID] = true
		}
	}

	// Exclusion retrieval failure degrades generation quality but must not
	// block it.
	recents, err := s.repo.RecentExcluded(ctx, userID, recentExclusionLimit)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "loading recent exclusions failed")
		}
		return exclusions
	}
	for _, outfit := range recents {
		if seen[outfit.ID] {
			continue
		}
		exclusions = append(exclusions, toExclusion(outfit))
	}
	return exclusions
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OutfitDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_ids is required")
	}

	owned, err := s.items.ListByIDs(ctx, userID, input.ItemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify item ownership")
	}
	if len(owned) != len(dedupe(input.ItemIDs)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_ids contains unknown items")
	}

	outfit := &models.Outfit{
		UserID:      userID,
		Name:        name,
		ItemIDs:     dbtypes.UUIDArray(dedupe(input.ItemIDs)),
		Status:      enums.OutfitStatusCustom,
		Description: input.Description,
	}
	created, err := s.repo.Create(ctx, outfit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist outfit")
	}

	dto := toOutfitDTO(*created, owned)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OutfitList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	pageSize := pagination.NormalizeLimit(params.Limit)

	outfits, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outfits")
	}

	nextCursor := ""
	if len(outfits) > pageSize {
		outfits = outfits[:pageSize]
		last := outfits[len(outfits)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	ids := map[uuid.UUID]bool{}
	var all []uuid.UUID
	for _, outfit := range outfits {
		for _, id := range outfit.ItemIDs {
			if !ids[id] {
				ids[id] = true
				all = append(all, id)
			}
		}
	}
	items, err := s.items.ListByIDs(ctx, userID, all)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve outfit items")
	}

	dtos := make([]OutfitDTO, 0, len(outfits))
	for _, outfit := range outfits {
		dtos = append(dtos, toOutfitDTO(outfit, items))
	}
	return &OutfitList{Outfits: dtos, NextCursor: nextCursor}, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID, outfitID uuid.UUID, status string) (*StatusResult, error) {
	parsed, err := enums.ParseOutfitStatus(status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid outfit status")
	}

	updated, err := s.repo.UpdateStatus(ctx, userID, outfitID, parsed)
	if err != nil {
		return nil, mapRepoError(err, "update outfit status")
	}

	result := &StatusResult{Outfit: s.resolve(ctx, userID, *updated)}

	if parsed == enums.OutfitStatusWorn {
		if err := s.items.MarkWorn(ctx, userID, []uuid.UUID(updated.ItemIDs)); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "stamping worn items failed")
		}
		// Chain a fresh suggestion so the client immediately has a next
		// outfit. A failed chain never fails the transition.
		if next, err := s.Generate(ctx, userID, GenerateInput{}); err == nil {
			result.Next = next
		} else if s.logg != nil {
			s.logg.Warn(ctx, "chained generation after worn failed")
		}
	}

	return result, nil
}

func (s *service) Delete(ctx context.Context, userID, outfitID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, outfitID); err != nil {
		return mapRepoError(err, "delete outfit")
	}
	return nil
}

func (s *service) DeleteDisliked(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.DeleteDisliked(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete disliked outfits")
	}
	return count, nil
}

func (s *service) resolve(ctx context.Context, userID uuid.UUID, outfit models.Outfit) OutfitDTO {
	items, err := s.items.ListByIDs(ctx, userID, []uuid.UUID(outfit.ItemIDs))
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "resolving outfit items failed")
		}
		items = nil
	}
	return toOutfitDTO(outfit, items)
}

func (s *service) observe(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(outcome, time.Since(started))
	}
}

func suggestionName(at time.Time) string {
	return "Suggested outfit " + at.Format("Jan 2 15:04")
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, ErrOutfitNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "outfit not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
