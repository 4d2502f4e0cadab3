package wardrobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/gemini"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

const statsRecentLimit = 5

type itemRepository interface {
	Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error)
	GetByID(ctx context.Context, userID, itemID uuid.UUID) (*models.ClothingItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ClothingItem, error)
	UpdateFields(ctx context.Context, userID, itemID uuid.UUID, updates map[string]any) (*models.ClothingItem, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) (*models.ClothingItem, error)
	Stats(ctx context.Context, userID uuid.UUID, recentLimit int) (int64, map[string]int64, map[string]int64, []models.ClothingItem, error)
}

type imageAnalyzer interface {
	AnalyzeImage(ctx context.Context, prompt string, format string, data []byte) (string, error)
}

type imageDeleter interface {
	RequestDeletionByKey(ctx context.Context, userID uuid.UUID, gcsKey string) error
}

// Service exposes wardrobe CRUD plus garment analysis.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateItemInput) (*ClothingItemDTO, error)
	Get(ctx context.Context, userID, itemID uuid.UUID) (*ClothingItemDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]ClothingItemDTO, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ClothingItemDTO, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error)
	Analyze(ctx context.Context, userID uuid.UUID, mimeType string, image []byte) (*AnalysisDTO, error)
}

type service struct {
	repo     itemRepository
	analyzer imageAnalyzer
	media    imageDeleter
	logg     *logger.Logger
}

// NewService constructs a wardrobe service. The analyzer may be nil when the
// AI integration is disabled; Analyze then reports a configuration error.
func NewService(repo itemRepository, analyzer imageAnalyzer, media imageDeleter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wardrobe repository required")
	}
	return &service{repo: repo, analyzer: analyzer, media: media, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateItemInput) (*ClothingItemDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.ImageURL) == "" || strings.TrimSpace(input.ImageKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an item image is required")
	}

	rawCategory := strings.TrimSpace(input.Category)
	item := &models.ClothingItem{
		UserID:      userID,
		Name:        name,
		Category:    enums.NormalizeClothingCategory(rawCategory),
		RawCategory: rawCategory,
		SubCategory: trimPtr(input.SubCategory),
		Color:       trimPtr(input.Color),
		Season:      trimPtr(input.Season),
		Material:    trimPtr(input.Material),
		Size:        trimPtr(input.Size),
		Brand:       trimPtr(input.Brand),
		Description: trimPtr(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		ImageKey:    strings.TrimSpace(input.ImageKey),
		IsActive:    true,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist clothing item")
	}
	dto := ToItemDTO(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, itemID uuid.UUID) (*ClothingItemDTO, error) {
	item, err := s.repo.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, mapRepoError(err, "load clothing item")
	}
	dto := ToItemDTO(*item)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ClothingItemDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clothing items")
	}
	return ToItemDTOs(items), nil
}

func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ClothingItemDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Category != nil {
		raw := strings.TrimSpace(*input.Category)
		updates["category"] = enums.NormalizeClothingCategory(raw)
		updates["raw_category"] = raw
	}
	assignOptional(updates, "sub_category", input.SubCategory)
	assignOptional(updates, "color", input.Color)
	assignOptional(updates, "season", input.Season)
	assignOptional(updates, "material", input.Material)
	assignOptional(updates, "size", input.Size)
	assignOptional(updates, "brand", input.Brand)
	assignOptional(updates, "description", input.Description)
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	item, err := s.repo.UpdateFields(ctx, userID, itemID, updates)
	if err != nil {
		return nil, mapRepoError(err, "update clothing item")
	}
	dto := ToItemDTO(*item)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return mapRepoError(err, "delete clothing item")
	}

	// Outfits keep copies of item ids, so no cascade here. The image cleanup
	// rides the async media pipeline and must not fail the delete.
	if s.media != nil && item.ImageKey != "" {
		if err := s.media.RequestDeletionByKey(ctx, userID, item.ImageKey); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "requesting image deletion failed")
		}
	}
	return nil
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error) {
	total, byCategory, byColor, recent, err := s.repo.Stats(ctx, userID, statsRecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate wardrobe stats")
	}
	return &StatsDTO{
		Total:       total,
		ByCategory:  byCategory,
		ByColor:     byColor,
		RecentItems: ToItemDTOs(recent),
	}, nil
}

const analyzePrompt = `You are a fashion assistant. Look at the photo and decide whether it shows a single garment, pair of shoes, or fashion accessory.
Respond with ONLY a JSON object, no prose and no markdown fencing, of the exact shape:
{"is_clothing": bool, "name": string, "category": string, "sub_category": string, "color": string, "season": string, "material": string, "description": string, "reason": string}
Use one of top, bottom, shoes, outerwear, accessory for category. If the photo is not a garment, set is_clothing to false and explain in reason.`

type analysisResponse struct {
	IsClothing  bool   `json:"is_clothing"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Color       string `json:"color"`
	Season      string `json:"season"`
	Material    string `json:"material"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

func (s *service) Analyze(ctx context.Context, userID uuid.UUID, mimeType string, image []byte) (*AnalysisDTO, error) {
	if s.analyzer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "garment analysis is not configured")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if len(image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an image is required")
	}

	raw, err := s.analyzer.AnalyzeImage(ctx, analyzePrompt, gemini.ImageFormat(mimeType), image)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analyze garment image")
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(gemini.StripCodeFence(raw)), &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse analysis response")
	}

	if !parsed.IsClothing {
		reason := parsed.Reason
		if reason == "" {
			reason = "the photo does not appear to show a garment"
		}
		return &AnalysisDTO{OK: false, Reason: &reason}, nil
	}

	return &AnalysisDTO{
		OK:          true,
		Name:        parsed.Name,
		Category:    enums.NormalizeClothingCategory(parsed.Category).String(),
		SubCategory: parsed.SubCategory,
		Color:       parsed.Color,
		Season:      parsed.Season,
		Material:    parsed.Material,
		Description: parsed.Description,
	}, nil
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, ErrItemNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "clothing item not found")
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
