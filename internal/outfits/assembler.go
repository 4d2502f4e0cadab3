package outfits

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/gemini"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/metrics"
)

// minModelWardrobe is the smallest wardrobe the model is asked about. Below
// it the randomized fallback is used directly.
const minModelWardrobe = 3

// TextGenerator is the external model contract. pkg/gemini implements it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Exclusion summarizes an outfit the model must not repeat.
type Exclusion struct {
	Name      string
	ItemNames []string
}

// Assembler builds a prompt from the wardrobe and exclusions, delegates item
// selection to the external model, and falls back to a randomized
// category-based pick when the model fails or returns nothing usable.
type Assembler struct {
	generator TextGenerator
	rng       *rand.Rand
	logg      *logger.Logger
	metrics   *metrics.GenerationMetrics
}

// NewAssembler constructs an assembler. generator may be nil, which forces
// the fallback path. rng may be nil; tests inject a seeded source.
func NewAssembler(generator TextGenerator, rng *rand.Rand, logg *logger.Logger, m *metrics.GenerationMetrics) *Assembler {
	return &Assembler{generator: generator, rng: rng, logg: logg, metrics: m}
}

// Assemble picks item ids for a new outfit. The returned outcome is one of
// the metrics outcome labels.
func (a *Assembler) Assemble(ctx context.Context, wardrobe []models.ClothingItem, exclusions []Exclusion, weather string) ([]uuid.UUID, string, error) {
	if len(wardrobe) < 2 {
		return nil, metrics.OutcomeRejected, fmt.Errorf("not enough items: wardrobe has %d", len(wardrobe))
	}

	if a.generator != nil && len(wardrobe) >= minModelWardrobe {
		ids, err := a.generateWithModel(ctx, wardrobe, exclusions, weather)
		if err == nil && len(ids) > 0 {
			return ids, metrics.OutcomeModel, nil
		}
		if err != nil {
			if a.metrics != nil {
				a.metrics.IncUpstreamFailure("gemini")
			}
			if a.logg != nil {
				a.logg.Warn(ctx, "model generation failed, using fallback")
			}
		}
	}

	ids := a.fallback(wardrobe)
	return ids, metrics.OutcomeFallback, nil
}

func (a *Assembler) generateWithModel(ctx context.Context, wardrobe []models.ClothingItem, exclusions []Exclusion, weather string) ([]uuid.UUID, error) {
	prompt := buildPrompt(wardrobe, exclusions, weather)

	raw, err := a.generator.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	ids, err := parseOutfitIDs(raw)
	if err != nil {
		return nil, err
	}

	owned := make(map[uuid.UUID]bool, len(wardrobe))
	for _, item := range wardrobe {
		owned[item.ID] = true
	}

	// Ids the caller does not own are dropped, never trusted.
	selected := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if owned[id] && !seen[id] {
			selected = append(selected, id)
			seen[id] = true
		}
	}
	return selected, nil
}

func buildPrompt(wardrobe []models.ClothingItem, exclusions []Exclusion, weather string) string {
	var b strings.Builder
	b.WriteString("You are a fashion assistant. Pick a single stylish outfit from the wardrobe below.\n\nWardrobe:\n")
	for _, item := range wardrobe {
		b.WriteString("- id=")
		b.WriteString(item.ID.String())
		b.WriteString(" name=")
		b.WriteString(item.Name)
		b.WriteString(" category=")
		b.WriteString(item.Category.String())
		if item.Color != nil && *item.Color != "" {
			b.WriteString(" color=")
			b.WriteString(*item.Color)
		}
		if item.Season != nil && *item.Season != "" {
			b.WriteString(" season=")
			b.WriteString(*item.Season)
		}
		b.WriteString("\n")
	}

	if len(exclusions) > 0 {
		b.WriteString("\nDo NOT repeat any of these previous outfits:\n")
		for _, ex := range exclusions {
			b.WriteString("- ")
			b.WriteString(ex.Name)
			if len(ex.ItemNames) > 0 {
				b.WriteString(": ")
				b.WriteString(strings.Join(ex.ItemNames, ", "))
			}
			b.WriteString("\n")
		}
	}

	if weather != "" {
		b.WriteString("\nCurrent weather: ")
		b.WriteString(weather)
		b.WriteString("\n")
	}

	b.WriteString("\nThe outfit must be fashion-appropriate and distinct from every excluded outfit. Include at least one top, one bottom, and one pair of shoes when those categories exist in the wardrobe.\n")
	b.WriteString(`Respond with ONLY a JSON object of the exact shape {"outfit_ids": ["id", ...]} using ids from the wardrobe. No prose, no markdown fencing.`)
	return b.String()
}

type outfitIDsResponse struct {
	OutfitIDs []string `json:"outfit_ids"`
}

func parseOutfitIDs(raw string) ([]uuid.UUID, error) {
	cleaned := gemini.StripCodeFence(raw)

	var parsed outfitIDsResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("malformed model response: %w", err)
	}
	if parsed.OutfitIDs == nil {
		return nil, fmt.Errorf("model response missing outfit_ids")
	}

	ids := make([]uuid.UUID, 0, len(parsed.OutfitIDs))
	for _, candidate := range parsed.OutfitIDs {
		id, err := uuid.Parse(strings.TrimSpace(candidate))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// fallback picks one item from each of the top-like, bottom-like and
// shoe-like groups. Outerwear counts toward tops. When no group matches it
// picks two arbitrary distinct items, so the result is never empty for a
// wardrobe of two or more.
func (a *Assembler) fallback(wardrobe []models.ClothingItem) []uuid.UUID {
	var tops, bottoms, shoes []uuid.UUID
	for _, item := range wardrobe {
		switch item.Category {
		case enums.CategoryTop, enums.CategoryOuterwear:
			tops = append(tops, item.ID)
		case enums.CategoryBottom:
			bottoms = append(bottoms, item.ID)
		case enums.CategoryShoes:
			shoes = append(shoes, item.ID)
		}
	}

	var picked []uuid.UUID
	for _, group := range [][]uuid.UUID{tops, bottoms, shoes} {
		if len(group) > 0 {
			picked = append(picked, group[a.intn(len(group))])
		}
	}
	if len(picked) > 0 {
		return picked
	}

	first := a.intn(len(wardrobe))
	second := a.intn(len(wardrobe) - 1)
	if second >= first {
		second++
	}
	return []uuid.UUID{wardrobe[first].ID, wardrobe[second].ID}
}

func (a *Assembler) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if a.rng != nil {
		return a.rng.Intn(n)
	}
	return rand.Intn(n)
}
