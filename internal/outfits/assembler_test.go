package outfits

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/metrics"
)

type fakeGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func item(name string, category enums.ClothingCategory) models.ClothingItem {
	return models.ClothingItem{ID: uuid.New(), Name: name, Category: category}
}

func testWardrobe() []models.ClothingItem {
	return []models.ClothingItem{
		item("white shirt", enums.CategoryTop),
		item("jeans", enums.CategoryBottom),
		item("sneakers", enums.CategoryShoes),
	}
}

func TestAssembleModelPath(t *testing.T) {
	t.Parallel()

	wardrobe := testWardrobe()
	foreign := uuid.New()
	gen := &fakeGenerator{response: fmt.Sprintf(
		"```json\n{\"outfit_ids\": [%q, %q, %q]}\n```",
		wardrobe[0].ID, wardrobe[1].ID, foreign,
	)}
	assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)

	ids, outcome, err := assembler.Assemble(context.Background(), wardrobe, nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if outcome != metrics.OutcomeModel {
		t.Fatalf("expected model outcome, got %s", outcome)
	}
	if len(ids) != 2 {
		t.Fatalf("expected foreign id dropped, got %v", ids)
	}
	for _, id := range ids {
		if id == foreign {
			t.Fatal("foreign id must never be trusted")
		}
	}
}

func TestAssemblePromptContainsWardrobeExclusionsWeather(t *testing.T) {
	t.Parallel()

	wardrobe := testWardrobe()
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q]}`, wardrobe[0].ID)}
	assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)

	exclusions := []Exclusion{{Name: "Friday look", ItemNames: []string{"white shirt", "jeans"}}}
	if _, _, err := assembler.Assemble(context.Background(), wardrobe, exclusions, "Rain, 9°C"); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	for _, want := range []string{
		wardrobe[0].ID.String(),
		"Friday look",
		"white shirt, jeans",
		"Rain, 9°C",
		`{"outfit_ids": ["id", ...]}`,
	} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
}

func TestAssembleMalformedResponseFallsBack(t *testing.T) {
	t.Parallel()

	for _, response := range []string{
		"sure, here you go!",
		`{"ids": ["nope"]}`,
		`{"outfit_ids": "not-a-list"}`,
	} {
		gen := &fakeGenerator{response: response}
		assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)

		ids, outcome, err := assembler.Assemble(context.Background(), testWardrobe(), nil, "")
		if err != nil {
			t.Fatalf("Assemble(%q): %v", response, err)
		}
		if outcome != metrics.OutcomeFallback {
			t.Fatalf("expected fallback for %q, got %s", response, outcome)
		}
		if len(ids) == 0 {
			t.Fatalf("fallback returned no items for %q", response)
		}
	}
}

func TestAssembleGeneratorErrorFallsBack(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: fmt.Errorf("model unavailable")}
	assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)

	ids, outcome, err := assembler.Assemble(context.Background(), testWardrobe(), nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if outcome != metrics.OutcomeFallback {
		t.Fatalf("expected fallback, got %s", outcome)
	}
	if len(ids) != 3 {
		t.Fatalf("expected one pick per category group, got %v", ids)
	}
}

func TestAssembleSmallWardrobeSkipsModel(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{"outfit_ids": []}`}
	assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)

	wardrobe := []models.ClothingItem{
		item("shirt", enums.CategoryTop),
		item("jeans", enums.CategoryBottom),
	}
	ids, outcome, err := assembler.Assemble(context.Background(), wardrobe, nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("model must be skipped for a wardrobe of 2, got %d calls", gen.calls)
	}
	if outcome != metrics.OutcomeFallback {
		t.Fatalf("expected fallback, got %s", outcome)
	}
	if len(ids) != 2 {
		t.Fatalf("expected top and bottom picks, got %v", ids)
	}
}

func TestAssembleRejectsTinyWardrobe(t *testing.T) {
	t.Parallel()

	assembler := NewAssembler(&fakeGenerator{}, rand.New(rand.NewSource(1)), nil, nil)

	_, outcome, err := assembler.Assemble(context.Background(), []models.ClothingItem{item("shirt", enums.CategoryTop)}, nil, "")
	if err == nil {
		t.Fatal("expected rejection for a single-item wardrobe")
	}
	if outcome != metrics.OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %s", outcome)
	}
}

func TestFallbackGroupsAndOuterwearCountsAsTop(t *testing.T) {
	t.Parallel()

	assembler := NewAssembler(nil, rand.New(rand.NewSource(42)), nil, nil)

	coat := item("coat", enums.CategoryOuterwear)
	jeans := item("jeans", enums.CategoryBottom)
	wardrobe := []models.ClothingItem{coat, jeans}

	ids, outcome, err := assembler.Assemble(context.Background(), wardrobe, nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if outcome != metrics.OutcomeFallback {
		t.Fatalf("expected fallback, got %s", outcome)
	}
	if len(ids) != 2 || ids[0] != coat.ID || ids[1] != jeans.ID {
		t.Fatalf("expected coat then jeans, got %v", ids)
	}
}

func TestFallbackNoKnownCategoriesPicksTwoDistinct(t *testing.T) {
	t.Parallel()

	wardrobe := []models.ClothingItem{
		item("hat", enums.CategoryOther),
		item("scarf", enums.CategoryAccessory),
		item("belt", enums.CategoryAccessory),
	}

	for seed := int64(0); seed < 10; seed++ {
		assembler := NewAssembler(nil, rand.New(rand.NewSource(seed)), nil, nil)
		ids, _, err := assembler.Assemble(context.Background(), wardrobe, nil, "")
		if err != nil {
			t.Fatalf("Assemble(seed=%d): %v", seed, err)
		}
		if len(ids) != 2 {
			t.Fatalf("expected two picks, got %v", ids)
		}
		if ids[0] == ids[1] {
			t.Fatalf("picks must be distinct, got %v", ids)
		}
	}
}

func TestFallbackDeterministicUnderSeededSource(t *testing.T) {
	t.Parallel()

	wardrobe := []models.ClothingItem{
		item("shirt", enums.CategoryTop),
		item("tee", enums.CategoryTop),
		item("jeans", enums.CategoryBottom),
		item("chinos", enums.CategoryBottom),
		item("boots", enums.CategoryShoes),
	}

	first := NewAssembler(nil, rand.New(rand.NewSource(7)), nil, nil)
	second := NewAssembler(nil, rand.New(rand.NewSource(7)), nil, nil)

	a, _, err := first.Assemble(context.Background(), wardrobe, nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b, _, err := second.Assemble(context.Background(), wardrobe, nil, "")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("picks differ at %d: %v vs %v", i, a, b)
		}
	}
}
