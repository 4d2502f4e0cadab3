package outfits

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	dbtypes "github.com/combinewear/wardrobe-backend/pkg/db/types"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/pagination"
)

type stubOutfitRepo struct {
	created   []*models.Outfit
	byID      map[uuid.UUID]*models.Outfit
	recents   []models.Outfit
	recentErr error
	updated   *models.Outfit
	deleted   int64
}

func (s *stubOutfitRepo) Create(ctx context.Context, outfit *models.Outfit) (*models.Outfit, error) {
	return s.CreateTx(ctx, nil, outfit)
}

func (s *stubOutfitRepo) CreateTx(ctx context.Context, tx *gorm.DB, outfit *models.Outfit) (*models.Outfit, error) {
	if outfit.ID == uuid.Nil {
		outfit.ID = uuid.New()
	}
	s.created = append(s.created, outfit)
	return outfit, nil
}

func (s *stubOutfitRepo) GetByID(ctx context.Context, userID, outfitID uuid.UUID) (*models.Outfit, error) {
	if outfit, ok := s.byID[outfitID]; ok && outfit.UserID == userID {
		return outfit, nil
	}
	return nil, ErrOutfitNotFound
}

func (s *stubOutfitRepo) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Outfit, error) {
	var out []models.Outfit
	for _, outfit := range s.byID {
		if outfit.UserID == userID {
			out = append(out, *outfit)
		}
	}
	return out, nil
}

func (s *stubOutfitRepo) RecentExcluded(ctx context.Context, userID uuid.UUID, limit int) ([]models.Outfit, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	return s.recents, nil
}

func (s *stubOutfitRepo) UpdateStatus(ctx context.Context, userID, outfitID uuid.UUID, status enums.OutfitStatus) (*models.Outfit, error) {
	outfit, err := s.GetByID(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	outfit.Status = status
	s.updated = outfit
	return outfit, nil
}

func (s *stubOutfitRepo) Delete(ctx context.Context, userID, outfitID uuid.UUID) error {
	if _, err := s.GetByID(ctx, userID, outfitID); err != nil {
		return err
	}
	delete(s.byID, outfitID)
	return nil
}

func (s *stubOutfitRepo) DeleteDisliked(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleted, nil
}

type stubItemSource struct {
	items []models.ClothingItem
	worn  []uuid.UUID
}

func (s *stubItemSource) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ClothingItem, error) {
	return s.items, nil
}

func (s *stubItemSource) ListByIDs(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]models.ClothingItem, error) {
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []models.ClothingItem
	for _, item := range s.items {
		if wanted[item.ID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubItemSource) MarkWorn(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error {
	s.worn = append(s.worn, itemIDs...)
	return nil
}

func serviceCodeOf(err error) pkgerrors.Code {
	if e := pkgerrors.As(err); e != nil {
		return e.Code()
	}
	return ""
}

func newStubService(t *testing.T, repo *stubOutfitRepo, items *stubItemSource, gen TextGenerator) Service {
	t.Helper()
	if repo.byID == nil {
		repo.byID = map[uuid.UUID]*models.Outfit{}
	}
	assembler := NewAssembler(gen, rand.New(rand.NewSource(1)), nil, nil)
	svc, err := NewService(repo, items, assembler, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGenerateRejectsSmallWardrobe(t *testing.T) {
	t.Parallel()

	svc := newStubService(t, &stubOutfitRepo{}, &stubItemSource{items: []models.ClothingItem{
		item("only-shirt", enums.CategoryTop),
	}}, nil)

	_, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{})
	if serviceCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGeneratePersistsSuggestedOutfit(t *testing.T) {
	t.Parallel()

	items := &stubItemSource{items: testWardrobe()}
	repo := &stubOutfitRepo{}
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q, %q]}`, items.items[0].ID, items.items[1].ID)}
	svc := newStubService(t, repo, items, gen)

	dto, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one persisted outfit, got %d", len(repo.created))
	}
	if repo.created[0].Status != enums.OutfitStatusSuggested {
		t.Fatalf("expected suggested status, got %s", repo.created[0].Status)
	}
	if dto.Source != "model" {
		t.Fatalf("expected model source, got %q", dto.Source)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected resolved items, got %v", dto.Items)
	}
}

func TestGenerateImmediateExclusionForDislikedFeedback(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	items := &stubItemSource{items: testWardrobe()}

	disliked := &models.Outfit{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "Yesterday look",
		ItemIDs: dbtypes.UUIDArray{items.items[0].ID, items.items[1].ID},
		Status:  enums.OutfitStatusDisliked,
	}
	repo := &stubOutfitRepo{byID: map[uuid.UUID]*models.Outfit{disliked.ID: disliked}}
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q]}`, items.items[2].ID)}
	svc := newStubService(t, repo, items, gen)

	_, err := svc.Generate(context.Background(), userID, GenerateInput{
		Feedback: "disliked",
		Exclude:  &disliked.ID,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.lastPrompt, "Yesterday look") {
		t.Fatalf("prompt missing immediate exclusion:\n%s", gen.lastPrompt)
	}
}

func TestGenerateMergesRecentAndImmediateExclusions(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	items := &stubItemSource{items: testWardrobe()}

	earlier := models.Outfit{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "Monday office look",
		ItemIDs: dbtypes.UUIDArray{items.items[0].ID, items.items[1].ID},
		Status:  enums.OutfitStatusDisliked,
	}
	justDisliked := &models.Outfit{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "Tuesday office look",
		ItemIDs: dbtypes.UUIDArray{items.items[1].ID, items.items[2].ID},
		Status:  enums.OutfitStatusSuggested,
	}
	repo := &stubOutfitRepo{
		byID:    map[uuid.UUID]*models.Outfit{justDisliked.ID: justDisliked},
		recents: []models.Outfit{earlier},
	}
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q]}`, items.items[0].ID)}
	svc := newStubService(t, repo, items, gen)

	_, err := svc.Generate(context.Background(), userID, GenerateInput{
		Feedback: "disliked",
		Exclude:  &justDisliked.ID,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.lastPrompt, "Monday office look") {
		t.Fatalf("prompt missing recent exclusion:\n%s", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "Tuesday office look") {
		t.Fatalf("prompt missing immediate exclusion:\n%s", gen.lastPrompt)
	}
}

func TestGenerateToleratesExclusionQueryFailure(t *testing.T) {
	t.Parallel()

	items := &stubItemSource{items: testWardrobe()}
	repo := &stubOutfitRepo{recentErr: fmt.Errorf("read replica down")}
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q]}`, items.items[0].ID)}
	svc := newStubService(t, repo, items, gen)

	if _, err := svc.Generate(context.Background(), uuid.New(), GenerateInput{}); err != nil {
		t.Fatalf("Generate should tolerate exclusion failures: %v", err)
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	t.Parallel()

	svc := newStubService(t, &stubOutfitRepo{}, &stubItemSource{}, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), "favorite")
	if serviceCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusLegacyLabel(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	outfit := &models.Outfit{ID: uuid.New(), UserID: userID, Status: enums.OutfitStatusSuggested}
	repo := &stubOutfitRepo{byID: map[uuid.UUID]*models.Outfit{outfit.ID: outfit}}
	svc := newStubService(t, repo, &stubItemSource{}, nil)

	result, err := svc.UpdateStatus(context.Background(), userID, outfit.ID, "created")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if result.Outfit.Status != enums.OutfitStatusCustom {
		t.Fatalf("expected legacy created to map to custom, got %s", result.Outfit.Status)
	}
}

func TestUpdateStatusWornChainsGenerationAndStampsItems(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	items := &stubItemSource{items: testWardrobe()}
	outfit := &models.Outfit{
		ID:      uuid.New(),
		UserID:  userID,
		Status:  enums.OutfitStatusSuggested,
		ItemIDs: dbtypes.UUIDArray{items.items[0].ID},
	}
	repo := &stubOutfitRepo{byID: map[uuid.UUID]*models.Outfit{outfit.ID: outfit}}
	gen := &fakeGenerator{response: fmt.Sprintf(`{"outfit_ids": [%q]}`, items.items[1].ID)}
	svc := newStubService(t, repo, items, gen)

	result, err := svc.UpdateStatus(context.Background(), userID, outfit.ID, "worn")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if result.Outfit.Status != enums.OutfitStatusWorn {
		t.Fatalf("expected worn, got %s", result.Outfit.Status)
	}
	if len(items.worn) != 1 || items.worn[0] != items.items[0].ID {
		t.Fatalf("expected worn stamp for outfit items, got %v", items.worn)
	}
	if result.Next == nil {
		t.Fatal("expected a chained next suggestion")
	}
	if result.Next.Status != enums.OutfitStatusSuggested {
		t.Fatalf("chained outfit should be suggested, got %s", result.Next.Status)
	}
}

func TestUpdateStatusOwnershipMismatch(t *testing.T) {
	t.Parallel()

	outfit := &models.Outfit{ID: uuid.New(), UserID: uuid.New(), Status: enums.OutfitStatusSuggested}
	repo := &stubOutfitRepo{byID: map[uuid.UUID]*models.Outfit{outfit.ID: outfit}}
	svc := newStubService(t, repo, &stubItemSource{}, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), outfit.ID, "disliked")
	if serviceCodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTrimsPageAndSetsNextCursor(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := &stubOutfitRepo{byID: map[uuid.UUID]*models.Outfit{}}
	for i := 0; i < 3; i++ {
		outfit := &models.Outfit{ID: uuid.New(), UserID: owner, Status: enums.OutfitStatusWorn}
		repo.byID[outfit.ID] = outfit
	}
	svc := newStubService(t, repo, &stubItemSource{}, nil)

	page, err := svc.List(context.Background(), owner, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Outfits) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page.Outfits))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor for remaining row")
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	t.Parallel()

	svc := newStubService(t, &stubOutfitRepo{}, &stubItemSource{}, nil)

	_, err := svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "not-base64!!"})
	if serviceCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateCustomRejectsForeignItems(t *testing.T) {
	t.Parallel()

	items := &stubItemSource{items: testWardrobe()}
	svc := newStubService(t, &stubOutfitRepo{}, items, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Name:    "My look",
		ItemIDs: []uuid.UUID{items.items[0].ID, uuid.New()},
	})
	if serviceCodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateCustomDefaultsStatus(t *testing.T) {
	t.Parallel()

	items := &stubItemSource{items: testWardrobe()}
	repo := &stubOutfitRepo{}
	svc := newStubService(t, repo, items, nil)

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Name:    "Date night",
		ItemIDs: []uuid.UUID{items.items[0].ID, items.items[2].ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.OutfitStatusCustom {
		t.Fatalf("expected custom status, got %s", dto.Status)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one persisted outfit")
	}
}

