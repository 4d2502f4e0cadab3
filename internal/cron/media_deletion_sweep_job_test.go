package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
)

type fakeSweepRepo struct {
	stuck      []models.Media
	listErr    error
	lastCutoff time.Time
	lastLimit  int
	statusSets map[uuid.UUID]enums.MediaStatus
}

func (f *fakeSweepRepo) ListStuckDeletions(ctx context.Context, cutoff time.Time, limit int) ([]models.Media, error) {
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.stuck, f.listErr
}

func (f *fakeSweepRepo) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.MediaStatus) error {
	if f.statusSets == nil {
		f.statusSets = make(map[uuid.UUID]enums.MediaStatus)
	}
	f.statusSets[id] = status
	return nil
}

type fakeSweepEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeSweepEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newSweepJob(t *testing.T, repo *fakeSweepRepo, emitter *fakeSweepEmitter) *mediaDeletionSweepJob {
	t.Helper()
	jobIface, err := NewMediaDeletionSweepJob(MediaDeletionSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		DB:      outboxRetentionTxRunner{},
		Repo:    repo,
		Emitter: emitter,
	})
	if err != nil {
		t.Fatalf("NewMediaDeletionSweepJob: %v", err)
	}
	job, ok := jobIface.(*mediaDeletionSweepJob)
	if !ok {
		t.Fatalf("expected mediaDeletionSweepJob, got %T", jobIface)
	}
	return job
}

func TestMediaDeletionSweepRequeuesStuckRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	requested := models.Media{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Kind:   enums.MediaKindWardrobeItem,
		GCSKey: "wardrobe/stuck-a.jpg",
		Status: enums.MediaStatusDeleteRequested,
	}
	failed := models.Media{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Kind:   enums.MediaKindUserProfile,
		GCSKey: "profiles/stuck-b.jpg",
		Status: enums.MediaStatusDeleteFailed,
	}
	repo := &fakeSweepRepo{stuck: []models.Media{requested, failed}}
	emitter := &fakeSweepEmitter{}
	job := newSweepJob(t, repo, emitter)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-stuckDeletionAgeHours * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.lastLimit != sweepBatchLimit {
		t.Fatalf("expected limit %d, got %d", sweepBatchLimit, repo.lastLimit)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
	payload, ok := emitter.events[0].Data.(payloads.MediaDeleteRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", emitter.events[0].Data)
	}
	if payload.GCSKey != requested.GCSKey || payload.MediaID != requested.ID {
		t.Fatalf("payload does not match stuck row: %+v", payload)
	}

	// Only the failed row needs its status reset.
	if _, ok := repo.statusSets[requested.ID]; ok {
		t.Fatal("delete_requested row should not have its status touched")
	}
	if status := repo.statusSets[failed.ID]; status != enums.MediaStatusDeleteRequested {
		t.Fatalf("expected failed row reset to delete_requested, got %q", status)
	}
}

func TestMediaDeletionSweepNoStuckRows(t *testing.T) {
	repo := &fakeSweepRepo{}
	emitter := &fakeSweepEmitter{}
	job := newSweepJob(t, repo, emitter)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(emitter.events))
	}
}

func TestMediaDeletionSweepCollectsPerRowErrors(t *testing.T) {
	repo := &fakeSweepRepo{stuck: []models.Media{{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Kind:   enums.MediaKindWardrobeItem,
		GCSKey: "wardrobe/stuck-c.jpg",
		Status: enums.MediaStatusDeleteRequested,
	}}}
	emitter := &fakeSweepEmitter{err: errors.New("outbox down")}
	job := newSweepJob(t, repo, emitter)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when emit fails")
	}
}
