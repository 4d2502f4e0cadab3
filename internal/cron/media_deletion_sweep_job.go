package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
)

const (
	stuckDeletionAgeHours = 24
	sweepBatchLimit       = 200
)

// MediaDeletionSweepJobParams configures the stuck-deletion sweep.
type MediaDeletionSweepJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     sweepMediaRepo
	Emitter  sweepEmitter
	AgeHours int
	Limit    int
}

type sweepMediaRepo interface {
	ListStuckDeletions(ctx context.Context, cutoff time.Time, limit int) ([]models.Media, error)
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.MediaStatus) error
}

type sweepEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewMediaDeletionSweepJob builds the job that requeues media rows whose
// deletion never completed.
func NewMediaDeletionSweepJob(params MediaDeletionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ageHours := params.AgeHours
	if ageHours <= 0 {
		ageHours = stuckDeletionAgeHours
	}
	limit := params.Limit
	if limit <= 0 {
		limit = sweepBatchLimit
	}
	return &mediaDeletionSweepJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		emitter:  params.Emitter,
		ageHours: ageHours,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type mediaDeletionSweepJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     sweepMediaRepo
	emitter  sweepEmitter
	ageHours int
	limit    int
	now      func() time.Time
}

func (j *mediaDeletionSweepJob) Name() string { return "media-deletion-sweep" }

// Run re-emits a deletion event for every row stuck in delete_requested or
// delete_failed. EmitIfNotExists keeps a still-pending outbox row from being
// duplicated.
func (j *mediaDeletionSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.ageHours) * time.Hour)
	rows, err := j.repo.ListStuckDeletions(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("list stuck deletions: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no stuck media deletions")
		return nil
	}

	var errs error
	requeued := 0
	for _, row := range rows {
		if err := j.requeue(ctx, row); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("media %s: %w", row.ID, err))
			continue
		}
		requeued++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(rows),
		"requeued": requeued,
	})
	j.logg.Info(logCtx, "media deletion sweep complete")
	return errs
}

func (j *mediaDeletionSweepJob) requeue(ctx context.Context, row models.Media) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
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
		}); err != nil {
			return err
		}
		if row.Status == enums.MediaStatusDeleteRequested {
			return nil
		}
		return j.repo.UpdateStatusTx(ctx, tx, row.ID, enums.MediaStatusDeleteRequested)
	})
}
