package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
)

const consumerName = "media-deletion-worker"

type deletionRepository interface {
	DeleteRow(ctx context.Context, id uuid.UUID) error
}

type objectRemover interface {
	DeleteObject(ctx context.Context, bucket, key string) error
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// DeletionConsumer drains the media-deletion subscription: it removes the
// storage object referenced by each event, then the media row.
type DeletionConsumer struct {
	repo         deletionRepository
	store        objectRemover
	guard        idempotencyGuard
	subscription *pubsub.Subscriber
	bucket       string
	logg         *logger.Logger
}

// NewDeletionConsumer wires the dependencies required for media cleanup.
func NewDeletionConsumer(repo deletionRepository, store objectRemover, guard idempotencyGuard, subscription *pubsub.Subscriber, bucket string, logg *logger.Logger) (*DeletionConsumer, error) {
	if repo == nil {
		return nil, errors.New("media repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if subscription == nil {
		return nil, errors.New("media deletion subscription is required")
	}
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{
		repo:         repo,
		store:        store,
		guard:        guard,
		subscription: subscription,
		bucket:       bucket,
		logg:         logg,
	}, nil
}

// Run processes deletion events until the context is canceled.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	if eventType := msg.Attributes["event_type"]; eventType != string(enums.EventMediaDeleteRequested) {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	var event payloads.MediaDeleteRequestedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode deletion payload", err)
		return processResult{ack: true}
	}
	if event.MediaID == uuid.Nil || event.GCSKey == "" {
		c.logg.Error(logCtx, "deletion event missing media id or key", fmt.Errorf("incomplete payload"))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"media_id": event.MediaID.String(),
		"gcs_key":  event.GCSKey,
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "deletion event has invalid event id", err)
		return processResult{ack: true}
	}

	if c.guard != nil {
		seen, err := c.guard.CheckAndMarkProcessed(logCtx, consumerName, eventID)
		if err != nil {
			c.logg.Error(logCtx, "idempotency check failed", err)
			return processResult{nack: true}
		}
		if seen {
			c.logg.Info(logCtx, "deletion event already processed")
			return processResult{ack: true}
		}
	}

	if err := c.handle(logCtx, event); err != nil {
		// Release the idempotency mark so the redelivery is not ignored.
		if c.guard != nil {
			if delErr := c.guard.Delete(logCtx, consumerName, eventID); delErr != nil {
				c.logg.Error(logCtx, "releasing idempotency mark failed", delErr)
			}
		}
		c.logg.Error(logCtx, "media deletion failed", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "media deleted")
	return processResult{ack: true}
}

// handle removes the object first so a crash between the two steps leaves a
// row pointing at nothing instead of an orphaned object.
func (c *DeletionConsumer) handle(ctx context.Context, event payloads.MediaDeleteRequestedEvent) error {
	if err := c.store.DeleteObject(ctx, c.bucket, event.GCSKey); err != nil {
		return fmt.Errorf("delete object %s: %w", event.GCSKey, err)
	}
	if err := c.repo.DeleteRow(ctx, event.MediaID); err != nil {
		return fmt.Errorf("delete media row %s: %w", event.MediaID, err)
	}
	return nil
}
