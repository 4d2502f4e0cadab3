package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
)

type stubDeletionRepo struct {
	deleted []uuid.UUID
	err     error
}

func (s *stubDeletionRepo) DeleteRow(ctx context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubObjectRemover struct {
	keys []string
	err  error
}

func (s *stubObjectRemover) DeleteObject(ctx context.Context, bucket, key string) error {
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, key)
	return nil
}

type stubGuard struct {
	seen     bool
	marked   []uuid.UUID
	released []uuid.UUID
}

func (s *stubGuard) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if s.seen {
		return true, nil
	}
	s.marked = append(s.marked, eventID)
	return false, nil
}

func (s *stubGuard) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.released = append(s.released, eventID)
	return nil
}

func newTestConsumer(t *testing.T, repo *stubDeletionRepo, store *stubObjectRemover, guard idempotencyGuard) *DeletionConsumer {
	t.Helper()

	c, err := NewDeletionConsumer(repo, store, guard, &pubsub.Subscriber{}, "wardrobe-media", logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewDeletionConsumer: %v", err)
	}
	return c
}

func deletionMessage(t *testing.T, event payloads.MediaDeleteRequestedEvent) *pubsub.Message {
	t.Helper()

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:   "msg-1",
		Data: envelope,
		Attributes: map[string]string{
			"event_type": string(enums.EventMediaDeleteRequested),
		},
	}
}

func TestProcessDeletesObjectAndRow(t *testing.T) {
	t.Parallel()

	repo := &stubDeletionRepo{}
	store := &stubObjectRemover{}
	guard := &stubGuard{}
	c := newTestConsumer(t, repo, store, guard)

	event := payloads.MediaDeleteRequestedEvent{
		MediaID: uuid.New(),
		UserID:  uuid.New(),
		Kind:    enums.MediaKindWardrobeItem,
		GCSKey:  "wardrobe/user/item.jpg",
	}

	result := c.process(context.Background(), deletionMessage(t, event))
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(store.keys) != 1 || store.keys[0] != event.GCSKey {
		t.Fatalf("expected object deleted, got %v", store.keys)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != event.MediaID {
		t.Fatalf("expected row deleted, got %v", repo.deleted)
	}
	if len(guard.marked) != 1 {
		t.Fatalf("expected idempotency mark, got %v", guard.marked)
	}
}

func TestProcessSkipsAlreadyProcessedEvent(t *testing.T) {
	t.Parallel()

	repo := &stubDeletionRepo{}
	store := &stubObjectRemover{}
	c := newTestConsumer(t, repo, store, &stubGuard{seen: true})

	result := c.process(context.Background(), deletionMessage(t, payloads.MediaDeleteRequestedEvent{
		MediaID: uuid.New(),
		GCSKey:  "wardrobe/user/item.jpg",
	}))
	if !result.ack {
		t.Fatalf("expected ack for duplicate, got %+v", result)
	}
	if len(store.keys) != 0 || len(repo.deleted) != 0 {
		t.Fatal("duplicate event must not touch storage or rows")
	}
}

func TestProcessNacksAndReleasesMarkOnFailure(t *testing.T) {
	t.Parallel()

	repo := &stubDeletionRepo{}
	store := &stubObjectRemover{err: errors.New("gcs unavailable")}
	guard := &stubGuard{}
	c := newTestConsumer(t, repo, store, guard)

	result := c.process(context.Background(), deletionMessage(t, payloads.MediaDeleteRequestedEvent{
		MediaID: uuid.New(),
		GCSKey:  "wardrobe/user/item.jpg",
	}))
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(guard.released) != 1 {
		t.Fatalf("expected idempotency mark released, got %v", guard.released)
	}
}

func TestProcessAcksUnrelatedEvent(t *testing.T) {
	t.Parallel()

	repo := &stubDeletionRepo{}
	store := &stubObjectRemover{}
	c := newTestConsumer(t, repo, store, nil)

	msg := &pubsub.Message{
		ID:         "msg-2",
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": string(enums.EventUserDeleted)},
	}
	result := c.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack for unrelated event, got %+v", result)
	}
	if len(store.keys) != 0 {
		t.Fatal("unrelated event must not delete objects")
	}
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(t, &stubDeletionRepo{}, &stubObjectRemover{}, nil)

	msg := &pubsub.Message{
		ID:         "msg-3",
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventMediaDeleteRequested)},
	}
	if result := c.process(context.Background(), msg); !result.ack {
		t.Fatalf("malformed envelope should ack, got %+v", result)
	}
}
