package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		DomainTopic:        "domain-topic",
		MediaDeletionTopic: "media-deletion-topic",
	})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func encodeEnvelope(t *testing.T, data any) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestResolveMediaDeleteRequested(t *testing.T) {
	reg := testRegistry(t)
	mediaID := uuid.New()

	event := models.OutboxEvent{
		EventType:     enums.EventMediaDeleteRequested,
		AggregateType: enums.AggregateMedia,
		AggregateID:   mediaID,
		Payload: encodeEnvelope(t, payloads.MediaDeleteRequestedEvent{
			MediaID: mediaID,
			UserID:  uuid.New(),
			Kind:    enums.MediaKindWardrobeItem,
			GCSKey:  "wardrobe/abc.jpg",
		}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "media-deletion-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	typed, ok := resolved.Payload.(*payloads.MediaDeleteRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if typed.GCSKey != "wardrobe/abc.jpg" {
		t.Fatalf("payload not decoded: %+v", typed)
	}
}

func TestResolveRoutesDomainEvents(t *testing.T) {
	reg := testRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOutfitGenerated,
		AggregateType: enums.AggregateOutfit,
		AggregateID:   uuid.New(),
		Payload: encodeEnvelope(t, payloads.OutfitGeneratedEvent{
			OutfitID: uuid.New(),
			UserID:   uuid.New(),
			Source:   "model",
		}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "domain-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := testRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventMediaDeleteRequested,
		AggregateType: enums.AggregateUser,
		AggregateID:   uuid.New(),
		Payload:       encodeEnvelope(t, payloads.MediaDeleteRequestedEvent{}),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsUnknownType(t *testing.T) {
	reg := testRegistry(t)

	event := models.OutboxEvent{
		EventType:     "something_else",
		AggregateType: enums.AggregateMedia,
		AggregateID:   uuid.New(),
	}

	var nonRetry NonRetryableError
	if _, err := reg.Resolve(event); !errors.As(err, &nonRetry) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
