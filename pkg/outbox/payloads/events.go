package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// MediaDeleteRequestedEvent asks the media worker to remove an object from
// storage and finalize the media row.
type MediaDeleteRequestedEvent struct {
	MediaID uuid.UUID       `json:"media_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Kind    enums.MediaKind `json:"kind"`
	GCSKey  string          `json:"gcs_key"`
}

// UserDeletedEvent announces that an account and its owned data were removed.
type UserDeletedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deleted_at"`
}

// OutfitGeneratedEvent records a completed generation for downstream
// consumers. Source distinguishes the model path from the random fallback.
type OutfitGeneratedEvent struct {
	OutfitID  uuid.UUID   `json:"outfit_id"`
	UserID    uuid.UUID   `json:"user_id"`
	ItemIDs   []uuid.UUID `json:"item_ids"`
	Source    string      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
}
