package importantdays

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
)

// ImportantDayDTO is the wire representation of a tracked date.
type ImportantDayDTO struct {
	ID          uuid.UUID      `json:"id"`
	Date        time.Time      `json:"date"`
	Name        *string        `json:"name,omitempty"`
	Occasion    enums.Occasion `json:"occasion"`
	RawOccasion string         `json:"raw_occasion,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateDayInput models a new tracked date. Occasion carries the submitted
// label as-is; normalization happens in the service.
type CreateDayInput struct {
	Date     time.Time
	Name     *string
	Occasion string
	Notes    *string
}

// UpdateDayInput is a partial update; nil fields are left untouched.
type UpdateDayInput struct {
	Date     *time.Time
	Name     *string
	Occasion *string
	Notes    *string
}

func ToDayDTO(day models.ImportantDay) ImportantDayDTO {
	return ImportantDayDTO{
		ID:          day.ID,
		Date:        day.Date,
		Name:        day.Name,
		Occasion:    day.Occasion,
		RawOccasion: day.RawOccasion,
		Notes:       day.Notes,
		CreatedAt:   day.CreatedAt,
		UpdatedAt:   day.UpdatedAt,
	}
}

func ToDayDTOs(days []models.ImportantDay) []ImportantDayDTO {
	out := make([]ImportantDayDTO, 0, len(days))
	for _, day := range days {
		out = append(out, ToDayDTO(day))
	}
	return out
}
