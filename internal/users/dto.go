package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/pkg/db/models"
)

// ProfileDTO is the transport shape of a user account. It omits credential
// and token material.
type ProfileDTO struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
	FavoriteColors  []string   `json:"favorite_colors"`
	StyleTags       []string   `json:"style_tags"`
	EmailVerified   bool       `json:"email_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpdateProfileInput carries the mutable profile fields. Nil means leave
// unchanged.
type UpdateProfileInput struct {
	Username *string `json:"username"`
}

// PreferencesInput replaces the user's styling preferences wholesale.
type PreferencesInput struct {
	FavoriteColors []string `json:"favorite_colors"`
	StyleTags      []string `json:"style_tags"`
}

// ChangePasswordInput carries a password rotation request.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ToProfileDTO maps the persistence model onto the transport shape.
func ToProfileDTO(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}

	return &ProfileDTO{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		ProfileImageURL: u.ProfileImageURL,
		FavoriteColors:  append([]string(nil), u.FavoriteColors...),
		StyleTags:       append([]string(nil), u.StyleTags...),
		EmailVerified:   u.EmailVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
