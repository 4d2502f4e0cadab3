package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"type:text;not null;uniqueIndex"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`

	ProfileImageURL *string `gorm:"column:profile_image_url"`
	ProfileImageKey *string `gorm:"column:profile_image_key"`

	FavoriteColors pq.StringArray `gorm:"type:text[];column:favorite_colors;not null;default:ARRAY[]::text[]"`
	StyleTags      pq.StringArray `gorm:"type:text[];column:style_tags;not null;default:ARRAY[]::text[]"`

	EmailVerified        bool       `gorm:"column:email_verified;not null;default:false"`
	EmailVerifyToken     *string    `gorm:"column:email_verify_token"`
	EmailVerifyExpiresAt *time.Time `gorm:"column:email_verify_expires_at"`

	PasswordResetToken     *string    `gorm:"column:password_reset_token"`
	PasswordResetExpiresAt *time.Time `gorm:"column:password_reset_expires_at"`

	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
