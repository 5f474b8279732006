package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Identity is a credential record. It deliberately lives apart from the
// user profile: registration creates the identity first and compensates by
// deleting it when the profile transaction fails.
type Identity struct {
	UserID       snowflake.ID `gorm:"primaryKey" json:"user_id"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Identity) TableName() string { return "identities" }

type Service interface {
	// Create registers a credential and returns the new user id.
	Create(ctx context.Context, email, password string) (snowflake.ID, error)
	// Delete removes a credential; used as the compensating action when a
	// follow-up registration step fails.
	Delete(ctx context.Context, userID snowflake.ID) error
	// Verify checks email+password and returns the owning user id.
	Verify(ctx context.Context, email, password string) (snowflake.ID, error)
	// ChangePassword replaces the stored hash after verifying the old one.
	ChangePassword(ctx context.Context, userID snowflake.ID, oldPassword, newPassword string) error
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrEmailExists        = errors.New("email_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotFound           = errors.New("identity_not_found")
)
