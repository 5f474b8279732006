package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type Session struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Session) TableName() string { return "sessions" }

type LoginResult struct {
	Session Session
	User    userdomain.User
}

type Service interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	// Authenticate resolves a session token to its user, rejecting expired
	// or unknown sessions.
	Authenticate(ctx context.Context, token string) (userdomain.User, error)
	Logout(ctx context.Context, token string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
)
