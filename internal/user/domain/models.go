package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleCountryAdmin Role = "admin_country"
	RoleDistributor  Role = "distributor"
	RoleStore        Role = "store"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCountryAdmin, RoleDistributor, RoleStore:
		return true
	default:
		return false
	}
}

type UserStatus string

const (
	UserStatusActive              UserStatus = "active"
	UserStatusPendingRegistration UserStatus = "pending_registration"
)

// User is the profile record; credentials live in the identities table.
// Role is immutable once assigned.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Email         string       `gorm:"not null;uniqueIndex" json:"email"`
	Name          string       `gorm:"not null" json:"name"`
	Phone         string       `gorm:"not null;default:''" json:"phone"`
	Role          Role         `gorm:"type:text;not null" json:"role"`
	CountryID     string       `gorm:"type:text;not null;default:'';index:ix_users_country_role,priority:1" json:"country_id"`
	DistributorID string       `gorm:"type:text;not null;default:''" json:"distributor_id,omitempty"`
	Status        UserStatus   `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }
