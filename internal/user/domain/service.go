package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateDistributorRequest struct {
	Email     string
	Name      string
	Phone     string
	CountryID string
	Password  string
}

type AssignCountryAdminRequest struct {
	Email     string
	Name      string
	Phone     string
	CountryID string
	Password  string
}

type ListUsersRequest struct {
	CountryID string
	Role      Role
}

type Service interface {
	// CreateDistributor provisions a distributor account (identity +
	// profile). Callers must hold the super_admin or admin_country role.
	CreateDistributor(ctx context.Context, req CreateDistributorRequest) (User, error)
	// AssignCountryAdmin provisions the single admin for a country.
	// Super-admin only; a second admin for the same country is rejected.
	AssignCountryAdmin(ctx context.Context, req AssignCountryAdminRequest) (User, error)
	// DeleteCountryAdmin removes a country admin profile and its identity.
	DeleteCountryAdmin(ctx context.Context, userID snowflake.ID) error
	GetByID(ctx context.Context, userID snowflake.ID) (User, error)
	List(ctx context.Context, req ListUsersRequest) ([]User, error)
}

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidCountry   = errors.New("invalid_country")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrNotFound         = errors.New("user_not_found")
	ErrAdminExists      = errors.New("country_admin_exists")
	ErrNotCountryAdmin  = errors.New("not_country_admin")
	ErrPermissionDenied = errors.New("permission_denied")
)
