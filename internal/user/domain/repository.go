package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindCountryAdmin(ctx context.Context, db *gorm.DB, countryID string) (*User, error)
	List(ctx context.Context, db *gorm.DB, countryID string, role Role) ([]*User, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
