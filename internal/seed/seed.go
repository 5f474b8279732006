package seed

import (
	"errors"
	"os"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/cielo/internal/audit/domain"
	authdomain "github.com/smallbiznis/cielo/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	identitydomain "github.com/smallbiznis/cielo/internal/identity/domain"
	invoicedomain "github.com/smallbiznis/cielo/internal/invoice/domain"
	ocrdomain "github.com/smallbiznis/cielo/internal/ocr/domain"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema from the entity definitions. Used for the
// sqlite dev mode and tests; postgres installs run the SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&userdomain.User{},
		&identitydomain.Identity{},
		&authdomain.Session{},
		&storedomain.Store{},
		&storedomain.StoreCode{},
		&invoicedomain.Invoice{},
		&pointsdomain.PointTransaction{},
		&catalogdomain.GlobalProduct{},
		&catalogdomain.CountryProduct{},
		&catalogdomain.GlobalReward{},
		&catalogdomain.CountryReward{},
		&rewarddomain.RewardClaim{},
		&rewarddomain.DistributorRewardStock{},
		&ocrdomain.Scan{},
		&auditdomain.AuditLog{},
	)
}

// EnsureSuperAdmin bootstraps the first super admin account when none
// exists, so a fresh install is immediately operable.
func EnsureSuperAdmin(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&userdomain.User{}).
		Where("role = ?", userdomain.RoleSuperAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := getenv("CIELO_SUPERADMIN_EMAIL", "admin@cielo.local")
	password := getenv("CIELO_SUPERADMIN_PASSWORD", "")
	if password == "" {
		return errors.New("CIELO_SUPERADMIN_PASSWORD is required to bootstrap the first super admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	node, err := snowflake.NewNode(0)
	if err != nil {
		return err
	}
	id := node.Generate()

	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userdomain.User{
			ID:     id,
			Email:  email,
			Name:   "Super Admin",
			Role:   userdomain.RoleSuperAdmin,
			Status: userdomain.UserStatusActive,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&identitydomain.Identity{
			UserID:       id,
			Email:        email,
			PasswordHash: string(hash),
		}).Error
	})
}

// EnsureDemoCatalog inserts the demo water products so points resolve from
// the catalog instead of the hardcoded fallback.
func EnsureDemoCatalog(conn *gorm.DB) error {
	products := []catalogdomain.GlobalProduct{
		{SKU: "AGUA-500", Name: "Agua Cielo 500ml", PointsPerUnit: 20},
		{SKU: "AGUA-1000", Name: "Agua Cielo 1L", PointsPerUnit: 35},
		{SKU: "AGUA-2500", Name: "Agua Cielo 2.5L", PointsPerUnit: 50},
	}

	node, err := snowflake.NewNode(0)
	if err != nil {
		return err
	}

	for _, product := range products {
		var count int64
		if err := conn.Model(&catalogdomain.GlobalProduct{}).
			Where("sku = ?", product.SKU).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		product.ID = node.Generate()
		product.Active = true
		if err := conn.Create(&product).Error; err != nil {
			return err
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
