package migration

import (
	"github.com/smallbiznis/cielo/internal/config"
	"github.com/smallbiznis/cielo/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres (sqlite dev mode) falls back to AutoMigrate.
			if err := seed.AutoMigrate(conn); err != nil {
				return err
			}
		}

		if err := seed.EnsureSuperAdmin(conn); err != nil {
			return err
		}
		if cfg.SeedDemoCatalog {
			return seed.EnsureDemoCatalog(conn)
		}
		return nil
	}),
)
