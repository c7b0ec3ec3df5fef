package migration

import (
	"github.com/rubicondrive/dealerdesk/internal/config"
	"github.com/rubicondrive/dealerdesk/internal/seed"
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
			// sqlite and mysql deployments rely on the model schema.
			if err := conn.AutoMigrate(seed.Models()...); err != nil {
				return err
			}
		}

		return seed.EnsureLookupData(conn)
	}),
)
