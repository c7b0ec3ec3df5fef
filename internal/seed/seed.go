// Package seed bootstraps the lookup reference data a fresh deployment
// needs before the first vehicle can be created.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	lookupdomain "github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	saledomain "github.com/rubicondrive/dealerdesk/internal/sale/domain"
	vehicledomain "github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"gorm.io/gorm"
)

// Models returns every persisted model, for AutoMigrate on non-postgres
// deployments.
func Models() []any {
	return []any{
		&lookupdomain.Make{},
		&lookupdomain.Model{},
		&lookupdomain.VehicleType{},
		&lookupdomain.FuelType{},
		&lookupdomain.Transmission{},
		&lookupdomain.DriveType{},
		&lookupdomain.Status{},
		&vehicledomain.Vehicle{},
		&saledomain.SalesTransaction{},
		&stockCounter{},
	}
}

type stockCounter struct {
	Year int   `gorm:"primaryKey"`
	Seq  int64 `gorm:"not null;default:0"`
}

func (stockCounter) TableName() string { return "stock_counters" }

// EnsureLookupData seeds the lifecycle statuses and a starter set of makes
// and models. Inserts are idempotent; existing rows are left alone.
func EnsureLookupData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureStatuses(ctx, tx, node); err != nil {
			return err
		}
		if err := ensureMakesAndModels(ctx, tx, node); err != nil {
			return err
		}
		if err := ensureNamed(ctx, tx, node, &lookupdomain.VehicleType{}, "Sedan", "SUV", "Truck", "Coupe", "Hatchback", "Van"); err != nil {
			return err
		}
		if err := ensureNamed(ctx, tx, node, &lookupdomain.FuelType{}, "Gasoline", "Diesel", "Hybrid", "Electric"); err != nil {
			return err
		}
		if err := ensureNamed(ctx, tx, node, &lookupdomain.Transmission{}, "Automatic", "Manual", "CVT"); err != nil {
			return err
		}
		return ensureNamed(ctx, tx, node, &lookupdomain.DriveType{}, "FWD", "RWD", "AWD", "4WD")
	})
}

func ensureStatuses(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	statuses := []lookupdomain.Status{
		{Name: "Available", Code: "available", DisplayColor: "#16a34a", IsDefault: true, IsActive: true},
		{Name: "Pending", Code: "pending", DisplayColor: "#f59e0b", IsActive: true},
		{Name: "Sold", Code: "sold", DisplayColor: "#dc2626", IsActive: true},
	}

	for _, status := range statuses {
		var existing lookupdomain.Status
		err := tx.WithContext(ctx).
			Where("code = ?", status.Code).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		status.ID = node.Generate()
		status.Slug = slug.Make(status.Name)
		status.CreatedAt = time.Now().UTC()
		if err := tx.WithContext(ctx).Create(&status).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureMakesAndModels(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	catalog := map[string][]string{
		"Toyota":    {"Corolla", "Camry", "RAV4", "Tacoma"},
		"Honda":     {"Civic", "Accord", "CR-V"},
		"Ford":      {"F-150", "Escape", "Mustang"},
		"Chevrolet": {"Silverado", "Equinox"},
	}

	for makeName, models := range catalog {
		var makeRow lookupdomain.Make
		err := tx.WithContext(ctx).
			Where("slug = ?", slug.Make(makeName)).
			First(&makeRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			makeRow = lookupdomain.Make{
				ID:        node.Generate(),
				Name:      makeName,
				Slug:      slug.Make(makeName),
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.WithContext(ctx).Create(&makeRow).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		for _, modelName := range models {
			modelSlug := slug.Make(makeName + " " + modelName)
			var modelRow lookupdomain.Model
			err := tx.WithContext(ctx).
				Where("slug = ?", modelSlug).
				First(&modelRow).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			modelRow = lookupdomain.Model{
				ID:        node.Generate(),
				MakeID:    makeRow.ID,
				Name:      modelName,
				Slug:      modelSlug,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.WithContext(ctx).Create(&modelRow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

type namedRow interface {
	*lookupdomain.VehicleType | *lookupdomain.FuelType | *lookupdomain.Transmission | *lookupdomain.DriveType
}

func ensureNamed[T namedRow](ctx context.Context, tx *gorm.DB, node *snowflake.Node, model T, names ...string) error {
	for _, name := range names {
		nameSlug := slug.Make(name)

		var count int64
		if err := tx.WithContext(ctx).Model(model).Where("slug = ?", nameSlug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		row := map[string]any{
			"id":         node.Generate(),
			"name":       name,
			"slug":       nameSlug,
			"created_at": time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Model(model).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}
