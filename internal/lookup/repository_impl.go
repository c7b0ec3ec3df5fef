package lookup

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) FindMake(ctx context.Context, id snowflake.ID) (*domain.Make, error) {
	var row domain.Make
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM makes WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindModel(ctx context.Context, id snowflake.ID) (*domain.Model, error) {
	var row domain.Model
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, make_id, name, slug FROM models WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindVehicleType(ctx context.Context, id snowflake.ID) (*domain.VehicleType, error) {
	var row domain.VehicleType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM vehicle_types WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindFuelType(ctx context.Context, id snowflake.ID) (*domain.FuelType, error) {
	var row domain.FuelType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM fuel_types WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindTransmission(ctx context.Context, id snowflake.ID) (*domain.Transmission, error) {
	var row domain.Transmission
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM transmissions WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindDriveType(ctx context.Context, id snowflake.ID) (*domain.DriveType, error) {
	var row domain.DriveType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM drive_types WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindStatus(ctx context.Context, id snowflake.ID) (*domain.Status, error) {
	var row domain.Status
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, code, slug, display_color, is_default, is_active FROM statuses WHERE id = ?`, id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindRefs(ctx context.Context, keys domain.RefKeys) ([]domain.RefRow, error) {
	var rows []domain.RefRow
	err := r.db.WithContext(ctx).
		Raw(`SELECT 'make' AS kind, id, name, slug FROM makes WHERE id = ?
		 UNION ALL SELECT 'model', id, name, slug FROM models WHERE id = ?
		 UNION ALL SELECT 'vehicle_type', id, name, slug FROM vehicle_types WHERE id = ?
		 UNION ALL SELECT 'status', id, name, slug FROM statuses WHERE id = ?
		 UNION ALL SELECT 'drive_type', id, name, slug FROM drive_types WHERE id = ?
		 UNION ALL SELECT 'fuel_type', id, name, slug FROM fuel_types WHERE id = ?
		 UNION ALL SELECT 'transmission', id, name, slug FROM transmissions WHERE id = ?`,
			keys.MakeID,
			keys.ModelID,
			keys.VehicleTypeID,
			keys.StatusID,
			keys.DriveTypeID,
			keys.FuelTypeID,
			keys.TransmissionID,
		).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindSoldStatus(ctx context.Context) (*domain.Status, error) {
	var row domain.Status
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, code, slug, display_color, is_default, is_active
		 FROM statuses WHERE LOWER(code) = 'sold' OR LOWER(name) = 'sold' OR LOWER(slug) = 'sold'
		 LIMIT 1`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) FindDefaultStatus(ctx context.Context) (*domain.Status, error) {
	var row domain.Status
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, code, slug, display_color, is_default, is_active
		 FROM statuses WHERE is_default = true LIMIT 1`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repository) ListMakes(ctx context.Context) ([]domain.Make, error) {
	var rows []domain.Make
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM makes ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListModelsByMake(ctx context.Context, makeID snowflake.ID) ([]domain.Model, error) {
	var rows []domain.Model
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, make_id, name, slug FROM models WHERE make_id = ? ORDER BY name`, makeID).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListVehicleTypes(ctx context.Context) ([]domain.VehicleType, error) {
	var rows []domain.VehicleType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM vehicle_types ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListFuelTypes(ctx context.Context) ([]domain.FuelType, error) {
	var rows []domain.FuelType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM fuel_types ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListTransmissions(ctx context.Context) ([]domain.Transmission, error) {
	var rows []domain.Transmission
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM transmissions ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListDriveTypes(ctx context.Context) ([]domain.DriveType, error) {
	var rows []domain.DriveType
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, slug FROM drive_types ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	var rows []domain.Status
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, name, code, slug, display_color, is_default, is_active FROM statuses ORDER BY name`).
		Scan(&rows).Error
	return rows, err
}
