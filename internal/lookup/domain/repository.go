package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// RefKeys carries one reference id per lookup kind for a batched
// name/slug projection. Zero ids match nothing.
type RefKeys struct {
	MakeID         snowflake.ID
	ModelID        snowflake.ID
	VehicleTypeID  snowflake.ID
	StatusID       snowflake.ID
	DriveTypeID    snowflake.ID
	FuelTypeID     snowflake.ID
	TransmissionID snowflake.ID
}

// RefRow is one projected reference: kind plus the fields a light view needs.
type RefRow struct {
	Kind string
	ID   snowflake.ID
	Name string
	Slug string
}

const (
	RefKindMake         = "make"
	RefKindModel        = "model"
	RefKindVehicleType  = "vehicle_type"
	RefKindStatus       = "status"
	RefKindDriveType    = "drive_type"
	RefKindFuelType     = "fuel_type"
	RefKindTransmission = "transmission"
)

// Repository is read-only access to lookup reference data. A nil result with
// a nil error means the reference does not exist; the resolver turns that
// into an unresolved marker instead of failing the read.
type Repository interface {
	FindMake(ctx context.Context, id snowflake.ID) (*Make, error)
	FindModel(ctx context.Context, id snowflake.ID) (*Model, error)
	FindVehicleType(ctx context.Context, id snowflake.ID) (*VehicleType, error)
	FindFuelType(ctx context.Context, id snowflake.ID) (*FuelType, error)
	FindTransmission(ctx context.Context, id snowflake.ID) (*Transmission, error)
	FindDriveType(ctx context.Context, id snowflake.ID) (*DriveType, error)
	FindStatus(ctx context.Context, id snowflake.ID) (*Status, error)

	// FindRefs projects name and slug for every kind in a single query.
	// Dangling ids simply produce no row.
	FindRefs(ctx context.Context, keys RefKeys) ([]RefRow, error)

	// FindSoldStatus returns the status whose code or name equals "sold"
	// case-insensitively, or nil when no such row exists.
	FindSoldStatus(ctx context.Context) (*Status, error)

	// FindDefaultStatus returns the status flagged is_default, or nil.
	FindDefaultStatus(ctx context.Context) (*Status, error)

	ListMakes(ctx context.Context) ([]Make, error)
	ListModelsByMake(ctx context.Context, makeID snowflake.ID) ([]Model, error)
	ListVehicleTypes(ctx context.Context) ([]VehicleType, error)
	ListFuelTypes(ctx context.Context) ([]FuelType, error)
	ListTransmissions(ctx context.Context) ([]Transmission, error)
	ListDriveTypes(ctx context.Context) ([]DriveType, error)
	ListStatuses(ctx context.Context) ([]Status, error)
}
