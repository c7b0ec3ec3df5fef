package domain

import (
	"context"
	"errors"
	"time"

	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
)

type CreateVehicleRequest struct {
	VIN           string
	Year          int
	Trim          string
	MakeID        string
	ModelID       string
	VehicleTypeID string
	StatusID      string
	DriveTypeID   string

	FuelTypeID         string
	EngineCylinders    int
	EngineDisplacement float64
	TransmissionTypeID string
	TransmissionSpeeds int

	OdometerValue int64
	OdometerUnit  string
	Condition     Condition

	ListPrice float64
	Currency  string
	TaxRate   float64

	AcquisitionDate *time.Time
	AcquisitionCost *float64
	SalespersonID   string
	InternalNotes   string
	TargetProfit    *float64

	Description string
	Featured    bool
	Keywords    []string
	Images      []string
}

// UpdateVehicleRequest is a patch: nil pointers leave fields untouched.
// The stock number is immutable and has no patch field.
type UpdateVehicleRequest struct {
	ID string

	VIN           *string
	Year          *int
	Trim          *string
	MakeID        *string
	ModelID       *string
	VehicleTypeID *string
	StatusID      *string
	DriveTypeID   *string

	FuelTypeID         *string
	EngineCylinders    *int
	EngineDisplacement *float64
	TransmissionTypeID *string
	TransmissionSpeeds *int

	OdometerValue *int64
	OdometerUnit  *string
	Condition     *Condition

	ListPrice *float64
	Currency  *string
	TaxRate   *float64

	AcquisitionDate *time.Time
	AcquisitionCost *float64
	ActualSalePrice *float64
	SalespersonID   *string
	InternalNotes   *string
	TargetProfit    *float64

	Description *string
	Featured    *bool
	Keywords    []string
	Images      []string
}

type GetVehicleRequest struct {
	ID string
}

type DeleteVehicleRequest struct {
	ID string
}

// List sort orders. Both ride the (created_at, id) keyset cursor; other
// columns are not sortable because the cursor does not encode them.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

type ListVehiclesRequest struct {
	PageToken string
	PageSize  int32
	Sort      string

	MakeID    string
	ModelID   string
	StatusID  string
	Condition string
	Featured  *bool
	YearFrom  int
	YearTo    int
	PriceMin  *float64
	PriceMax  *float64
}

type ListVehiclesFilter struct {
	Sort      string
	MakeID    string
	ModelID   string
	StatusID  string
	Condition string
	Featured  *bool
	YearFrom  int
	YearTo    int
	PriceMin  *float64
	PriceMax  *float64
}

type ListVehiclesResponse struct {
	pagination.PageInfo
	Vehicles []VehicleView `json:"vehicles"`
}

// Service composes authorization-scoped vehicle views and owns catalog
// writes, including stock number and slug assignment.
type Service interface {
	GetView(ctx context.Context, req GetVehicleRequest) (VehicleView, error)
	GetViewBySlug(ctx context.Context, slug string) (VehicleView, error)
	List(ctx context.Context, req ListVehiclesRequest) (ListVehiclesResponse, error)
	Create(ctx context.Context, req CreateVehicleRequest) (VehicleView, error)
	Update(ctx context.Context, req UpdateVehicleRequest) (VehicleView, error)
	Delete(ctx context.Context, req DeleteVehicleRequest) error
}

var (
	ErrNotFound         = errors.New("vehicle_not_found")
	ErrConflict         = errors.New("vehicle_conflict")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidYear      = errors.New("invalid_year")
	ErrInvalidMake      = errors.New("invalid_make")
	ErrInvalidModel     = errors.New("invalid_model")
	ErrInvalidCondition = errors.New("invalid_condition")
	ErrInvalidListPrice = errors.New("invalid_list_price")
	ErrImagesRequired   = errors.New("images_required")
	ErrInvalidSlug      = errors.New("invalid_slug")
)
