package domain

import (
	"context"
	"errors"
	"time"

	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
)

type CreateSaleRequest struct {
	VehicleID     string
	CustomerName  string
	CustomerEmail string
	SalePrice     float64
	Currency      string
	CostOfGoods   *float64
	Discount      float64
	TaxRate       float64
	SalespersonID string
	Notes         string
}

// UpdateSaleRequest is a patch: nil pointers leave fields untouched.
// Status is not patchable; lifecycle moves go through Complete and Cancel.
type UpdateSaleRequest struct {
	ID string

	CustomerName  *string
	CustomerEmail *string
	SalePrice     *float64
	Currency      *string
	CostOfGoods   *float64
	Discount      *float64
	TaxRate       *float64
	SalespersonID *string
	Notes         *string
}

type GetSaleRequest struct {
	ID string
}

type DeleteSaleRequest struct {
	ID string
}

type CompleteSaleRequest struct {
	ID string
}

type CancelSaleRequest struct {
	ID string
}

type ListSalesRequest struct {
	PageToken string
	PageSize  int32

	VehicleID   string
	Status      string
	VehicleSync string
}

type ListSalesFilter struct {
	VehicleID   string
	Status      string
	VehicleSync string
}

type ListSalesResponse struct {
	pagination.PageInfo
	Transactions []*SalesTransaction `json:"transactions"`
}

// SummarizeSalesRequest narrows the sales report. Zero values mean
// unfiltered; To is exclusive.
type SummarizeSalesRequest struct {
	VehicleID string
	Status    string
	From      *time.Time
	To        *time.Time
}

type SummarizeSalesFilter struct {
	VehicleID string
	Status    string
	From      *time.Time
	To        *time.Time
}

// StatusSummary is one aggregation bucket of the sales report.
type StatusSummary struct {
	Status      Status  `json:"status"`
	Count       int64   `json:"count"`
	Revenue     float64 `json:"revenue"`
	GrossVolume float64 `json:"gross_volume"`
	TotalMargin float64 `json:"total_margin"`
}

// Service owns the sales transaction lifecycle. Complete is the only
// operation with a side effect on the vehicle catalog.
type Service interface {
	Create(ctx context.Context, req CreateSaleRequest) (*SalesTransaction, error)
	Get(ctx context.Context, req GetSaleRequest) (*SalesTransaction, error)
	List(ctx context.Context, req ListSalesRequest) (ListSalesResponse, error)
	Update(ctx context.Context, req UpdateSaleRequest) (*SalesTransaction, error)
	Complete(ctx context.Context, req CompleteSaleRequest) (*SalesTransaction, error)
	Cancel(ctx context.Context, req CancelSaleRequest) (*SalesTransaction, error)
	Delete(ctx context.Context, req DeleteSaleRequest) error
	Summarize(ctx context.Context, req SummarizeSalesRequest) ([]StatusSummary, error)

	// ListCompletedUnsynced returns completed transactions whose vehicle
	// record never absorbed the sale, for operator reconciliation.
	ListCompletedUnsynced(ctx context.Context) ([]*SalesTransaction, error)
}

var (
	ErrNotFound          = errors.New("sale_not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidVehicle    = errors.New("invalid_vehicle")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidSalePrice  = errors.New("invalid_sale_price")
	ErrInvalidDiscount   = errors.New("invalid_discount")
	ErrInvalidTaxRate    = errors.New("invalid_tax_rate")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotPending        = errors.New("sale_not_pending")
)
