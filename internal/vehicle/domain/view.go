package domain

import "time"

// Profile selects the redaction level of a composed vehicle view.
type Profile string

const (
	// ProfilePublicSlug always strips the internal block. Storefront only.
	ProfilePublicSlug Profile = "public_slug"
	// ProfilePublicID strips internal notes and target profit but keeps
	// acquisition cost and the derived profit fields.
	ProfilePublicID Profile = "public_id"
	// ProfileInternal keeps the internal block unredacted.
	ProfileInternal Profile = "internal"
)

// ResolveDepth selects how much of each referenced lookup is inlined.
type ResolveDepth string

const (
	// ResolveFull inlines all nested detail. Single-record fetches.
	ResolveFull ResolveDepth = "full"
	// ResolveLight inlines name/slug only, bounding payload size for the
	// slug-keyed public path and list pagination.
	ResolveLight ResolveDepth = "light"
)

// Ref is an inlined lookup projection. A dangling reference yields
// Resolved=false rather than failing the read.
type Ref struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Resolved bool   `json:"resolved"`
}

// StatusRef extends Ref with lifecycle display fields; the extras are
// populated on full resolution only.
type StatusRef struct {
	Ref
	DisplayColor string `json:"display_color,omitempty"`
	IsDefault    bool   `json:"is_default,omitempty"`
	IsActive     bool   `json:"is_active,omitempty"`
}

type EngineView struct {
	FuelType      Ref     `json:"fuel_type"`
	Cylinders     int     `json:"cylinders,omitempty"`
	DisplacementL float64 `json:"displacement_l,omitempty"`
}

type TransmissionView struct {
	Type   Ref `json:"type"`
	Speeds int `json:"speeds,omitempty"`
}

type OdometerView struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

type PricingView struct {
	ListPrice float64 `json:"list_price"`
	Currency  string  `json:"currency"`
	TaxRate   float64 `json:"tax_rate,omitempty"`
}

// InternalView is the authorization-gated block. ProfitLoss and
// ProfitMargin are derived at read time and never persisted.
type InternalView struct {
	StockNumber       string     `json:"stock_number"`
	AcquisitionDate   *time.Time `json:"acquisition_date,omitempty"`
	AcquisitionCost   *float64   `json:"acquisition_cost,omitempty"`
	ActualSalePrice   *float64   `json:"actual_sale_price,omitempty"`
	SoldDate          *time.Time `json:"sold_date,omitempty"`
	SaleTransactionID string     `json:"sale_transaction_id,omitempty"`
	SalespersonID     string     `json:"salesperson_id,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	TargetProfit      *float64   `json:"target_profit,omitempty"`
	ProfitLoss        float64    `json:"profit_loss"`
	ProfitMargin      float64    `json:"profit_margin"`
}

type MarketingView struct {
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Featured    bool     `json:"featured"`
	Keywords    []string `json:"keywords,omitempty"`
}

// VehicleView is the composed, redacted read model handed to the HTTP layer.
type VehicleView struct {
	ID           string           `json:"id"`
	VIN          string           `json:"vin,omitempty"`
	Year         int              `json:"year"`
	Trim         string           `json:"trim,omitempty"`
	Condition    Condition        `json:"condition"`
	Make         Ref              `json:"make"`
	Model        Ref              `json:"model"`
	VehicleType  Ref              `json:"vehicle_type"`
	Status       StatusRef        `json:"status"`
	DriveType    Ref              `json:"drive_type"`
	Engine       EngineView       `json:"engine"`
	Transmission TransmissionView `json:"transmission"`
	Odometer     OdometerView     `json:"odometer"`
	Pricing      PricingView      `json:"pricing"`
	Marketing    MarketingView    `json:"marketing"`
	Images       []string         `json:"images"`
	Internal     *InternalView    `json:"internal,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
