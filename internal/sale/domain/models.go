// Package domain contains the sales transaction models and service
// contracts for the reconciliation workflow.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the sales transaction lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether value is a known lifecycle state.
func ValidStatus(value Status) bool {
	switch value {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Vehicle sync outcomes. A completed transaction carries exactly one of
// these so drifted records stay queryable instead of silently lost.
const (
	SyncPending       = "pending"
	SyncApplied       = "applied"
	SyncSkipped       = "skipped"
	SyncMissingStatus = "missing_status"
	SyncFailed        = "failed"
)

// SalesTransaction records one vehicle sale from intake through closing.
// Derived money fields (tax, gross, total, margin) are recomputed from the
// inputs on every write, never patched directly.
type SalesTransaction struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	VehicleID snowflake.ID `gorm:"not null;index"`

	CustomerName  string `gorm:"type:text;not null"`
	CustomerEmail string `gorm:"type:text"`

	SalePrice   float64  `gorm:"not null"`
	Currency    string   `gorm:"type:text;not null;default:'CAD'"`
	CostOfGoods *float64
	Margin      *float64
	Discount    float64  `gorm:"not null;default:0"`
	TaxRate     float64  `gorm:"not null;default:0"`
	TaxAmount   float64  `gorm:"not null;default:0"`
	GrossPrice  float64  `gorm:"not null;default:0"`
	TotalPrice  float64  `gorm:"not null;default:0"`

	Status   Status     `gorm:"type:text;not null;default:'pending';index"`
	ClosedAt *time.Time

	SalespersonID *snowflake.ID
	Notes         string `gorm:"type:text"`

	// VehicleSync tracks whether the vehicle record absorbed this sale.
	VehicleSync string `gorm:"type:text;not null;default:'pending';index"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SalesTransaction) TableName() string { return "sales_transactions" }
