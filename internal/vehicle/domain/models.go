// Package domain contains the vehicle catalog models and service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Condition classifies the vehicle's sale condition.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionUsed      Condition = "used"
	ConditionCertified Condition = "certified_pre_owned"
)

// ValidCondition reports whether value is a known condition.
func ValidCondition(value Condition) bool {
	switch value {
	case ConditionNew, ConditionUsed, ConditionCertified:
		return true
	default:
		return false
	}
}

// Vehicle is the persisted catalog record. Foreign references stay raw ids
// here; the read path inlines lookup projections at composition time.
type Vehicle struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	VIN  *string      `gorm:"column:vin;type:text;uniqueIndex"`
	Year int          `gorm:"not null"`
	Trim string       `gorm:"type:text"`

	MakeID        snowflake.ID `gorm:"not null;index"`
	ModelID       snowflake.ID `gorm:"not null;index"`
	VehicleTypeID snowflake.ID `gorm:"index"`
	StatusID      snowflake.ID `gorm:"index"`
	DriveTypeID   snowflake.ID `gorm:"index"`

	// Engine.
	FuelTypeID         snowflake.ID `gorm:"index"`
	EngineCylinders    int
	EngineDisplacement float64

	// Transmission.
	TransmissionTypeID snowflake.ID `gorm:"index"`
	TransmissionSpeeds int

	OdometerValue int64     `gorm:"not null;default:0"`
	OdometerUnit  string    `gorm:"type:text;not null;default:'km'"`
	Condition     Condition `gorm:"type:text;not null"`

	// Pricing block.
	ListPrice float64 `gorm:"not null"`
	Currency  string  `gorm:"type:text;not null;default:'CAD'"`
	TaxRate   float64 `gorm:"not null;default:0"`

	// Internal block. StockNumber is immutable once assigned.
	StockNumber       string        `gorm:"type:text;not null;uniqueIndex"`
	AcquisitionDate   *time.Time
	AcquisitionCost   *float64
	ActualSalePrice   *float64
	SoldDate          *time.Time
	SaleTransactionID *snowflake.ID `gorm:"index"`
	SalespersonID     *snowflake.ID
	InternalNotes     string        `gorm:"type:text"`
	TargetProfit      *float64

	// Marketing block. Slug derives from year+make+model+stock number and
	// is regenerated only when one of those inputs changes.
	Slug        string                      `gorm:"type:text;not null;uniqueIndex"`
	Description string                      `gorm:"type:text"`
	Featured    bool                        `gorm:"not null;default:false"`
	Keywords    datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	Images datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Vehicle) TableName() string { return "vehicles" }
