// Package domain contains the read-only lookup entities the vehicle engine
// resolves against: makes, models, body types, fuels, transmissions,
// drivetrains and lifecycle statuses.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Make struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Make) TableName() string { return "makes" }

type Model struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	MakeID    snowflake.ID `json:"make_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Model) TableName() string { return "models" }

type VehicleType struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (VehicleType) TableName() string { return "vehicle_types" }

type FuelType struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FuelType) TableName() string { return "fuel_types" }

type Transmission struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Transmission) TableName() string { return "transmissions" }

type DriveType struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DriveType) TableName() string { return "drive_types" }

// Status is a vehicle lifecycle status row. The sales engine depends on a
// row whose code or name is case-insensitively "sold"; its absence degrades
// the sale-completion side effect to a logged warning.
type Status struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Code         string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Slug         string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	DisplayColor string       `json:"display_color,omitempty" gorm:"type:text"`
	IsDefault    bool         `json:"is_default" gorm:"not null;default:false"`
	IsActive     bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Status) TableName() string { return "statuses" }
