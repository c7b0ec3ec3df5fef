package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vehicle *Vehicle) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vehicle, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Vehicle, error)
	Update(ctx context.Context, db *gorm.DB, vehicle *Vehicle) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListVehiclesFilter, page pagination.Pagination) ([]*Vehicle, error)

	// NextStockSequence atomically increments and returns the stock number
	// sequence for the given calendar year.
	NextStockSequence(ctx context.Context, db *gorm.DB, year int) (int64, error)

	// MarkSold stamps the sale transaction outcome onto the vehicle,
	// conditioned on the lifecycle status not already matching: the write
	// happens at most once per completed transaction. Returns whether a
	// row was written.
	MarkSold(ctx context.Context, db *gorm.DB, vehicleID, statusID, saleTxID snowflake.ID, salePrice float64, soldAt time.Time) (bool, error)
}
