package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *SalesTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SalesTransaction, error)
	Update(ctx context.Context, db *gorm.DB, tx *SalesTransaction) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListSalesFilter, page pagination.Pagination) ([]*SalesTransaction, error)

	// SetVehicleSync stamps the sync outcome without touching other fields.
	SetVehicleSync(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string) error

	// SummarizeByStatus aggregates count, revenue, gross volume, and margin
	// per lifecycle state, narrowed by the filter.
	SummarizeByStatus(ctx context.Context, db *gorm.DB, filter SummarizeSalesFilter) ([]StatusSummary, error)

	// ListCompletedUnsynced returns completed transactions whose sync
	// outcome is neither applied nor skipped.
	ListCompletedUnsynced(ctx context.Context, db *gorm.DB) ([]*SalesTransaction, error)
}
