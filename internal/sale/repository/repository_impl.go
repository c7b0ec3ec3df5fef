package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/internal/sale/domain"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.SalesTransaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SalesTransaction, error) {
	var tx domain.SalesTransaction
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tx *domain.SalesTransaction) error {
	return db.WithContext(ctx).Save(tx).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.SalesTransaction{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSalesFilter, page pagination.Pagination) ([]*domain.SalesTransaction, error) {
	var txs []*domain.SalesTransaction
	stmt := db.WithContext(ctx).Model(&domain.SalesTransaction{})

	if filter.VehicleID != "" {
		stmt = stmt.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.VehicleSync != "" {
		stmt = stmt.Where("vehicle_sync = ?", filter.VehicleSync)
	}

	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor != nil {
			if createdAt, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
				stmt = stmt.Where(
					"(created_at < ?) OR (created_at = ? AND id < ?)",
					createdAt, createdAt, cursor.ID,
				)
			}
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}

	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repo) SetVehicleSync(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sales_transactions SET vehicle_sync = ?, updated_at = ? WHERE id = ?`,
		outcome,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SummarizeByStatus(ctx context.Context, db *gorm.DB, filter domain.SummarizeSalesFilter) ([]domain.StatusSummary, error) {
	var rows []domain.StatusSummary
	stmt := db.WithContext(ctx).
		Model(&domain.SalesTransaction{}).
		Select(`status,
			COUNT(*) AS count,
			COALESCE(SUM(total_price), 0) AS revenue,
			COALESCE(SUM(gross_price), 0) AS gross_volume,
			COALESCE(SUM(margin), 0) AS total_margin`)

	if filter.VehicleID != "" {
		stmt = stmt.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}

	err := stmt.
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListCompletedUnsynced(ctx context.Context, db *gorm.DB) ([]*domain.SalesTransaction, error) {
	var txs []*domain.SalesTransaction
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusCompleted).
		Where("vehicle_sync NOT IN ?", []string{domain.SyncApplied, domain.SyncSkipped}).
		Order("created_at desc").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
