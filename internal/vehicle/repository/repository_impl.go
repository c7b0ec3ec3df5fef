package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	dbutil "github.com/rubicondrive/dealerdesk/pkg/db"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vehicle *domain.Vehicle) error {
	return db.WithContext(ctx).Create(vehicle).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, vehicle *domain.Vehicle) error {
	return db.WithContext(ctx).Save(vehicle).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Vehicle{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListVehiclesFilter, page pagination.Pagination) ([]*domain.Vehicle, error) {
	var vehicles []*domain.Vehicle
	stmt := db.WithContext(ctx).Model(&domain.Vehicle{})

	if filter.MakeID != "" {
		stmt = stmt.Where("make_id = ?", filter.MakeID)
	}
	if filter.ModelID != "" {
		stmt = stmt.Where("model_id = ?", filter.ModelID)
	}
	if filter.StatusID != "" {
		stmt = stmt.Where("status_id = ?", filter.StatusID)
	}
	if filter.Condition != "" {
		stmt = stmt.Where("condition = ?", filter.Condition)
	}
	if filter.Featured != nil {
		stmt = stmt.Where("featured = ?", *filter.Featured)
	}
	if filter.YearFrom > 0 {
		stmt = stmt.Where("year >= ?", filter.YearFrom)
	}
	if filter.YearTo > 0 {
		stmt = stmt.Where("year <= ?", filter.YearTo)
	}
	if filter.PriceMin != nil {
		stmt = stmt.Where("list_price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		stmt = stmt.Where("list_price <= ?", *filter.PriceMax)
	}

	order := "created_at desc, id desc"
	cursorCond := "(created_at < ?) OR (created_at = ? AND id < ?)"
	if filter.Sort == domain.SortOldest {
		order = "created_at asc, id asc"
		cursorCond = "(created_at > ?) OR (created_at = ? AND id > ?)"
	}

	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor != nil {
			if createdAt, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
				stmt = stmt.Where(cursorCond, createdAt, createdAt, cursor.ID)
			}
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}

	err := stmt.
		Order(order).
		Limit(limit + 1).
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *repo) NextStockSequence(ctx context.Context, db *gorm.DB, year int) (int64, error) {
	var seq int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE stock_counters SET seq = seq + 1 WHERE year = ?`, year)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Exec(`INSERT INTO stock_counters (year, seq) VALUES (?, 1)`, year).Error; err != nil {
				if !dbutil.IsDuplicateKeyErr(err) {
					return err
				}
				// Lost the insert race; bump the row the winner created.
				if err := tx.Exec(`UPDATE stock_counters SET seq = seq + 1 WHERE year = ?`, year).Error; err != nil {
					return err
				}
			}
		}
		return tx.Raw(`SELECT seq FROM stock_counters WHERE year = ?`, year).Scan(&seq).Error
	})
	return seq, err
}

func (r *repo) MarkSold(ctx context.Context, db *gorm.DB, vehicleID, statusID, saleTxID snowflake.ID, salePrice float64, soldAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vehicles
		 SET status_id = ?, sale_transaction_id = ?, actual_sale_price = ?, sold_date = ?, updated_at = ?
		 WHERE id = ? AND status_id <> ?`,
		statusID,
		saleTxID,
		salePrice,
		soldAt,
		soldAt,
		vehicleID,
		statusID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
