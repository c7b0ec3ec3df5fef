package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/config"
	"github.com/rubicondrive/dealerdesk/internal/lookup"
	"github.com/rubicondrive/dealerdesk/internal/sale/domain"
	"github.com/rubicondrive/dealerdesk/internal/sale/repository"
	vehiclerepository "github.com/rubicondrive/dealerdesk/internal/vehicle/repository"
	"github.com/rubicondrive/dealerdesk/internal/viewcache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type saleFixture struct {
	svc          domain.Service
	db           *gorm.DB
	clk          *clock.FakeClock
	node         *snowflake.Node
	vehicleID    snowflake.ID
	soldStatusID snowflake.ID
}

func setupSaleService(t *testing.T, withSoldStatus bool) *saleFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	prepareSaleSchema(t, db)

	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	f := &saleFixture{
		db:           db,
		clk:          clk,
		node:         node,
		vehicleID:    node.Generate(),
		soldStatusID: node.Generate(),
	}

	availableID := node.Generate()
	if err := db.Exec(
		`INSERT INTO statuses (id, name, code, slug, is_default, is_active)
		 VALUES (?, 'Available', 'available', 'available', TRUE, TRUE)`, availableID,
	).Error; err != nil {
		t.Fatalf("seed available status: %v", err)
	}
	if withSoldStatus {
		if err := db.Exec(
			`INSERT INTO statuses (id, name, code, slug, is_default, is_active)
			 VALUES (?, 'Sold', 'sold', 'sold', FALSE, TRUE)`, f.soldStatusID,
		).Error; err != nil {
			t.Fatalf("seed sold status: %v", err)
		}
	}
	if err := db.Exec(
		`INSERT INTO vehicles (id, year, make_id, model_id, status_id, condition, list_price, currency, stock_number, slug, images, metadata, created_at, updated_at)
		 VALUES (?, 2023, 1, 2, ?, 'used', 28999, 'CAD', 'RD-2024-000001', '2023-toyota-rav4-rd-2024-000001', '[]', '{}', ?, ?)`,
		f.vehicleID, availableID, clk.Now(), clk.Now(),
	).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	f.svc = New(Params{
		Cfg:         config.Config{},
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		VehicleRepo: vehiclerepository.Provide(),
		Lookups:     lookup.NewRepository(db),
		Cache:       viewcache.NewMemoryCache(),
	})
	return f
}

func prepareSaleSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE statuses (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			slug TEXT NOT NULL,
			display_color TEXT,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME
		)`,
		`CREATE TABLE vehicles (
			id BIGINT PRIMARY KEY,
			vin TEXT,
			year INTEGER NOT NULL,
			trim TEXT,
			make_id BIGINT NOT NULL,
			model_id BIGINT NOT NULL,
			vehicle_type_id BIGINT,
			status_id BIGINT,
			drive_type_id BIGINT,
			fuel_type_id BIGINT,
			engine_cylinders INTEGER,
			engine_displacement DOUBLE PRECISION,
			transmission_type_id BIGINT,
			transmission_speeds INTEGER,
			odometer_value BIGINT NOT NULL DEFAULT 0,
			odometer_unit TEXT NOT NULL DEFAULT 'km',
			condition TEXT NOT NULL,
			list_price DOUBLE PRECISION NOT NULL,
			currency TEXT NOT NULL DEFAULT 'CAD',
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			stock_number TEXT NOT NULL,
			acquisition_date DATETIME,
			acquisition_cost DOUBLE PRECISION,
			actual_sale_price DOUBLE PRECISION,
			sold_date DATETIME,
			sale_transaction_id BIGINT,
			salesperson_id BIGINT,
			internal_notes TEXT,
			target_profit DOUBLE PRECISION,
			slug TEXT NOT NULL,
			description TEXT,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			keywords JSON,
			images JSON NOT NULL,
			metadata JSON NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE sales_transactions (
			id BIGINT PRIMARY KEY,
			vehicle_id BIGINT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_email TEXT,
			sale_price DOUBLE PRECISION NOT NULL,
			currency TEXT NOT NULL DEFAULT 'CAD',
			cost_of_goods DOUBLE PRECISION,
			margin DOUBLE PRECISION,
			discount DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			gross_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			closed_at DATETIME,
			salesperson_id BIGINT,
			notes TEXT,
			vehicle_sync TEXT NOT NULL DEFAULT 'pending',
			metadata JSON NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func (f *saleFixture) createSale(t *testing.T) *domain.SalesTransaction {
	t.Helper()
	cost := 24000.0
	tx, err := f.svc.Create(context.Background(), domain.CreateSaleRequest{
		VehicleID:    f.vehicleID.String(),
		CustomerName: "Dana Whitfield",
		SalePrice:    20000,
		TaxRate:      0.13,
		CostOfGoods:  &cost,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return tx
}

func TestCreateSaleDerivesFinancials(t *testing.T) {
	f := setupSaleService(t, true)

	tx := f.createSale(t)

	if tx.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", tx.Status)
	}
	if tx.VehicleSync != domain.SyncPending {
		t.Fatalf("vehicle sync = %s, want pending", tx.VehicleSync)
	}
	if tx.TaxAmount != 2600 || tx.TotalPrice != 22600 {
		t.Fatalf("tax/total = %v/%v, want 2600/22600", tx.TaxAmount, tx.TotalPrice)
	}
	if tx.Margin == nil || *tx.Margin != -4000 {
		t.Fatalf("margin = %v, want -4000", tx.Margin)
	}
}

func TestCreateSaleUnknownVehicle(t *testing.T) {
	f := setupSaleService(t, true)

	_, err := f.svc.Create(context.Background(), domain.CreateSaleRequest{
		VehicleID:    f.node.Generate().String(),
		CustomerName: "Dana Whitfield",
		SalePrice:    20000,
	})
	if err != domain.ErrInvalidVehicle {
		t.Fatalf("err = %v, want ErrInvalidVehicle", err)
	}
}

func TestCompleteSaleSyncsVehicle(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	completed, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if completed.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
	if completed.ClosedAt == nil || !completed.ClosedAt.Equal(f.clk.Now()) {
		t.Fatalf("closed at = %v, want %v", completed.ClosedAt, f.clk.Now())
	}
	if completed.VehicleSync != domain.SyncApplied {
		t.Fatalf("vehicle sync = %s, want applied", completed.VehicleSync)
	}

	var row struct {
		StatusID          snowflake.ID
		SaleTransactionID *snowflake.ID
		ActualSalePrice   *float64
	}
	if err := f.db.Raw(
		`SELECT status_id, sale_transaction_id, actual_sale_price FROM vehicles WHERE id = ?`, f.vehicleID,
	).Scan(&row).Error; err != nil {
		t.Fatalf("read vehicle: %v", err)
	}
	if row.StatusID != f.soldStatusID {
		t.Fatalf("vehicle status = %v, want sold %v", row.StatusID, f.soldStatusID)
	}
	if row.SaleTransactionID == nil || *row.SaleTransactionID != tx.ID {
		t.Fatalf("vehicle sale transaction = %v, want %v", row.SaleTransactionID, tx.ID)
	}
	if row.ActualSalePrice == nil || *row.ActualSalePrice != 20000 {
		t.Fatalf("actual sale price = %v, want 20000", row.ActualSalePrice)
	}
}

func TestCompleteSaleIdempotent(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	first, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	f.clk.Advance(time.Hour)

	second, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if !second.ClosedAt.Equal(*first.ClosedAt) {
		t.Fatalf("closed at moved on repeat complete: %v vs %v", second.ClosedAt, first.ClosedAt)
	}

	var soldDate sql.NullTime
	if err := f.db.Raw(`SELECT sold_date FROM vehicles WHERE id = ?`, f.vehicleID).Scan(&soldDate).Error; err != nil {
		t.Fatalf("read sold date: %v", err)
	}
	if !soldDate.Valid || !soldDate.Time.Equal(*first.ClosedAt) {
		t.Fatalf("sold date = %v, want first close %v", soldDate.Time, first.ClosedAt)
	}
}

func TestCancelLeavesClosedAtUnset(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	cancelled, err := f.svc.Cancel(context.Background(), domain.CancelSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.ClosedAt != nil {
		t.Fatalf("closed at = %v, want nil on a sale that never closed", cancelled.ClosedAt)
	}

	stored, err := f.svc.Get(context.Background(), domain.GetSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.ClosedAt != nil {
		t.Fatalf("stored closed at = %v, want nil", stored.ClosedAt)
	}
}

func TestCompleteAfterCancelRejected(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	if _, err := f.svc.Cancel(context.Background(), domain.CancelSaleRequest{ID: tx.ID.String()}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()}); err != domain.ErrInvalidTransition {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelAfterCompleteRejected(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), domain.CancelSaleRequest{ID: tx.ID.String()}); err != domain.ErrInvalidTransition {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteWithoutSoldStatus(t *testing.T) {
	f := setupSaleService(t, false)
	tx := f.createSale(t)

	completed, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed despite missing sold status", completed.Status)
	}
	if completed.VehicleSync != domain.SyncMissingStatus {
		t.Fatalf("vehicle sync = %s, want missing_status", completed.VehicleSync)
	}

	var saleTxID sql.NullInt64
	if err := f.db.Raw(`SELECT sale_transaction_id FROM vehicles WHERE id = ?`, f.vehicleID).Scan(&saleTxID).Error; err != nil {
		t.Fatalf("read vehicle: %v", err)
	}
	if saleTxID.Valid {
		t.Fatal("vehicle must stay untouched when no sold status exists")
	}
}

func TestUpdateRejectedOnceCompleted(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	price := 19000.0
	if _, err := f.svc.Update(context.Background(), domain.UpdateSaleRequest{
		ID:        tx.ID.String(),
		SalePrice: &price,
	}); err != domain.ErrNotPending {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
}

func TestUpdatePendingRecomputesFinancials(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	discount := 1000.0
	updated, err := f.svc.Update(context.Background(), domain.UpdateSaleRequest{
		ID:       tx.ID.String(),
		Discount: &discount,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TaxAmount != 2470 || updated.TotalPrice != 21470 {
		t.Fatalf("tax/total = %v/%v, want 2470/21470", updated.TaxAmount, updated.TotalPrice)
	}
}

func TestDeletePendingOnly(t *testing.T) {
	f := setupSaleService(t, true)
	tx := f.createSale(t)

	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := f.svc.Delete(context.Background(), domain.DeleteSaleRequest{ID: tx.ID.String()}); err != domain.ErrNotPending {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}

	pending := f.createSale(t)
	if err := f.svc.Delete(context.Background(), domain.DeleteSaleRequest{ID: pending.ID.String()}); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), domain.GetSaleRequest{ID: pending.ID.String()}); err != domain.ErrNotFound {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestSummarizeGroupsByStatus(t *testing.T) {
	f := setupSaleService(t, true)

	first := f.createSale(t)
	f.createSale(t)

	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: first.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	summary, err := f.svc.Summarize(context.Background(), domain.SummarizeSalesRequest{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	buckets := map[domain.Status]domain.StatusSummary{}
	for _, row := range summary {
		buckets[row.Status] = row
	}
	if buckets[domain.StatusCompleted].Count != 1 || buckets[domain.StatusPending].Count != 1 {
		t.Fatalf("buckets = %+v", buckets)
	}
	if buckets[domain.StatusCompleted].Revenue != 22600 {
		t.Fatalf("completed revenue = %v, want 22600", buckets[domain.StatusCompleted].Revenue)
	}
}

func TestSummarizeAppliesFilter(t *testing.T) {
	f := setupSaleService(t, true)

	f.createSale(t)
	f.clk.Advance(24 * time.Hour)
	second := f.createSale(t)
	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: second.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	completedOnly, err := f.svc.Summarize(context.Background(), domain.SummarizeSalesRequest{
		Status: string(domain.StatusCompleted),
	})
	if err != nil {
		t.Fatalf("summarize by status: %v", err)
	}
	if len(completedOnly) != 1 || completedOnly[0].Status != domain.StatusCompleted || completedOnly[0].Count != 1 {
		t.Fatalf("completed buckets = %+v", completedOnly)
	}

	dayTwo := f.clk.Now().Add(-time.Hour)
	recent, err := f.svc.Summarize(context.Background(), domain.SummarizeSalesRequest{From: &dayTwo})
	if err != nil {
		t.Fatalf("summarize by date: %v", err)
	}
	var total int64
	for _, row := range recent {
		total += row.Count
	}
	if total != 1 {
		t.Fatalf("recent count = %d, want only the second day's sale", total)
	}

	vehicleRows, err := f.svc.Summarize(context.Background(), domain.SummarizeSalesRequest{
		VehicleID: f.vehicleID.String(),
	})
	if err != nil {
		t.Fatalf("summarize by vehicle: %v", err)
	}
	total = 0
	for _, row := range vehicleRows {
		total += row.Count
	}
	if total != 2 {
		t.Fatalf("vehicle count = %d, want both sales", total)
	}
}

func TestListCompletedUnsynced(t *testing.T) {
	f := setupSaleService(t, false)
	tx := f.createSale(t)

	if _, err := f.svc.Complete(context.Background(), domain.CompleteSaleRequest{ID: tx.ID.String()}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	unsynced, err := f.svc.ListCompletedUnsynced(context.Background())
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != tx.ID {
		t.Fatalf("unsynced = %+v, want the drifted sale", unsynced)
	}
	if unsynced[0].VehicleSync != domain.SyncMissingStatus {
		t.Fatalf("vehicle sync = %s", unsynced[0].VehicleSync)
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
