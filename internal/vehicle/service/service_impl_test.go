package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rubicondrive/dealerdesk/internal/authcontext"
	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/config"
	"github.com/rubicondrive/dealerdesk/internal/lookup"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/repository"
	"github.com/rubicondrive/dealerdesk/internal/viewcache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	cache    *viewcache.MemoryCache
	clk      *clock.FakeClock
	node     *snowflake.Node
	makeID   snowflake.ID
	modelID  snowflake.ID
	statusID snowflake.ID
}

func setupVehicleService(t *testing.T) *fixture {
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
	prepareVehicleSchema(t, db)

	node := mustNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	cache := viewcache.NewMemoryCache()

	f := &fixture{
		db:       db,
		cache:    cache,
		clk:      clk,
		node:     node,
		makeID:   node.Generate(),
		modelID:  node.Generate(),
		statusID: node.Generate(),
	}
	seedLookups(t, db, f)

	f.svc = New(Params{
		Cfg: config.Config{
			StockNumberPrefix: "RD",
			ViewCacheTTL:      5 * time.Minute,
		},
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    repository.Provide(),
		Lookups: lookup.NewRepository(db),
		Cache:   cache,
	})
	return f
}

func prepareVehicleSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE makes (id BIGINT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE models (id BIGINT PRIMARY KEY, make_id BIGINT NOT NULL, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE vehicle_types (id BIGINT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE fuel_types (id BIGINT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE transmissions (id BIGINT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
		`CREATE TABLE drive_types (id BIGINT PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL, created_at DATETIME)`,
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
		`CREATE UNIQUE INDEX uidx_vehicles_stock_number ON vehicles (stock_number)`,
		`CREATE UNIQUE INDEX uidx_vehicles_slug ON vehicles (slug)`,
		`CREATE TABLE stock_counters (year INTEGER PRIMARY KEY, seq BIGINT NOT NULL DEFAULT 0)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func seedLookups(t *testing.T, db *gorm.DB, f *fixture) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO makes (id, name, slug) VALUES (?, 'Toyota', 'toyota')`, f.makeID,
	).Error; err != nil {
		t.Fatalf("seed make: %v", err)
	}
	if err := db.Exec(
		`INSERT INTO models (id, make_id, name, slug) VALUES (?, ?, 'RAV4', 'toyota-rav4')`, f.modelID, f.makeID,
	).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}
	if err := db.Exec(
		`INSERT INTO statuses (id, name, code, slug, display_color, is_default, is_active)
		 VALUES (?, 'Available', 'available', 'available', '#16a34a', TRUE, TRUE)`, f.statusID,
	).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}
}

func (f *fixture) createRequest() domain.CreateVehicleRequest {
	cost := 24000.0
	return domain.CreateVehicleRequest{
		VIN:             "jtmrjrev8hd123456",
		Year:            2023,
		MakeID:          f.makeID.String(),
		ModelID:         f.modelID.String(),
		Condition:       domain.ConditionUsed,
		OdometerValue:   42150,
		OdometerUnit:    "km",
		ListPrice:       28999,
		Currency:        "cad",
		TaxRate:         0.13,
		AcquisitionCost: &cost,
		InternalNotes:   "trade-in, minor scratch rear bumper",
		Images:          []string{"https://cdn.example.com/v/1.jpg"},
	}
}

func internalCtx() context.Context {
	return authcontext.WithViewInternal(context.Background(), true)
}

func TestCreateVehicleAssignsStockNumberAndSlug(t *testing.T) {
	f := setupVehicleService(t)

	view, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if view.Internal == nil {
		t.Fatal("create response should carry the internal block")
	}
	if view.Internal.StockNumber != "RD-2024-000001" {
		t.Fatalf("stock number = %q, want RD-2024-000001", view.Internal.StockNumber)
	}
	if !StockNumberPattern.MatchString(view.Internal.StockNumber) {
		t.Fatalf("stock number %q does not match pattern", view.Internal.StockNumber)
	}
	if view.Marketing.Slug != "2023-toyota-rav4-rd-2024-000001" {
		t.Fatalf("slug = %q", view.Marketing.Slug)
	}
	if view.VIN != "JTMRJREV8HD123456" {
		t.Fatalf("vin = %q, want uppercased", view.VIN)
	}
	if !view.Make.Resolved || view.Make.Name != "Toyota" {
		t.Fatalf("make ref = %+v, want resolved Toyota", view.Make)
	}
	if view.Status.Name != "Available" {
		t.Fatalf("status = %+v, want default Available", view.Status)
	}
}

func TestCreateVehicleSequenceIncrements(t *testing.T) {
	f := setupVehicleService(t)

	first, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.Internal.StockNumber != "RD-2024-000001" || second.Internal.StockNumber != "RD-2024-000002" {
		t.Fatalf("stock numbers = %q, %q", first.Internal.StockNumber, second.Internal.StockNumber)
	}
}

func TestCreateVehicleValidation(t *testing.T) {
	f := setupVehicleService(t)

	cases := []struct {
		name    string
		mutate  func(*domain.CreateVehicleRequest)
		wantErr error
	}{
		{"bad year", func(r *domain.CreateVehicleRequest) { r.Year = 1850 }, domain.ErrInvalidYear},
		{"unknown make", func(r *domain.CreateVehicleRequest) { r.MakeID = f.node.Generate().String() }, domain.ErrInvalidMake},
		{"unknown model", func(r *domain.CreateVehicleRequest) { r.ModelID = f.node.Generate().String() }, domain.ErrInvalidModel},
		{"bad condition", func(r *domain.CreateVehicleRequest) { r.Condition = "mint" }, domain.ErrInvalidCondition},
		{"negative price", func(r *domain.CreateVehicleRequest) { r.ListPrice = -1 }, domain.ErrInvalidListPrice},
		{"no images", func(r *domain.CreateVehicleRequest) { r.Images = nil }, domain.ErrImagesRequired},
	}

	for _, tc := range cases {
		req := f.createRequest()
		tc.mutate(&req)
		if _, err := f.svc.Create(internalCtx(), req); err != tc.wantErr {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestPublicSlugViewOmitsInternalBlock(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := f.svc.GetViewBySlug(context.Background(), created.Marketing.Slug)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if view.Internal != nil {
		t.Fatal("public slug view must not expose the internal block")
	}
	if view.Pricing.ListPrice != 28999 {
		t.Fatalf("list price = %v", view.Pricing.ListPrice)
	}
}

func TestInternalViewDerivesProfit(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := f.svc.GetView(internalCtx(), domain.GetVehicleRequest{ID: created.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Internal == nil {
		t.Fatal("internal view missing internal block")
	}
	if view.Internal.ProfitLoss != 4999 {
		t.Fatalf("profit loss = %v, want 4999", view.Internal.ProfitLoss)
	}
	if view.Internal.ProfitMargin != 17.24 {
		t.Fatalf("profit margin = %v, want 17.24", view.Internal.ProfitMargin)
	}
	if view.Internal.Notes == "" {
		t.Fatal("internal profile should include notes")
	}
}

func TestPublicIDViewRedactsNotes(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := f.svc.GetView(context.Background(), domain.GetVehicleRequest{ID: created.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Internal == nil {
		t.Fatal("id view should keep the internal block")
	}
	if view.Internal.Notes != "" || view.Internal.TargetProfit != nil {
		t.Fatal("notes and target profit must be redacted outside the internal profile")
	}
	if view.Internal.ProfitLoss != 4999 {
		t.Fatalf("profit loss = %v, want 4999", view.Internal.ProfitLoss)
	}
}

func TestSlugViewServedFromCache(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	slug := created.Marketing.Slug

	if _, err := f.svc.GetViewBySlug(context.Background(), slug); err != nil {
		t.Fatalf("fill cache: %v", err)
	}

	// A direct row change is invisible until the cached view is dropped.
	if err := f.db.Exec(`UPDATE vehicles SET list_price = 1 WHERE slug = ?`, slug).Error; err != nil {
		t.Fatalf("update row: %v", err)
	}

	cached, err := f.svc.GetViewBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if cached.Pricing.ListPrice != 28999 {
		t.Fatalf("cached list price = %v, want stale 28999", cached.Pricing.ListPrice)
	}

	f.cache.Invalidate(context.Background(), viewcache.SlugKey(slug))

	fresh, err := f.svc.GetViewBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if fresh.Pricing.ListPrice != 1 {
		t.Fatalf("fresh list price = %v, want 1", fresh.Pricing.ListPrice)
	}
}

func TestUpdateRegeneratesSlugOnYearChange(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldSlug := created.Marketing.Slug

	year := 2022
	updated, err := f.svc.Update(internalCtx(), domain.UpdateVehicleRequest{
		ID:   created.ID,
		Year: &year,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Marketing.Slug == oldSlug {
		t.Fatal("slug should regenerate when year changes")
	}
	if updated.Marketing.Slug != "2022-toyota-rav4-rd-2024-000001" {
		t.Fatalf("slug = %q", updated.Marketing.Slug)
	}
	if updated.Internal.StockNumber != created.Internal.StockNumber {
		t.Fatal("stock number must never change")
	}

	if _, err := f.svc.GetViewBySlug(context.Background(), oldSlug); err != domain.ErrNotFound {
		t.Fatalf("old slug read err = %v, want ErrNotFound", err)
	}
}

func TestUpdateKeepsSlugOnPriceChange(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	price := 27500.0
	updated, err := f.svc.Update(internalCtx(), domain.UpdateVehicleRequest{
		ID:        created.ID,
		ListPrice: &price,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Marketing.Slug != created.Marketing.Slug {
		t.Fatalf("slug changed on price-only update: %q vs %q", updated.Marketing.Slug, created.Marketing.Slug)
	}
	if updated.Pricing.ListPrice != 27500 {
		t.Fatalf("list price = %v", updated.Pricing.ListPrice)
	}
}

func TestDeleteVehicleDropsCachedViews(t *testing.T) {
	f := setupVehicleService(t)

	created, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	slug := created.Marketing.Slug

	if _, err := f.svc.GetViewBySlug(context.Background(), slug); err != nil {
		t.Fatalf("fill cache: %v", err)
	}

	if err := f.svc.Delete(internalCtx(), domain.DeleteVehicleRequest{ID: created.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.GetViewBySlug(context.Background(), slug); err != domain.ErrNotFound {
		t.Fatalf("read after delete err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.GetView(internalCtx(), domain.GetVehicleRequest{ID: created.ID}); err != domain.ErrNotFound {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestListVehiclesPaginates(t *testing.T) {
	f := setupVehicleService(t)

	for i := 0; i < 3; i++ {
		req := f.createRequest()
		if _, err := f.svc.Create(internalCtx(), req); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		f.clk.Advance(time.Minute)
	}

	page, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Vehicles) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Vehicles))
	}
	if !page.HasMore || page.NextPageToken == "" {
		t.Fatalf("page info = %+v, want more pages", page.PageInfo)
	}

	rest, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Vehicles) != 1 {
		t.Fatalf("rest size = %d, want 1", len(rest.Vehicles))
	}
	if rest.HasMore {
		t.Fatal("rest should be the last page")
	}
}

func TestPublicListStripsInternalBlock(t *testing.T) {
	f := setupVehicleService(t)

	if _, err := f.svc.Create(internalCtx(), f.createRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := f.svc.List(context.Background(), domain.ListVehiclesRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Vehicles) != 1 {
		t.Fatalf("vehicles = %d, want 1", len(page.Vehicles))
	}
	if page.Vehicles[0].Internal != nil {
		t.Fatal("anonymous list must not expose the internal block")
	}
	if !page.Vehicles[0].Make.Resolved || page.Vehicles[0].Make.Name != "Toyota" {
		t.Fatalf("make ref = %+v, want resolved Toyota", page.Vehicles[0].Make)
	}

	// The cached copy must be the stripped projection too.
	cached, err := f.svc.List(context.Background(), domain.ListVehiclesRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("list cached: %v", err)
	}
	if cached.Vehicles[0].Internal != nil {
		t.Fatal("cached anonymous list must not expose the internal block")
	}

	internal, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("list internal: %v", err)
	}
	if internal.Vehicles[0].Internal == nil || internal.Vehicles[0].Internal.StockNumber == "" {
		t.Fatal("internal list should keep the internal block")
	}
}

func TestListVehiclesSortOldest(t *testing.T) {
	f := setupVehicleService(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(internalCtx(), f.createRequest()); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		f.clk.Advance(time.Minute)
	}

	newest, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if newest.Vehicles[0].Marketing.Slug != "2023-toyota-rav4-rd-2024-000003" {
		t.Fatalf("default order starts with %q, want the newest", newest.Vehicles[0].Marketing.Slug)
	}

	oldest, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{PageSize: 2, Sort: domain.SortOldest})
	if err != nil {
		t.Fatalf("list oldest: %v", err)
	}
	if oldest.Vehicles[0].Marketing.Slug != "2023-toyota-rav4-rd-2024-000001" {
		t.Fatalf("oldest order starts with %q", oldest.Vehicles[0].Marketing.Slug)
	}
	if !oldest.HasMore || oldest.NextPageToken == "" {
		t.Fatalf("page info = %+v, want more pages", oldest.PageInfo)
	}

	rest, err := f.svc.List(internalCtx(), domain.ListVehiclesRequest{
		PageSize:  2,
		Sort:      domain.SortOldest,
		PageToken: oldest.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list oldest rest: %v", err)
	}
	if len(rest.Vehicles) != 1 || rest.Vehicles[0].Marketing.Slug != "2023-toyota-rav4-rd-2024-000003" {
		t.Fatalf("rest = %+v, want the newest vehicle last", rest.Vehicles)
	}
}

func TestSlugViewMarksDanglingRefUnresolved(t *testing.T) {
	f := setupVehicleService(t)

	req := f.createRequest()
	req.DriveTypeID = f.node.Generate().String()
	created, err := f.svc.Create(internalCtx(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := f.svc.GetViewBySlug(context.Background(), created.Marketing.Slug)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if view.DriveType.Resolved {
		t.Fatalf("drive type = %+v, want unresolved marker", view.DriveType)
	}
	if !view.Make.Resolved || !view.Model.Resolved || !view.Status.Resolved {
		t.Fatalf("refs = %+v %+v %+v, want resolved", view.Make, view.Model, view.Status)
	}
}

func seedBlockingVehicle(t *testing.T, f *fixture, stockNumber string) {
	t.Helper()
	if err := f.db.Exec(
		`INSERT INTO vehicles (id, year, make_id, model_id, condition, list_price, currency, stock_number, slug, images, metadata, created_at, updated_at)
		 VALUES (?, 2023, ?, ?, 'used', 19999, 'CAD', ?, ?, '[]', '{}', ?, ?)`,
		f.node.Generate(), f.makeID, f.modelID, stockNumber, "blocker-"+stockNumber, f.clk.Now(), f.clk.Now(),
	).Error; err != nil {
		t.Fatalf("seed blocking vehicle: %v", err)
	}
}

func TestCreateRetriesOnStockNumberCollision(t *testing.T) {
	f := setupVehicleService(t)
	seedBlockingVehicle(t, f, "RD-2024-000001")

	view, err := f.svc.Create(internalCtx(), f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Internal.StockNumber != "RD-2024-000002" {
		t.Fatalf("stock number = %q, want RD-2024-000002 after one retry", view.Internal.StockNumber)
	}
}

func TestCreateConflictAfterSecondCollision(t *testing.T) {
	f := setupVehicleService(t)
	seedBlockingVehicle(t, f, "RD-2024-000001")
	seedBlockingVehicle(t, f, "RD-2024-000002")

	if _, err := f.svc.Create(internalCtx(), f.createRequest()); err != domain.ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
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
