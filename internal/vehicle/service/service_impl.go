package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/rubicondrive/dealerdesk/internal/authcontext"
	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/config"
	lookupdomain "github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	obsmetrics "github.com/rubicondrive/dealerdesk/internal/observability/metrics"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"github.com/rubicondrive/dealerdesk/internal/viewcache"
	dbutil "github.com/rubicondrive/dealerdesk/pkg/db"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg     config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Lookups lookupdomain.Repository
	Cache   viewcache.Cache
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	lookups   lookupdomain.Repository
	cache     viewcache.Cache
	metrics   *obsmetrics.Metrics
	resolver  *resolver
	allocator *StockAllocator
	cacheTTL  time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		cfg:       p.Cfg,
		db:        p.DB,
		log:       p.Log.Named("vehicle.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		lookups:   p.Lookups,
		cache:     p.Cache,
		metrics:   p.Metrics,
		resolver:  &resolver{lookups: p.Lookups},
		allocator: NewStockAllocator(p.Cfg.StockNumberPrefix, p.DB, p.Repo, p.Clock),
		cacheTTL:  p.Cfg.ViewCacheTTL,
	}
}

func (s *Service) GetView(ctx context.Context, req domain.GetVehicleRequest) (domain.VehicleView, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.VehicleView{}, err
	}

	vehicle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.VehicleView{}, err
	}
	if vehicle == nil {
		return domain.VehicleView{}, domain.ErrNotFound
	}

	refs, err := s.resolver.resolve(ctx, vehicle, domain.ResolveFull)
	if err != nil {
		return domain.VehicleView{}, err
	}

	profile := profileFor(ctx)
	s.metrics.RecordVehicleView(ctx, string(profile))
	return composeView(vehicle, refs, profile), nil
}

func (s *Service) GetViewBySlug(ctx context.Context, slugValue string) (domain.VehicleView, error) {
	slugValue = strings.ToLower(strings.TrimSpace(slugValue))
	if slugValue == "" {
		return domain.VehicleView{}, domain.ErrInvalidSlug
	}

	key := viewcache.SlugKey(slugValue)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var view domain.VehicleView
		if err := json.Unmarshal(cached, &view); err == nil {
			s.metrics.RecordViewCacheLookup(ctx, "hit")
			return view, nil
		}
		s.cache.Invalidate(ctx, key)
	}
	s.metrics.RecordViewCacheLookup(ctx, "miss")

	vehicle, err := s.repo.FindBySlug(ctx, s.db, slugValue)
	if err != nil {
		return domain.VehicleView{}, err
	}
	if vehicle == nil {
		return domain.VehicleView{}, domain.ErrNotFound
	}

	refs, err := s.resolver.resolve(ctx, vehicle, domain.ResolveLight)
	if err != nil {
		return domain.VehicleView{}, err
	}

	view := composeView(vehicle, refs, domain.ProfilePublicSlug)
	s.metrics.RecordVehicleView(ctx, string(domain.ProfilePublicSlug))

	if encoded, err := json.Marshal(view); err == nil {
		s.cache.Set(ctx, key, encoded, s.cacheTTL)
	}
	return view, nil
}

func (s *Service) List(ctx context.Context, req domain.ListVehiclesRequest) (domain.ListVehiclesResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	sort := normalizeSort(req.Sort)

	// Anonymous list callers get the storefront projection. The by-id
	// profile stays behind authentication.
	profile := domain.ProfilePublicSlug
	if authcontext.CanViewInternal(ctx) {
		profile = domain.ProfileInternal
	}

	// Only the public projection is safe to share across callers.
	var cacheKey string
	if profile != domain.ProfileInternal {
		cacheKey = viewcache.ListKey(listFingerprint(req, pageSize, sort))
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			var resp domain.ListVehiclesResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				s.metrics.RecordViewCacheLookup(ctx, "hit")
				return resp, nil
			}
			s.cache.Invalidate(ctx, cacheKey)
		}
		s.metrics.RecordViewCacheLookup(ctx, "miss")
	}

	filter := domain.ListVehiclesFilter{
		Sort:      sort,
		MakeID:    strings.TrimSpace(req.MakeID),
		ModelID:   strings.TrimSpace(req.ModelID),
		StatusID:  strings.TrimSpace(req.StatusID),
		Condition: strings.TrimSpace(req.Condition),
		Featured:  req.Featured,
		YearFrom:  req.YearFrom,
		YearTo:    req.YearTo,
		PriceMin:  req.PriceMin,
		PriceMax:  req.PriceMax,
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListVehiclesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(vehicle *domain.Vehicle) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        vehicle.ID.String(),
			CreatedAt: vehicle.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	views := make([]domain.VehicleView, 0, len(items))
	for _, vehicle := range items {
		if vehicle == nil {
			continue
		}
		refs, err := s.resolver.resolve(ctx, vehicle, domain.ResolveLight)
		if err != nil {
			return domain.ListVehiclesResponse{}, err
		}
		views = append(views, composeView(vehicle, refs, profile))
	}

	resp := domain.ListVehiclesResponse{Vehicles: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	if cacheKey != "" {
		if encoded, err := json.Marshal(resp); err == nil {
			s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL)
		}
	}

	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateVehicleRequest) (domain.VehicleView, error) {
	if req.Year < 1900 || req.Year > s.clock.Now().Year()+2 {
		return domain.VehicleView{}, domain.ErrInvalidYear
	}
	if !domain.ValidCondition(req.Condition) {
		return domain.VehicleView{}, domain.ErrInvalidCondition
	}
	if req.ListPrice < 0 {
		return domain.VehicleView{}, domain.ErrInvalidListPrice
	}
	if len(req.Images) == 0 {
		return domain.VehicleView{}, domain.ErrImagesRequired
	}

	makeID, err := parseID(req.MakeID)
	if err != nil {
		return domain.VehicleView{}, domain.ErrInvalidMake
	}
	modelID, err := parseID(req.ModelID)
	if err != nil {
		return domain.VehicleView{}, domain.ErrInvalidModel
	}

	makeRow, err := s.lookups.FindMake(ctx, makeID)
	if err != nil {
		return domain.VehicleView{}, err
	}
	if makeRow == nil {
		return domain.VehicleView{}, domain.ErrInvalidMake
	}
	modelRow, err := s.lookups.FindModel(ctx, modelID)
	if err != nil {
		return domain.VehicleView{}, err
	}
	if modelRow == nil {
		return domain.VehicleView{}, domain.ErrInvalidModel
	}

	statusID, err := s.resolveStatusID(ctx, req.StatusID)
	if err != nil {
		return domain.VehicleView{}, err
	}

	now := s.clock.Now()
	vehicle := &domain.Vehicle{
		ID:                 s.genID.Generate(),
		Year:               req.Year,
		Trim:               strings.TrimSpace(req.Trim),
		MakeID:             makeID,
		ModelID:            modelID,
		VehicleTypeID:      parseOptionalRef(req.VehicleTypeID),
		StatusID:           statusID,
		DriveTypeID:        parseOptionalRef(req.DriveTypeID),
		FuelTypeID:         parseOptionalRef(req.FuelTypeID),
		EngineCylinders:    req.EngineCylinders,
		EngineDisplacement: req.EngineDisplacement,
		TransmissionTypeID: parseOptionalRef(req.TransmissionTypeID),
		TransmissionSpeeds: req.TransmissionSpeeds,
		OdometerValue:      req.OdometerValue,
		OdometerUnit:       normalizeOdometerUnit(req.OdometerUnit),
		Condition:          req.Condition,
		ListPrice:          req.ListPrice,
		Currency:           normalizeCurrency(req.Currency),
		TaxRate:            req.TaxRate,
		AcquisitionDate:    req.AcquisitionDate,
		AcquisitionCost:    req.AcquisitionCost,
		InternalNotes:      req.InternalNotes,
		TargetProfit:       req.TargetProfit,
		Description:        strings.TrimSpace(req.Description),
		Featured:           req.Featured,
		Keywords:           datatypes.JSONSlice[string](req.Keywords),
		Images:             datatypes.JSONSlice[string](req.Images),
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if vin := strings.ToUpper(strings.TrimSpace(req.VIN)); vin != "" {
		vehicle.VIN = &vin
	}
	if salesperson := strings.TrimSpace(req.SalespersonID); salesperson != "" {
		if id, err := parseID(salesperson); err == nil {
			vehicle.SalespersonID = &id
		}
	}

	if err := s.insertWithStockNumber(ctx, vehicle, makeRow.Name, modelRow.Name); err != nil {
		return domain.VehicleView{}, err
	}

	s.cache.InvalidatePrefix(ctx, viewcache.ListKeyPrefix)

	refs, err := s.resolver.resolve(ctx, vehicle, domain.ResolveFull)
	if err != nil {
		return domain.VehicleView{}, err
	}
	s.log.Info("vehicle created",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("stock_number", vehicle.StockNumber),
		zap.String("slug", vehicle.Slug),
	)
	return composeView(vehicle, refs, domain.ProfileInternal), nil
}

// insertWithStockNumber allocates a stock number and slug, then inserts.
// A duplicate-key failure attributable to the stock number is retried once
// with a fresh allocation before surfacing a conflict.
func (s *Service) insertWithStockNumber(ctx context.Context, vehicle *domain.Vehicle, makeName, modelName string) error {
	for attempt := 0; attempt < 2; attempt++ {
		stockNumber, err := s.allocator.Allocate(ctx)
		if err != nil {
			s.metrics.RecordStockAllocation(ctx, "error")
			return err
		}
		vehicle.StockNumber = stockNumber
		vehicle.Slug = marketingSlug(vehicle.Year, makeName, modelName, stockNumber)

		err = s.repo.Insert(ctx, s.db, vehicle)
		if err == nil {
			s.metrics.RecordStockAllocation(ctx, "ok")
			return nil
		}
		if !dbutil.IsDuplicateKeyErr(err) {
			return err
		}
		if !strings.Contains(err.Error(), "stock_number") || attempt > 0 {
			return domain.ErrConflict
		}
		s.metrics.RecordStockAllocation(ctx, "conflict_retry")
		s.log.Warn("stock number collision, retrying allocation",
			zap.String("stock_number", stockNumber),
		)
	}
	return domain.ErrConflict
}

func (s *Service) Update(ctx context.Context, req domain.UpdateVehicleRequest) (domain.VehicleView, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.VehicleView{}, err
	}

	vehicle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.VehicleView{}, err
	}
	if vehicle == nil {
		return domain.VehicleView{}, domain.ErrNotFound
	}

	oldSlug := vehicle.Slug
	slugInputsChanged, err := s.applyPatch(vehicle, req)
	if err != nil {
		return domain.VehicleView{}, err
	}

	if slugInputsChanged {
		makeRow, err := s.lookups.FindMake(ctx, vehicle.MakeID)
		if err != nil {
			return domain.VehicleView{}, err
		}
		if makeRow == nil {
			return domain.VehicleView{}, domain.ErrInvalidMake
		}
		modelRow, err := s.lookups.FindModel(ctx, vehicle.ModelID)
		if err != nil {
			return domain.VehicleView{}, err
		}
		if modelRow == nil {
			return domain.VehicleView{}, domain.ErrInvalidModel
		}
		vehicle.Slug = marketingSlug(vehicle.Year, makeRow.Name, modelRow.Name, vehicle.StockNumber)
	}

	vehicle.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, vehicle); err != nil {
		if dbutil.IsDuplicateKeyErr(err) {
			return domain.VehicleView{}, domain.ErrConflict
		}
		return domain.VehicleView{}, err
	}

	s.invalidateVehicle(ctx, oldSlug, vehicle.Slug, vehicle.ID.String())

	refs, err := s.resolver.resolve(ctx, vehicle, domain.ResolveFull)
	if err != nil {
		return domain.VehicleView{}, err
	}
	return composeView(vehicle, refs, profileFor(ctx)), nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteVehicleRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	vehicle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}

	s.invalidateVehicle(ctx, vehicle.Slug, "", vehicle.ID.String())
	s.log.Info("vehicle deleted",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("stock_number", vehicle.StockNumber),
	)
	return nil
}

// applyPatch copies patch fields onto the vehicle and reports whether any
// slug input (year, make, model) changed. Stock number is never patched.
func (s *Service) applyPatch(vehicle *domain.Vehicle, req domain.UpdateVehicleRequest) (bool, error) {
	slugInputsChanged := false

	if req.Year != nil && *req.Year != vehicle.Year {
		if *req.Year < 1900 || *req.Year > s.clock.Now().Year()+2 {
			return false, domain.ErrInvalidYear
		}
		vehicle.Year = *req.Year
		slugInputsChanged = true
	}
	if req.MakeID != nil {
		makeID, err := parseID(*req.MakeID)
		if err != nil {
			return false, domain.ErrInvalidMake
		}
		if makeID != vehicle.MakeID {
			vehicle.MakeID = makeID
			slugInputsChanged = true
		}
	}
	if req.ModelID != nil {
		modelID, err := parseID(*req.ModelID)
		if err != nil {
			return false, domain.ErrInvalidModel
		}
		if modelID != vehicle.ModelID {
			vehicle.ModelID = modelID
			slugInputsChanged = true
		}
	}

	if req.VIN != nil {
		if vin := strings.ToUpper(strings.TrimSpace(*req.VIN)); vin != "" {
			vehicle.VIN = &vin
		} else {
			vehicle.VIN = nil
		}
	}
	if req.Trim != nil {
		vehicle.Trim = strings.TrimSpace(*req.Trim)
	}
	if req.VehicleTypeID != nil {
		vehicle.VehicleTypeID = parseOptionalRef(*req.VehicleTypeID)
	}
	if req.StatusID != nil {
		statusID, err := parseID(*req.StatusID)
		if err != nil {
			return false, domain.ErrInvalidID
		}
		vehicle.StatusID = statusID
	}
	if req.DriveTypeID != nil {
		vehicle.DriveTypeID = parseOptionalRef(*req.DriveTypeID)
	}
	if req.FuelTypeID != nil {
		vehicle.FuelTypeID = parseOptionalRef(*req.FuelTypeID)
	}
	if req.EngineCylinders != nil {
		vehicle.EngineCylinders = *req.EngineCylinders
	}
	if req.EngineDisplacement != nil {
		vehicle.EngineDisplacement = *req.EngineDisplacement
	}
	if req.TransmissionTypeID != nil {
		vehicle.TransmissionTypeID = parseOptionalRef(*req.TransmissionTypeID)
	}
	if req.TransmissionSpeeds != nil {
		vehicle.TransmissionSpeeds = *req.TransmissionSpeeds
	}
	if req.OdometerValue != nil {
		vehicle.OdometerValue = *req.OdometerValue
	}
	if req.OdometerUnit != nil {
		vehicle.OdometerUnit = normalizeOdometerUnit(*req.OdometerUnit)
	}
	if req.Condition != nil {
		if !domain.ValidCondition(*req.Condition) {
			return false, domain.ErrInvalidCondition
		}
		vehicle.Condition = *req.Condition
	}
	if req.ListPrice != nil {
		if *req.ListPrice < 0 {
			return false, domain.ErrInvalidListPrice
		}
		vehicle.ListPrice = *req.ListPrice
	}
	if req.Currency != nil {
		vehicle.Currency = normalizeCurrency(*req.Currency)
	}
	if req.TaxRate != nil {
		vehicle.TaxRate = *req.TaxRate
	}
	if req.AcquisitionDate != nil {
		vehicle.AcquisitionDate = req.AcquisitionDate
	}
	if req.AcquisitionCost != nil {
		vehicle.AcquisitionCost = req.AcquisitionCost
	}
	if req.ActualSalePrice != nil {
		vehicle.ActualSalePrice = req.ActualSalePrice
	}
	if req.SalespersonID != nil {
		if id, err := parseID(*req.SalespersonID); err == nil {
			vehicle.SalespersonID = &id
		} else {
			vehicle.SalespersonID = nil
		}
	}
	if req.InternalNotes != nil {
		vehicle.InternalNotes = *req.InternalNotes
	}
	if req.TargetProfit != nil {
		vehicle.TargetProfit = req.TargetProfit
	}
	if req.Description != nil {
		vehicle.Description = strings.TrimSpace(*req.Description)
	}
	if req.Featured != nil {
		vehicle.Featured = *req.Featured
	}
	if req.Keywords != nil {
		vehicle.Keywords = datatypes.JSONSlice[string](req.Keywords)
	}
	if req.Images != nil {
		if len(req.Images) == 0 {
			return false, domain.ErrImagesRequired
		}
		vehicle.Images = datatypes.JSONSlice[string](req.Images)
	}

	return slugInputsChanged, nil
}

func (s *Service) resolveStatusID(ctx context.Context, raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return 0, domain.ErrInvalidID
		}
		return id, nil
	}

	status, err := s.lookups.FindDefaultStatus(ctx)
	if err != nil {
		return 0, err
	}
	if status == nil {
		return 0, nil
	}
	return status.ID, nil
}

// invalidateVehicle drops the slug keys (old and new when the slug
// changed), the id key, and every cached list result.
func (s *Service) invalidateVehicle(ctx context.Context, oldSlug, newSlug, id string) {
	keys := []string{viewcache.IDKey(id)}
	if oldSlug != "" {
		keys = append(keys, viewcache.SlugKey(oldSlug))
	}
	if newSlug != "" && newSlug != oldSlug {
		keys = append(keys, viewcache.SlugKey(newSlug))
	}
	s.cache.Invalidate(ctx, keys...)
	s.cache.InvalidatePrefix(ctx, viewcache.ListKeyPrefix)
}

func profileFor(ctx context.Context) domain.Profile {
	if authcontext.CanViewInternal(ctx) {
		return domain.ProfileInternal
	}
	return domain.ProfilePublicID
}

func marketingSlug(year int, makeName, modelName, stockNumber string) string {
	return slug.Make(fmt.Sprintf("%d %s %s %s", year, makeName, modelName, stockNumber))
}

func normalizeSort(sort string) string {
	if strings.ToLower(strings.TrimSpace(sort)) == domain.SortOldest {
		return domain.SortOldest
	}
	return domain.SortNewest
}

func listFingerprint(req domain.ListVehiclesRequest, pageSize int32, sort string) string {
	featured := ""
	if req.Featured != nil {
		featured = fmt.Sprintf("%t", *req.Featured)
	}
	priceMin := ""
	if req.PriceMin != nil {
		priceMin = fmt.Sprintf("%.2f", *req.PriceMin)
	}
	priceMax := ""
	if req.PriceMax != nil {
		priceMax = fmt.Sprintf("%.2f", *req.PriceMax)
	}
	raw := strings.Join([]string{
		req.PageToken,
		fmt.Sprintf("%d", pageSize),
		sort,
		req.MakeID,
		req.ModelID,
		req.StatusID,
		req.Condition,
		featured,
		fmt.Sprintf("%d-%d", req.YearFrom, req.YearTo),
		priceMin,
		priceMax,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalRef(value string) snowflake.ID {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return id
}

func normalizeOdometerUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mi", "miles":
		return "mi"
	default:
		return "km"
	}
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "CAD"
	}
	return currency
}
