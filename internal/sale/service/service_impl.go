package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/config"
	lookupdomain "github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	obsmetrics "github.com/rubicondrive/dealerdesk/internal/observability/metrics"
	"github.com/rubicondrive/dealerdesk/internal/sale/domain"
	vehicledomain "github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"github.com/rubicondrive/dealerdesk/internal/viewcache"
	"github.com/rubicondrive/dealerdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	VehicleRepo vehicledomain.Repository
	Lookups     lookupdomain.Repository
	Cache       viewcache.Cache
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	vehicleRepo vehicledomain.Repository
	lookups     lookupdomain.Repository
	cache       viewcache.Cache
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("sale.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		vehicleRepo: p.VehicleRepo,
		lookups:     p.Lookups,
		cache:       p.Cache,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSaleRequest) (*domain.SalesTransaction, error) {
	vehicleID, err := parseID(req.VehicleID)
	if err != nil {
		return nil, domain.ErrInvalidVehicle
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, domain.ErrInvalidCustomer
	}
	if req.SalePrice < 0 {
		return nil, domain.ErrInvalidSalePrice
	}
	if req.Discount < 0 {
		return nil, domain.ErrInvalidDiscount
	}
	if req.TaxRate < 0 || req.TaxRate > 1 {
		return nil, domain.ErrInvalidTaxRate
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, s.db, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, domain.ErrInvalidVehicle
	}

	now := s.clock.Now()
	tx := &domain.SalesTransaction{
		ID:            s.genID.Generate(),
		VehicleID:     vehicleID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		SalePrice:     req.SalePrice,
		Currency:      normalizeCurrency(req.Currency),
		CostOfGoods:   req.CostOfGoods,
		Discount:      req.Discount,
		TaxRate:       req.TaxRate,
		Status:        domain.StatusPending,
		Notes:         req.Notes,
		VehicleSync:   domain.SyncPending,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if salesperson := strings.TrimSpace(req.SalespersonID); salesperson != "" {
		if id, err := parseID(salesperson); err == nil {
			tx.SalespersonID = &id
		}
	}
	deriveFinancials(tx)

	if err := s.repo.Insert(ctx, s.db, tx); err != nil {
		return nil, err
	}

	s.log.Info("sale created",
		zap.String("sale_id", tx.ID.String()),
		zap.String("vehicle_id", tx.VehicleID.String()),
		zap.Float64("total_price", tx.TotalPrice),
	)
	return tx, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetSaleRequest) (*domain.SalesTransaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSalesRequest) (domain.ListSalesResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	filter := domain.ListSalesFilter{
		VehicleID:   strings.TrimSpace(req.VehicleID),
		Status:      strings.TrimSpace(req.Status),
		VehicleSync: strings.TrimSpace(req.VehicleSync),
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListSalesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(tx *domain.SalesTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        tx.ID.String(),
			CreatedAt: tx.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	resp := domain.ListSalesResponse{Transactions: items}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSaleRequest) (*domain.SalesTransaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	if tx.Status != domain.StatusPending {
		return nil, domain.ErrNotPending
	}

	if req.CustomerName != nil {
		if strings.TrimSpace(*req.CustomerName) == "" {
			return nil, domain.ErrInvalidCustomer
		}
		tx.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerEmail != nil {
		tx.CustomerEmail = strings.ToLower(strings.TrimSpace(*req.CustomerEmail))
	}
	if req.SalePrice != nil {
		if *req.SalePrice < 0 {
			return nil, domain.ErrInvalidSalePrice
		}
		tx.SalePrice = *req.SalePrice
	}
	if req.Currency != nil {
		tx.Currency = normalizeCurrency(*req.Currency)
	}
	if req.CostOfGoods != nil {
		tx.CostOfGoods = req.CostOfGoods
	}
	if req.Discount != nil {
		if *req.Discount < 0 {
			return nil, domain.ErrInvalidDiscount
		}
		tx.Discount = *req.Discount
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate > 1 {
			return nil, domain.ErrInvalidTaxRate
		}
		tx.TaxRate = *req.TaxRate
	}
	if req.SalespersonID != nil {
		if id, err := parseID(*req.SalespersonID); err == nil {
			tx.SalespersonID = &id
		} else {
			tx.SalespersonID = nil
		}
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}

	deriveFinancials(tx)
	tx.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Complete closes the transaction and then propagates the sale onto the
// vehicle record. The transaction write commits first: a failed propagation
// leaves a completed sale with a queryable sync state rather than rolling
// the whole operation back.
func (s *Service) Complete(ctx context.Context, req domain.CompleteSaleRequest) (*domain.SalesTransaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	if tx.Status == domain.StatusCompleted {
		return tx, nil
	}
	if !CanTransition(tx.Status, domain.StatusCompleted) {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	tx.Status = domain.StatusCompleted
	tx.ClosedAt = &now
	tx.UpdatedAt = now
	deriveFinancials(tx)

	if err := s.repo.Update(ctx, s.db, tx); err != nil {
		return nil, err
	}
	s.metrics.RecordSaleTransition(ctx, "pending_to_completed")

	s.syncVehicle(ctx, tx)
	return tx, nil
}

// syncVehicle stamps the sold outcome onto the vehicle. Every path records
// an explicit sync state on the transaction; none of them fail the
// completed sale.
func (s *Service) syncVehicle(ctx context.Context, tx *domain.SalesTransaction) {
	soldStatus, err := s.lookups.FindSoldStatus(ctx)
	if err == nil && soldStatus == nil {
		s.log.Warn("no sold status configured, vehicle left untouched",
			zap.String("sale_id", tx.ID.String()),
			zap.String("vehicle_id", tx.VehicleID.String()),
		)
		s.setSync(ctx, tx, domain.SyncMissingStatus)
		return
	}
	if err != nil {
		s.log.Error("sold status lookup failed",
			zap.String("sale_id", tx.ID.String()),
			zap.Error(err),
		)
		s.setSync(ctx, tx, domain.SyncFailed)
		return
	}

	wrote, err := s.vehicleRepo.MarkSold(ctx, s.db, tx.VehicleID, soldStatus.ID, tx.ID, tx.SalePrice, *tx.ClosedAt)
	if err != nil {
		s.log.Error("vehicle sold sync failed",
			zap.String("sale_id", tx.ID.String()),
			zap.String("vehicle_id", tx.VehicleID.String()),
			zap.Error(err),
		)
		s.setSync(ctx, tx, domain.SyncFailed)
		return
	}
	if !wrote {
		s.setSync(ctx, tx, domain.SyncSkipped)
		return
	}

	s.setSync(ctx, tx, domain.SyncApplied)
	s.invalidateVehicle(ctx, tx.VehicleID)
}

func (s *Service) setSync(ctx context.Context, tx *domain.SalesTransaction, outcome string) {
	tx.VehicleSync = outcome
	if err := s.repo.SetVehicleSync(ctx, s.db, tx.ID, outcome); err != nil {
		s.log.Error("sync state write failed",
			zap.String("sale_id", tx.ID.String()),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	s.metrics.RecordVehicleSoldSync(ctx, outcome)
}

func (s *Service) invalidateVehicle(ctx context.Context, vehicleID snowflake.ID) {
	keys := []string{viewcache.IDKey(vehicleID.String())}
	if vehicle, err := s.vehicleRepo.FindByID(ctx, s.db, vehicleID); err == nil && vehicle != nil {
		keys = append(keys, viewcache.SlugKey(vehicle.Slug))
	}
	s.cache.Invalidate(ctx, keys...)
	s.cache.InvalidatePrefix(ctx, viewcache.ListKeyPrefix)
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelSaleRequest) (*domain.SalesTransaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	if tx.Status == domain.StatusCancelled {
		return tx, nil
	}
	if !CanTransition(tx.Status, domain.StatusCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	// ClosedAt is the completion timestamp; a cancelled sale never closed.
	tx.Status = domain.StatusCancelled
	tx.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, tx); err != nil {
		return nil, err
	}
	s.metrics.RecordSaleTransition(ctx, "pending_to_cancelled")
	return tx, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteSaleRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if tx == nil {
		return domain.ErrNotFound
	}
	if tx.Status != domain.StatusPending {
		return domain.ErrNotPending
	}

	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) Summarize(ctx context.Context, req domain.SummarizeSalesRequest) ([]domain.StatusSummary, error) {
	return s.repo.SummarizeByStatus(ctx, s.db, domain.SummarizeSalesFilter{
		VehicleID: strings.TrimSpace(req.VehicleID),
		Status:    strings.TrimSpace(req.Status),
		From:      req.From,
		To:        req.To,
	})
}

func (s *Service) ListCompletedUnsynced(ctx context.Context) ([]*domain.SalesTransaction, error) {
	return s.repo.ListCompletedUnsynced(ctx, s.db)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "CAD"
	}
	return currency
}
