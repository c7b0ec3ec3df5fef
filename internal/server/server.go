package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rubicondrive/dealerdesk/internal/authcontext"
	"github.com/rubicondrive/dealerdesk/internal/config"
	"github.com/rubicondrive/dealerdesk/internal/lookup"
	lookupdomain "github.com/rubicondrive/dealerdesk/internal/lookup/domain"
	"github.com/rubicondrive/dealerdesk/internal/observability"
	obsmiddleware "github.com/rubicondrive/dealerdesk/internal/observability/logger"
	obsmetrics "github.com/rubicondrive/dealerdesk/internal/observability/metrics"
	obstracing "github.com/rubicondrive/dealerdesk/internal/observability/tracing"
	"github.com/rubicondrive/dealerdesk/internal/sale"
	saledomain "github.com/rubicondrive/dealerdesk/internal/sale/domain"
	"github.com/rubicondrive/dealerdesk/internal/vehicle"
	vehicledomain "github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	lookup.Module,
	vehicle.Module,
	sale.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	vehicleSvc vehicledomain.Service
	saleSvc    saledomain.Service
	lookupRepo lookupdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	VehicleSvc vehicledomain.Service
	SaleSvc    saledomain.Service
	LookupRepo lookupdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		vehicleSvc: p.VehicleSvc,
		saleSvc:    p.SaleSvc,
		lookupRepo: p.LookupRepo,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api/public")
	{
		public.GET("/vehicles", s.ListPublicVehicles)
		public.GET("/vehicles/:slug", s.GetVehicleBySlug)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.requireInternal())
	{
		vehicles := api.Group("/vehicles")
		{
			vehicles.POST("", s.CreateVehicle)
			vehicles.GET("", s.ListVehicles)
			vehicles.GET("/:id", s.GetVehicleByID)
			vehicles.PATCH("/:id", s.UpdateVehicle)
			vehicles.DELETE("/:id", s.DeleteVehicle)
		}

		sales := api.Group("/sales")
		{
			sales.POST("", s.CreateSale)
			sales.GET("", s.ListSales)
			sales.GET("/summary", s.SummarizeSales)
			sales.GET("/unsynced", s.ListUnsyncedSales)
			sales.GET("/:id", s.GetSaleByID)
			sales.PATCH("/:id", s.UpdateSale)
			sales.DELETE("/:id", s.DeleteSale)
			sales.POST("/:id/complete", s.CompleteSale)
			sales.POST("/:id/cancel", s.CancelSale)
		}

		lookups := api.Group("/lookups")
		{
			lookups.GET("/makes", s.ListMakes)
			lookups.GET("/models", s.ListModels)
			lookups.GET("/statuses", s.ListStatuses)
			lookups.GET("/vehicle-types", s.ListVehicleTypes)
			lookups.GET("/fuel-types", s.ListFuelTypes)
			lookups.GET("/transmissions", s.ListTransmissions)
			lookups.GET("/drive-types", s.ListDriveTypes)
		}
	}
}

// requireInternal gates the back-office API. Requests carrying the internal
// bearer token see unredacted vehicle views. An unset token leaves the API
// open for local development.
func (s *Server) requireInternal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.InternalAPIToken != "" {
			token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
			if token == "" || token != s.cfg.InternalAPIToken {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}
		ctx := authcontext.WithViewInternal(c.Request.Context(), true)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
