package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	vehicleViews     metric.Int64Counter
	viewCacheLookups metric.Int64Counter
	stockAllocations metric.Int64Counter
	saleTransitions  metric.Int64Counter
	vehicleSoldSync  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "dealerdesk"
	}
	meter := provider.Meter(name)

	vehicleViews, err := meter.Int64Counter("dealerdesk_vehicle_views_total")
	if err != nil {
		return nil, err
	}
	viewCacheLookups, err := meter.Int64Counter("dealerdesk_view_cache_lookups_total")
	if err != nil {
		return nil, err
	}
	stockAllocations, err := meter.Int64Counter("dealerdesk_stock_allocations_total")
	if err != nil {
		return nil, err
	}
	saleTransitions, err := meter.Int64Counter("dealerdesk_sale_transitions_total")
	if err != nil {
		return nil, err
	}
	vehicleSoldSync, err := meter.Int64Counter("dealerdesk_vehicle_sold_sync_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		vehicleViews:     vehicleViews,
		viewCacheLookups: viewCacheLookups,
		stockAllocations: stockAllocations,
		saleTransitions:  saleTransitions,
		vehicleSoldSync:  vehicleSoldSync,
	}, nil
}

// RecordVehicleView counts a composed vehicle view by profile.
func (m *Metrics) RecordVehicleView(ctx context.Context, profile string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("profile", strings.TrimSpace(profile)))
	m.vehicleViews.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordViewCacheLookup counts a cache lookup with its outcome (hit/miss).
func (m *Metrics) RecordViewCacheLookup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.viewCacheLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockAllocation counts stock number allocations.
func (m *Metrics) RecordStockAllocation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.stockAllocations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSaleTransition counts sales transaction state transitions.
func (m *Metrics) RecordSaleTransition(ctx context.Context, transition string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("transition", strings.TrimSpace(transition)))
	m.saleTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordVehicleSoldSync counts vehicle-sold side effect outcomes.
func (m *Metrics) RecordVehicleSoldSync(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.vehicleSoldSync.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"profile":     {},
	"outcome":     {},
	"transition":  {},
	"method":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
