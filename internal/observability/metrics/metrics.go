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

// Metrics exposes the donation domain instruments.
type Metrics struct {
	donationsCreated metric.Int64Counter
	transitions      metric.Int64Counter
	rejections       metric.Int64Counter
	deletions        metric.Int64Counter
	auditDeferred    metric.Int64Counter
	impactRecomputes metric.Int64Counter
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
		name = "donare"
	}
	meter := provider.Meter(name)

	donationsCreated, err := meter.Int64Counter("donare_donations_created_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("donare_donation_transitions_total")
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("donare_donation_rejections_total")
	if err != nil {
		return nil, err
	}
	deletions, err := meter.Int64Counter("donare_donations_deleted_total")
	if err != nil {
		return nil, err
	}
	auditDeferred, err := meter.Int64Counter("donare_audit_deferred_total")
	if err != nil {
		return nil, err
	}
	impactRecomputes, err := meter.Int64Counter("donare_impact_recomputes_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		donationsCreated: donationsCreated,
		transitions:      transitions,
		rejections:       rejections,
		deletions:        deletions,
		auditDeferred:    auditDeferred,
		impactRecomputes: impactRecomputes,
	}, nil
}

func (m *Metrics) RecordDonationCreated(ctx context.Context, deliveryMode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("delivery_mode", strings.TrimSpace(deliveryMode)))
	m.donationsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition counts applied lifecycle transitions.
func (m *Metrics) RecordTransition(ctx context.Context, action, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRejection counts lifecycle requests refused before any write.
func (m *Metrics) RecordRejection(ctx context.Context, action, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDeletion(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("from_status", strings.TrimSpace(status)))
	m.deletions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuditDeferred counts committed changes whose audit entry was left to the relay.
func (m *Metrics) RecordAuditDeferred(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.auditDeferred.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordImpactRecompute(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.impactRecomputes.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"action":        {},
	"from_status":   {},
	"to_status":     {},
	"reason":        {},
	"delivery_mode": {},
	"event_type":    {},
	"source":        {},
	"status_code":   {},
	"endpoint":      {},
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
