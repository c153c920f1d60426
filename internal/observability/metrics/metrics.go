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
	ticketsIssued    metric.Int64Counter
	ticketsRedeemed  metric.Int64Counter
	ledgerEntries    metric.Int64Counter
	capacityDenials  metric.Int64Counter
	reconApprovals   metric.Int64Counter
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

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "doorman"
	}
	meter := provider.Meter(name)

	ticketsIssued, err := meter.Int64Counter("doorman_tickets_issued_total")
	if err != nil {
		return nil, err
	}
	ticketsRedeemed, err := meter.Int64Counter("doorman_tickets_redeemed_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("doorman_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	capacityDenials, err := meter.Int64Counter("doorman_capacity_denials_total")
	if err != nil {
		return nil, err
	}
	reconApprovals, err := meter.Int64Counter("doorman_reconciliation_approvals_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ticketsIssued:   ticketsIssued,
		ticketsRedeemed: ticketsRedeemed,
		ledgerEntries:   ledgerEntries,
		capacityDenials: capacityDenials,
		reconApprovals:  reconApprovals,
	}, nil
}

// RecordTicketIssued increments issued ticket counts.
func (m *Metrics) RecordTicketIssued(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.TrimSpace(currency)))
	m.ticketsIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTicketRedeemed increments redeemed ticket counts.
func (m *Metrics) RecordTicketRedeemed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ticketsRedeemed.Add(ctx, 1)
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, ledgerType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("ledger_type", strings.TrimSpace(ledgerType)))
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCapacityDenial increments admission denial counts.
func (m *Metrics) RecordCapacityDenial(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.capacityDenials.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconciliationApproval increments approval counts.
func (m *Metrics) RecordReconciliationApproval(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconApprovals.Add(ctx, 1)
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
	"currency":    {},
	"ledger_type": {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
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
