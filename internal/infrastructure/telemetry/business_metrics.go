// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the billing engine.
// It tracks invoice issuance, payment activity, and QR reconciliation health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	invoiceIssuedTotal    *Counter
	invoiceAmountTotal    *Counter
	paymentTotal          *Counter
	qrReconciliationTotal *Counter

	// Gauge metrics (point-in-time values)
	openFolioCount     *Gauge
	openQRRequestCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	billingProvider BillingMetricsProvider
}

// BillingMetricsProvider provides billing state for periodic metrics
// collection. The interface keeps the telemetry layer off the domain
// repositories.
type BillingMetricsProvider interface {
	// GetOpenFolioCount returns the number of open folios for a property
	GetOpenFolioCount(ctx context.Context, propertyID uuid.UUID) (int64, error)

	// GetOpenQRRequestCount returns the number of open (pending or
	// underpaid) QR payment requests for a property
	GetOpenQRRequestCount(ctx context.Context, propertyID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BillingProvider BillingMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		billingProvider: cfg.BillingProvider,
	}

	// Initialize counter metrics
	var err error

	// Invoice metrics
	bm.invoiceIssuedTotal, err = NewCounter(
		cfg.Meter,
		"billing_invoice_issued_total",
		"Total number of invoices issued",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"billing_invoice_amount_total",
		"Total invoiced amount in minor currency units",
		"{minor_units}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	bm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"billing_payment_total",
		"Total number of payment transactions",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	// QR reconciliation metrics
	bm.qrReconciliationTotal, err = NewCounter(
		cfg.Meter,
		"billing_qr_reconciliation_total",
		"Total number of reconciled bank transactions by outcome",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	// Billing gauge metrics
	bm.openFolioCount, err = NewGauge(
		cfg.Meter,
		"billing_open_folio_count",
		"Number of currently open folios",
		"{folios}",
	)
	if err != nil {
		return nil, err
	}

	bm.openQRRequestCount, err = NewGauge(
		cfg.Meter,
		"billing_open_qr_request_count",
		"Number of open QR payment requests",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Invoice Metrics
// =============================================================================

// RecordInvoiceIssued records an invoice issuance event.
// This should be called from the application layer when an invoice is created.
func (bm *BusinessMetrics) RecordInvoiceIssued(ctx context.Context, propertyID uuid.UUID, kind string) {
	bm.invoiceIssuedTotal.Inc(ctx,
		AttrPropertyID.String(propertyID.String()),
		AttrInvoiceKind.String(kind),
	)
}

// RecordInvoiceAmount records the invoiced amount.
// Amount should be in the smallest currency unit (VND has none, so whole dong).
func (bm *BusinessMetrics) RecordInvoiceAmount(ctx context.Context, propertyID uuid.UUID, kind string, amountMinor int64) {
	bm.invoiceAmountTotal.Add(ctx, amountMinor,
		AttrPropertyID.String(propertyID.String()),
		AttrInvoiceKind.String(kind),
	)
}

// RecordInvoiceWithAmount is a convenience method that records both invoice count and amount.
func (bm *BusinessMetrics) RecordInvoiceWithAmount(ctx context.Context, propertyID uuid.UUID, kind string, amount decimal.Decimal) {
	bm.RecordInvoiceIssued(ctx, propertyID, kind)
	bm.RecordInvoiceAmount(ctx, propertyID, kind, amount.IntPart())
}

// =============================================================================
// Payment Metrics
// =============================================================================

// PaymentOutcome represents the outcome of a payment for metrics labeling.
type PaymentOutcome string

const (
	PaymentOutcomeCompleted PaymentOutcome = "completed"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// RecordPayment records a payment transaction.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, propertyID uuid.UUID, method string, outcome PaymentOutcome) {
	bm.paymentTotal.Inc(ctx,
		AttrPropertyID.String(propertyID.String()),
		AttrPaymentMethod.String(method),
		AttrPaymentStatus.String(string(outcome)),
	)
}

// RecordQRReconciliation records the outcome of reconciling one bank
// transaction (matched, overpaid, underpaid, unmatched, duplicate).
func (bm *BusinessMetrics) RecordQRReconciliation(ctx context.Context, propertyID uuid.UUID, outcome string) {
	bm.qrReconciliationTotal.Inc(ctx,
		AttrPropertyID.String(propertyID.String()),
		AttrQROutcome.String(outcome),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// PropertyProvider provides property IDs for periodic metrics collection.
type PropertyProvider interface {
	GetActivePropertyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects billing gauges every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, propertyProvider PropertyProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, propertyProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, propertyProvider PropertyProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectBillingMetrics(ctx, propertyProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectBillingMetrics(ctx, propertyProvider)
		}
	}
}

// collectBillingMetrics collects billing gauge metrics for all properties.
func (bm *BusinessMetrics) collectBillingMetrics(ctx context.Context, propertyProvider PropertyProvider) {
	if bm.billingProvider == nil {
		bm.logger.Debug("No billing provider configured, skipping billing metrics collection")
		return
	}

	propertyIDs, err := propertyProvider.GetActivePropertyIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get property IDs for metrics collection", zap.Error(err))
		return
	}

	for _, propertyID := range propertyIDs {
		bm.collectPropertyBillingMetrics(ctx, propertyID)
	}
}

// collectPropertyBillingMetrics collects billing metrics for a single property.
func (bm *BusinessMetrics) collectPropertyBillingMetrics(ctx context.Context, propertyID uuid.UUID) {
	openFolios, err := bm.billingProvider.GetOpenFolioCount(ctx, propertyID)
	if err != nil {
		bm.logger.Warn("Failed to get open folio count for property",
			zap.String("property_id", propertyID.String()),
			zap.Error(err),
		)
	} else {
		bm.openFolioCount.Record(ctx, openFolios,
			AttrPropertyID.String(propertyID.String()),
		)
	}

	openRequests, err := bm.billingProvider.GetOpenQRRequestCount(ctx, propertyID)
	if err != nil {
		bm.logger.Warn("Failed to get open QR request count for property",
			zap.String("property_id", propertyID.String()),
			zap.Error(err),
		)
	} else {
		bm.openQRRequestCount.Record(ctx, openRequests,
			AttrPropertyID.String(propertyID.String()),
		)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
