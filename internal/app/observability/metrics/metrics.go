package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal        metric.Int64Counter
	HTTPRequestDuration      metric.Float64Histogram
	GenerationBatchesTotal   metric.Int64Counter
	GenerationDuration       metric.Float64Histogram
	ExpenseEntriesDeleted    metric.Int64Counter
	ImageLookupsTotal        metric.Int64Counter
	DBQueryErrorsTotal       metric.Int64Counter
	CreditsPurchasedTotal    metric.Int64Counter
	OrphanExpensesSweptTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider. Safe to call more than once.
func InitAppMetrics() error {
	var initErr error
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("wanderplan")
		m := &AppMetrics{}
		var err error

		if m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		); err != nil {
			initErr = err
			return
		}

		if m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		); err != nil {
			initErr = err
			return
		}

		if m.GenerationBatchesTotal, err = meter.Int64Counter(
			"ai_generation_batches_total",
			metric.WithDescription("AI generation batches by batch and status"),
			metric.WithUnit("{batch}"),
		); err != nil {
			initErr = err
			return
		}

		if m.GenerationDuration, err = meter.Float64Histogram(
			"ai_generation_duration_seconds",
			metric.WithDescription("Duration of a full three-batch generation"),
			metric.WithUnit("s"),
		); err != nil {
			initErr = err
			return
		}

		if m.ExpenseEntriesDeleted, err = meter.Int64Counter(
			"expense_entries_deleted_total",
			metric.WithDescription("Expense entries removed by bulk delete"),
			metric.WithUnit("{entry}"),
		); err != nil {
			initErr = err
			return
		}

		if m.ImageLookupsTotal, err = meter.Int64Counter(
			"image_lookups_total",
			metric.WithDescription("Image lookups by resolving source"),
			metric.WithUnit("{lookup}"),
		); err != nil {
			initErr = err
			return
		}

		if m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		); err != nil {
			initErr = err
			return
		}

		if m.CreditsPurchasedTotal, err = meter.Int64Counter(
			"credits_purchased_total",
			metric.WithDescription("Generation credits granted through checkout"),
			metric.WithUnit("{credit}"),
		); err != nil {
			initErr = err
			return
		}

		if m.OrphanExpensesSweptTotal, err = meter.Int64Counter(
			"orphan_expenses_swept_total",
			metric.WithDescription("Expense documents removed because their plan no longer exists"),
			metric.WithUnit("{document}"),
		); err != nil {
			initErr = err
			return
		}

		appMetrics = m
	})
	return initErr
}

// Get returns the initialized instruments, or nil before InitAppMetrics succeeded.
func Get() *AppMetrics {
	return appMetrics
}

// Add increments counter when metrics are initialized. Components call it
// unconditionally so tests need no meter provider.
func Add(ctx context.Context, pick func(*AppMetrics) metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	m := Get()
	if m == nil {
		return
	}
	pick(m).Add(ctx, n, metric.WithAttributes(attrs...))
}

// Record stores a histogram sample when metrics are initialized.
func Record(ctx context.Context, pick func(*AppMetrics) metric.Float64Histogram, v float64, attrs ...attribute.KeyValue) {
	m := Get()
	if m == nil {
		return
	}
	pick(m).Record(ctx, v, metric.WithAttributes(attrs...))
}
