package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/observability/metrics"
)

const sweepTimeout = 2 * time.Minute

// ExpenseSweeper lists and removes expense documents by plan.
type ExpenseSweeper interface {
	DistinctPlanIDs(ctx context.Context) ([]string, error)
	DeleteByPlanIDs(ctx context.Context, planIDs []string) (int64, error)
}

type PlanLookup interface {
	ExistingPlanIDs(ctx context.Context, planIDs []string) (map[string]bool, error)
}

// Scheduler runs the background maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	expenses ExpenseSweeper
	plans    PlanLookup
	logger   *zap.Logger
}

// cronLogger routes cron's internal logging, including recovered job panics, to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

var _ cron.Logger = cronLogger{}

func newCronLogger(logger *zap.Logger) cronLogger {
	return cronLogger{sugar: logger.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

func NewScheduler(expenses ExpenseSweeper, plans PlanLookup, logger *zap.Logger) *Scheduler {
	cl := newCronLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(
				cron.Recover(cl),
				cron.SkipIfStillRunning(cl),
			),
		),
		expenses: expenses,
		plans:    plans,
		logger:   logger,
	}
}

// Start registers the orphan sweep on schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info("Orphan expense sweep disabled")
		return nil
	}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepOrphanExpenses(ctx); err != nil {
			s.logger.Error("Orphan expense sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add orphan sweep job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("orphanSweep", schedule))
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

// SweepOrphanExpenses deletes expense documents whose plan no longer exists.
func (s *Scheduler) SweepOrphanExpenses(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("Jobs").Start(ctx, "SweepOrphanExpenses")
	defer span.End()

	planIDs, err := s.expenses.DistinctPlanIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expense plan ids: %w", err)
	}
	if len(planIDs) == 0 {
		return 0, nil
	}

	existing, err := s.plans.ExistingPlanIDs(ctx, planIDs)
	if err != nil {
		return 0, fmt.Errorf("lookup plans: %w", err)
	}

	var orphans []string
	for _, id := range planIDs {
		if !existing[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	deleted, err := s.expenses.DeleteByPlanIDs(ctx, orphans)
	if err != nil {
		return 0, fmt.Errorf("delete orphan expenses: %w", err)
	}
	span.SetAttributes(attribute.Int64("deleted", deleted))
	metrics.Add(ctx, func(m *metrics.AppMetrics) metric.Int64Counter { return m.OrphanExpensesSweptTotal }, deleted)

	s.logger.Info("Orphan expenses swept",
		zap.Int("orphanPlans", len(orphans)),
		zap.Int64("deletedDocuments", deleted))
	return deleted, nil
}
