package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/app/observability/metrics"
)

const idempotencyTTL = 10 * time.Minute

// PlanAccessor authorizes plan members.
type PlanAccessor interface {
	GetAccessiblePlan(ctx context.Context, userID, planID string) (*models.Plan, error)
}

var _ ExpenseService = (*ExpenseServiceImpl)(nil)

type ExpenseService interface {
	AddExpense(ctx context.Context, userID string, req models.AddExpenseRequest) (*models.Expense, error)
	GetExpenses(ctx context.Context, userID, planID string, filter models.ExpenseFilter) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, docID string, req models.UpdateExpenseRequest) (*models.Expense, error)
	DeleteMultiple(ctx context.Context, userID, planID string, refs []models.ExpenseRef, idempotencyKey string) (*models.DeleteMultipleResult, error)
	ListPlanExpenses(ctx context.Context, userID, planID string) ([]models.Expense, error)
	Summary(ctx context.Context, userID, planID string) (*models.ExpenseSummary, error)
}

type ExpenseServiceImpl struct {
	logger      *zap.Logger
	repo        ExpenseRepo
	plans       PlanAccessor
	idempotency *cache.Cache
}

func NewExpenseService(repo ExpenseRepo, plans PlanAccessor, logger *zap.Logger) *ExpenseServiceImpl {
	return &ExpenseServiceImpl{
		logger:      logger,
		repo:        repo,
		plans:       plans,
		idempotency: cache.New(idempotencyTTL, 2*idempotencyTTL),
	}
}

func normalizeCurrency(code string) (string, error) {
	if code == "" {
		return "", nil
	}
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, models.ErrValidation)
	}
	return unit.String(), nil
}

func (s *ExpenseServiceImpl) AddExpense(ctx context.Context, userID string, req models.AddExpenseRequest) (*models.Expense, error) {
	ctx, span := otel.Tracer("ExpenseService").Start(ctx, "AddExpense", trace.WithAttributes(
		attribute.String("plan.id", req.PlanID),
	))
	defer span.End()

	code, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetAccessiblePlan(ctx, userID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if code == "" {
		code = plan.PreferredCurrency
	}

	entry := models.ExpenseEntry{
		ID:       primitive.NewObjectID(),
		Purpose:  strings.TrimSpace(req.Purpose),
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date.UTC(),
		WhoSpent: strings.TrimSpace(req.WhoSpent),
	}
	return s.repo.AddEntry(ctx, req.PlanID, userID, code, entry)
}

// GetExpenses returns the caller's document for the plan with only the entries matching filter.
func (s *ExpenseServiceImpl) GetExpenses(ctx context.Context, userID, planID string, filter models.ExpenseFilter) (*models.Expense, error) {
	if _, err := s.plans.GetAccessiblePlan(ctx, userID, planID); err != nil {
		return nil, err
	}

	doc, err := s.repo.GetByPlanAndUser(ctx, planID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.Expense{PlanID: planID, UserID: userID, Expenses: []models.ExpenseEntry{}}, nil
		}
		return nil, err
	}

	filtered := make([]models.ExpenseEntry, 0, len(doc.Expenses))
	for _, entry := range doc.Expenses {
		if filter.Match(entry) {
			filtered = append(filtered, entry)
		}
	}
	doc.Expenses = filtered
	return doc, nil
}

func (s *ExpenseServiceImpl) UpdateExpense(ctx context.Context, userID, docID string, req models.UpdateExpenseRequest) (*models.Expense, error) {
	docOID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		return nil, fmt.Errorf("expense document id %q: %w", docID, models.ErrInvalidID)
	}
	entryOID, err := primitive.ObjectIDFromHex(req.ExpenseID)
	if err != nil {
		return nil, fmt.Errorf("expense id %q: %w", req.ExpenseID, models.ErrInvalidID)
	}

	entry := models.ExpenseEntry{
		ID:       entryOID,
		Purpose:  strings.TrimSpace(req.Purpose),
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date.UTC(),
		WhoSpent: strings.TrimSpace(req.WhoSpent),
	}
	return s.repo.UpdateEntry(ctx, docOID, userID, entry)
}

// DeleteMultiple removes each addressed entry independently. Malformed ids, documents of other
// plans and unknown entries are skipped. A storage error stops the batch; entries already
// removed stay removed.
func (s *ExpenseServiceImpl) DeleteMultiple(ctx context.Context, userID, planID string, refs []models.ExpenseRef, idempotencyKey string) (*models.DeleteMultipleResult, error) {
	ctx, span := otel.Tracer("ExpenseService").Start(ctx, "DeleteMultiple", trace.WithAttributes(
		attribute.String("plan.id", planID),
		attribute.Int("refs.count", len(refs)),
	))
	defer span.End()

	if idempotencyKey == "" {
		return s.deleteEntries(ctx, userID, planID, refs)
	}

	cacheKey := userID + "|" + planID + "|" + idempotencyKey
	call := &idempotentDelete{done: make(chan struct{})}
	for s.idempotency.Add(cacheKey, call, cache.DefaultExpiration) != nil {
		prior, ok := s.idempotency.Get(cacheKey)
		if !ok {
			continue
		}
		span.SetAttributes(attribute.Bool("idempotent.replay", true))
		first := prior.(*idempotentDelete)
		select {
		case <-first.done:
			return first.result, first.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call.result, call.err = s.deleteEntries(ctx, userID, planID, refs)
	if call.err != nil {
		s.idempotency.Delete(cacheKey)
	}
	close(call.done)
	return call.result, call.err
}

// idempotentDelete is the reservation a keyed delete-multiple holds while it runs.
// Requests reusing the key wait on done and replay the outcome.
type idempotentDelete struct {
	done   chan struct{}
	result *models.DeleteMultipleResult
	err    error
}

func (s *ExpenseServiceImpl) deleteEntries(ctx context.Context, userID, planID string, refs []models.ExpenseRef) (*models.DeleteMultipleResult, error) {
	span := trace.SpanFromContext(ctx)

	if _, err := s.plans.GetAccessiblePlan(ctx, userID, planID); err != nil {
		return nil, err
	}

	result := &models.DeleteMultipleResult{Success: true, DeletedEntries: []models.ExpenseRef{}}
	for _, ref := range refs {
		docID, err := primitive.ObjectIDFromHex(ref.ExpenseDocID)
		if err != nil {
			s.logger.Debug("skipping malformed expense document id", zap.String("expenseDocId", ref.ExpenseDocID))
			continue
		}
		entryID, err := primitive.ObjectIDFromHex(ref.ExpenseID)
		if err != nil {
			s.logger.Debug("skipping malformed expense id", zap.String("expenseId", ref.ExpenseID))
			continue
		}

		removed, err := s.repo.PullEntry(ctx, docID, planID, entryID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !removed {
			continue
		}
		result.DeletedEntries = append(result.DeletedEntries, ref)

		if _, err := s.repo.DeleteIfEmpty(ctx, docID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	result.DeletedCount = len(result.DeletedEntries)

	metrics.Add(ctx, func(m *metrics.AppMetrics) metric.Int64Counter { return m.ExpenseEntriesDeleted },
		int64(result.DeletedCount))
	s.logger.Info("expenses deleted",
		zap.String("planId", planID),
		zap.Int("requested", len(refs)),
		zap.Int("deleted", result.DeletedCount))
	return result, nil
}

func (s *ExpenseServiceImpl) ListPlanExpenses(ctx context.Context, userID, planID string) ([]models.Expense, error) {
	if _, err := s.plans.GetAccessiblePlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.repo.ListByPlan(ctx, planID)
}

// Summary totals every member's entries for the plan using decimal arithmetic.
func (s *ExpenseServiceImpl) Summary(ctx context.Context, userID, planID string) (*models.ExpenseSummary, error) {
	plan, err := s.plans.GetAccessiblePlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return summarize(planID, plan.PreferredCurrency, docs), nil
}

func summarize(planID, preferredCurrency string, docs []models.Expense) *models.ExpenseSummary {
	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	byPerson := map[string]decimal.Decimal{}
	count := 0
	code := preferredCurrency

	for _, doc := range docs {
		if code == "" {
			code = doc.Currency
		}
		for _, entry := range doc.Expenses {
			amount := decimal.NewFromFloat(entry.Amount)
			total = total.Add(amount)
			byCategory[string(entry.Category)] = byCategory[string(entry.Category)].Add(amount)

			who := entry.WhoSpent
			if who == "" {
				who = doc.UserID
			}
			byPerson[who] = byPerson[who].Add(amount)
			count++
		}
	}

	summary := &models.ExpenseSummary{
		PlanID:     planID,
		Currency:   code,
		Total:      total.StringFixed(2),
		Count:      count,
		ByCategory: make(map[string]string, len(byCategory)),
		ByPerson:   make(map[string]string, len(byPerson)),
	}
	for k, v := range byCategory {
		summary.ByCategory[k] = v.StringFixed(2)
	}
	for k, v := range byPerson {
		summary.ByPerson[k] = v.StringFixed(2)
	}
	return summary
}
