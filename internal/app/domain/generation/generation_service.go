package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/llmlog"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/app/observability/metrics"
)

const defaultCallTimeout = 60 * time.Second

// PlanStore is the part of the plan repository generation writes through.
type PlanStore interface {
	CreatePlan(ctx context.Context, plan *models.Plan) error
	GetPlanByPlanID(ctx context.Context, planID string) (*models.Plan, error)
	UpdateFields(ctx context.Context, planID string, set bson.M) error
	DeletePlan(ctx context.Context, planID string) error
}

// CreditLedger charges and refunds generation credits.
type CreditLedger interface {
	ConsumeCredit(ctx context.Context, userID string) (auth.CreditKind, error)
	RefundCredit(ctx context.Context, userID string, kind auth.CreditKind) error
}

// InteractionRecorder receives one record per model call.
type InteractionRecorder interface {
	LogInteractionAsync(ctx context.Context, interaction models.LLMInteraction)
}

type GenerationService interface {
	GeneratePlan(ctx context.Context, userID string, req models.GenerationRequest) (*models.GenerationResult, error)
}

type GenerationServiceImpl struct {
	logger      *zap.Logger
	completer   Completer
	plans       PlanStore
	credits     CreditLedger
	recorder    InteractionRecorder
	guard       *PromptGuard
	callTimeout time.Duration
}

var _ GenerationService = (*GenerationServiceImpl)(nil)

func NewGenerationService(completer Completer, plans PlanStore, credits CreditLedger, recorder InteractionRecorder,
	callTimeout time.Duration, logger *zap.Logger) *GenerationServiceImpl {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &GenerationServiceImpl{
		logger:      logger,
		completer:   completer,
		plans:       plans,
		credits:     credits,
		recorder:    recorder,
		guard:       NewPromptGuard(),
		callTimeout: callTimeout,
	}
}

func (s *GenerationServiceImpl) GeneratePlan(ctx context.Context, userID string, req models.GenerationRequest) (*models.GenerationResult, error) {
	ctx, span := otel.Tracer("GenerationService").Start(ctx, "GeneratePlan", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("ai.provider", s.completer.Provider()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "GeneratePlan"), zap.String("userId", userID))

	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	place := strings.TrimSpace(req.UserPrompt)
	if place == "" {
		return nil, fmt.Errorf("%w: userPrompt is required", models.ErrValidation)
	}
	if phrase := s.guard.Check(place); phrase != "" {
		l.Warn("Prompt rejected by guard", zap.String("phrase", phrase))
		return nil, fmt.Errorf("%w: prompt contains disallowed instructions", models.ErrBadRequest)
	}
	if err := checkDateRange(req.FromDate, req.ToDate); err != nil {
		return nil, err
	}

	kind, err := s.credits.ConsumeCredit(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().UTC()
	plan := &models.Plan{
		ID:                     primitive.NilObjectID,
		PlanID:                 uuid.NewString(),
		UserID:                 userID,
		NameOfThePlace:         cases.Title(language.Und).String(place),
		UserPrompt:             place,
		FromDate:               req.FromDate,
		ToDate:                 req.ToDate,
		ActivityPreferences:    req.ActivityPreferences,
		Companion:              req.Companion,
		IsGeneratedUsingAI:     true,
		IsPublic:               req.IsPublic,
		ContentGenerationState: models.ContentGenerationState{Imagination: true},
		Collaborators:          []models.Collaborator{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		s.refund(ctx, l, userID, kind)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create plan shell: %w", err)
	}
	span.SetAttributes(attribute.String("plan.id", plan.PlanID))

	failed := s.runBatches(ctx, l, plan, req)

	if len(failed) == len(batches) {
		// The caller may have gone away; the shell must still be removed.
		if err := s.plans.DeletePlan(context.WithoutCancel(ctx), plan.PlanID); err != nil {
			l.Error("Failed to remove empty generated plan", zap.String("planId", plan.PlanID), zap.Error(err))
		}
		s.refund(ctx, l, userID, kind)
		span.SetStatus(codes.Error, "all batches failed")
		return nil, models.ErrGenerationFailed
	}

	stored, err := s.plans.GetPlanByPlanID(ctx, plan.PlanID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to reload generated plan: %w", err)
	}

	l.Info("Plan generated",
		zap.String("planId", plan.PlanID),
		zap.Strings("failedBatches", failed))
	span.SetStatus(codes.Ok, "plan generated")
	return &models.GenerationResult{Plan: stored, FailedBatches: failed}, nil
}

// runBatches executes every batch in parallel. A batch failure never cancels its siblings
// and nothing is written for a failed batch.
func (s *GenerationServiceImpl) runBatches(ctx context.Context, l *zap.Logger, plan *models.Plan, req models.GenerationRequest) []string {
	prompt := userPrompt(req)

	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	for _, b := range batches {
		g.Go(func() error {
			if err := s.runBatch(ctx, plan, b, prompt); err != nil {
				l.Warn("Generation batch failed",
					zap.String("planId", plan.PlanID),
					zap.String("batch", string(b.name)),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, string(b.name))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return orderedBatchNames(failed)
}

func (s *GenerationServiceImpl) runBatch(ctx context.Context, plan *models.Plan, b batch, prompt string) error {
	ctx, span := otel.Tracer("GenerationService").Start(ctx, "runBatch", trace.WithAttributes(
		attribute.String("plan.id", plan.PlanID),
		attribute.String("batch", string(b.name)),
	))
	defer span.End()

	system := systemPrompt(b.schema)
	interaction := models.LLMInteraction{
		PlanID:     plan.PlanID,
		UserID:     plan.UserID,
		Batch:      string(b.name),
		Provider:   s.completer.Provider(),
		PromptHash: llmlog.HashPrompt(system + "\n" + prompt),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	completion, err := s.completer.Complete(callCtx, system, prompt)
	elapsed := time.Since(start)
	interaction.LatencyMs = elapsed.Milliseconds()

	fields, err := s.decodeCompletion(completion, err, b)
	if completion != nil {
		interaction.ModelName = completion.Model
		interaction.PromptTokens = completion.PromptTokens
		interaction.CompletionTokens = completion.CompletionTokens
	}
	if err == nil {
		fields["updatedAt"] = time.Now().UTC()
		err = s.plans.UpdateFields(ctx, plan.PlanID, fields)
	}

	status := llmlog.StatusSuccess
	if err != nil {
		status = llmlog.StatusError
		interaction.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
	}
	interaction.Status = status
	s.recorder.LogInteractionAsync(ctx, interaction)

	attrs := []attribute.KeyValue{
		attribute.String("batch", string(b.name)),
		attribute.String("status", status),
	}
	metrics.Add(ctx, func(m *metrics.AppMetrics) metric.Int64Counter { return m.GenerationBatchesTotal }, 1, attrs...)
	metrics.Record(ctx, func(m *metrics.AppMetrics) metric.Float64Histogram { return m.GenerationDuration }, elapsed.Seconds(), attrs...)

	return err
}

func (s *GenerationServiceImpl) decodeCompletion(completion *Completion, callErr error, b batch) (bson.M, error) {
	if callErr != nil {
		if errors.Is(callErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s", models.ErrGenerationFailed, b.name, s.callTimeout)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationFailed, callErr)
	}
	fields, err := b.decode([]byte(cleanJSONResponse(completion.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}
	return fields, nil
}

func (s *GenerationServiceImpl) refund(ctx context.Context, l *zap.Logger, userID string, kind auth.CreditKind) {
	if err := s.credits.RefundCredit(context.WithoutCancel(ctx), userID, kind); err != nil {
		l.Error("Failed to refund generation credit", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func orderedBatchNames(failed []string) []string {
	out := make([]string, 0, len(failed))
	for _, b := range batches {
		for _, f := range failed {
			if f == string(b.name) {
				out = append(out, f)
			}
		}
	}
	return out
}

var dateLayouts = []string{time.DateOnly, time.RFC3339}

func parseTripDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func checkDateRange(from, to string) error {
	fromT, okFrom := parseTripDate(from)
	toT, okTo := parseTripDate(to)
	if okFrom && okTo && toT.Before(fromT) {
		return fmt.Errorf("%w: toDate must not be before fromDate", models.ErrValidation)
	}
	return nil
}
