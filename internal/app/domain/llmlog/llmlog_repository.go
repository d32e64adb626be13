package llmlog

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

const interactionsTable = "llm_interactions"

var interactionColumns = []string{
	"id", "plan_id", "user_id", "batch", "provider", "model", "prompt_hash",
	"prompt_tokens", "completion_tokens", "latency_ms", "status", "error_message", "created_at",
}

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository stores one row per AI completion call.
type Repository interface {
	Save(ctx context.Context, interaction models.LLMInteraction) error
	ListByPlan(ctx context.Context, planID string, limit int) ([]models.LLMInteraction, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = NoopRepository{}
)

type PostgresRepository struct {
	pgpool DBTX
	logger *zap.Logger
	psql   sq.StatementBuilderType
}

func NewPostgresRepository(pgpool DBTX, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		pgpool: pgpool,
		logger: logger,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresRepository) Save(ctx context.Context, i models.LLMInteraction) error {
	ctx, span := otel.Tracer("LLMLogRepository").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("plan.id", i.PlanID),
		attribute.String("llm.batch", i.Batch),
	))
	defer span.End()

	query, args, err := r.psql.Insert(interactionsTable).
		Columns(interactionColumns...).
		Values(i.ID, i.PlanID, i.UserID, i.Batch, i.Provider, i.ModelName, i.PromptHash,
			i.PromptTokens, i.CompletionTokens, i.LatencyMs, i.Status, i.ErrorMessage, i.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.pgpool.Exec(ctx, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert interaction failed")
		return fmt.Errorf("failed to insert llm interaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByPlan(ctx context.Context, planID string, limit int) ([]models.LLMInteraction, error) {
	ctx, span := otel.Tracer("LLMLogRepository").Start(ctx, "ListByPlan", trace.WithAttributes(
		attribute.String("plan.id", planID),
	))
	defer span.End()

	query, args, err := r.psql.Select(interactionColumns...).
		From(interactionsTable).
		Where(sq.Eq{"plan_id": planID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query llm interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]models.LLMInteraction, 0)
	for rows.Next() {
		var i models.LLMInteraction
		if err := rows.Scan(&i.ID, &i.PlanID, &i.UserID, &i.Batch, &i.Provider, &i.ModelName, &i.PromptHash,
			&i.PromptTokens, &i.CompletionTokens, &i.LatencyMs, &i.Status, &i.ErrorMessage, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan llm interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating llm interactions: %w", err)
	}
	return interactions, nil
}

// NoopRepository is used when no Postgres URL is configured.
type NoopRepository struct{}

func (NoopRepository) Save(context.Context, models.LLMInteraction) error { return nil }

func (NoopRepository) ListByPlan(context.Context, string, int) ([]models.LLMInteraction, error) {
	return []models.LLMInteraction{}, nil
}
