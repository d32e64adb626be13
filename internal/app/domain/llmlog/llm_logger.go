package llmlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// LLMLogger writes interaction records without blocking the generation request.
type LLMLogger struct {
	logger *zap.Logger
	repo   Repository
}

func NewLLMLogger(logger *zap.Logger, repo Repository) *LLMLogger {
	return &LLMLogger{
		logger: logger,
		repo:   repo,
	}
}

// HashPrompt creates a SHA256 hash of the prompt so prompts are tracked without being stored.
func HashPrompt(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(hash[:])
}

// LogInteractionAsync stores the record in the background. The request context may be
// cancelled before the write happens.
func (l *LLMLogger) LogInteractionAsync(ctx context.Context, interaction models.LLMInteraction) {
	asyncCtx := context.WithoutCancel(ctx)
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(asyncCtx, 5*time.Second)
		defer cancel()
		if err := l.repo.Save(writeCtx, interaction); err != nil {
			l.logger.Error("Failed to log LLM interaction asynchronously",
				zap.String("planId", interaction.PlanID),
				zap.String("batch", interaction.Batch),
				zap.Error(err))
		}
	}()
}

func (l *LLMLogger) ListByPlan(ctx context.Context, planID string, limit int) ([]models.LLMInteraction, error) {
	return l.repo.ListByPlan(ctx, planID, limit)
}
