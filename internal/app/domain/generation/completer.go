package generation

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Completion is the raw text answer of one model call plus its token usage.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completer sends one system + user prompt pair to a model that answers in JSON mode.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
	Provider() string
}

// NewCompleter builds the client selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, httpClient), nil
	case ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model, httpClient)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
