package generation

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiCompleter struct {
	client *genai.Client
	model  string
}

var _ Completer = (*GeminiCompleter)(nil)

func NewGeminiCompleter(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiCompleter, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewGeminiCompleter")
	defer span.End()

	if apiKey == "" {
		err := fmt.Errorf("AI_API_KEY environment variable is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Provider() string { return ProviderGemini }

func (g *GeminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GeminiComplete", trace.WithAttributes(
		attribute.String("model", g.model),
		attribute.Int("prompt.length", len(systemPrompt)+len(userPrompt)),
	))
	defer span.End()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	completion := &Completion{Content: result.Text(), Model: g.model}
	if result.UsageMetadata != nil {
		completion.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	span.SetAttributes(attribute.Int("response.length", len(completion.Content)))
	return completion, nil
}
