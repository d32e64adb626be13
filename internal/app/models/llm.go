package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationBatch names one of the three schema batches of AI plan generation.
type GenerationBatch string

const (
	BatchBasicInfo  GenerationBatch = "batch1"
	BatchActivities GenerationBatch = "batch2"
	BatchItinerary  GenerationBatch = "batch3"
)

// LLMInteraction is one completion call as recorded in the interaction log.
type LLMInteraction struct {
	ID               uuid.UUID `json:"id"`
	PlanID           string    `json:"planId"`
	UserID           string    `json:"userId"`
	Batch            string    `json:"batch"`
	Provider         string    `json:"provider"`
	ModelName        string    `json:"model"`
	PromptHash       string    `json:"promptHash"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	LatencyMs        int64     `json:"latencyMs"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
