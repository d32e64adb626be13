package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinates of a place, as returned by the AI or chosen on the map.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" bson:"lng" validate:"gte=-180,lte=180"`
}

type TopPlace struct {
	Name        string      `json:"name" bson:"name" validate:"required"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

type ItineraryActivity struct {
	ItineraryItem    string `json:"itineraryItem" bson:"itineraryItem" validate:"required"`
	BriefDescription string `json:"briefDescription" bson:"briefDescription"`
}

type DayActivities struct {
	Morning   []ItineraryActivity `json:"morning" bson:"morning" validate:"dive"`
	Afternoon []ItineraryActivity `json:"afternoon" bson:"afternoon" validate:"dive"`
	Evening   []ItineraryActivity `json:"evening" bson:"evening" validate:"dive"`
}

// ItineraryDay is one entry of the ordered day-by-day schedule.
type ItineraryDay struct {
	Title      string        `json:"title" bson:"title" validate:"required"`
	Activities DayActivities `json:"activities" bson:"activities"`
}

// ContentGenerationState flags which descriptive sections have been populated, by AI or by hand.
type ContentGenerationState struct {
	Imagination                 bool `json:"imagination" bson:"imagination"`
	AboutThePlace               bool `json:"abouttheplace" bson:"abouttheplace"`
	BestTimeToVisit             bool `json:"besttimetovisit" bson:"besttimetovisit"`
	AdventuresActivitiesToDo    bool `json:"adventuresactivitiestodo" bson:"adventuresactivitiestodo"`
	LocalCuisineRecommendations bool `json:"localcuisinerecommendations" bson:"localcuisinerecommendations"`
	PackingChecklist            bool `json:"packingchecklist" bson:"packingchecklist"`
	Itinerary                   bool `json:"itinerary" bson:"itinerary"`
	TopPlacesToVisit            bool `json:"topplacestovisit" bson:"topplacestovisit"`
}

type Collaborator struct {
	Email     string    `json:"email" bson:"email"`
	UserID    string    `json:"userId" bson:"userId"`
	InvitedAt time.Time `json:"invitedAt" bson:"invitedAt"`
}

// Plan is the central trip document.
type Plan struct {
	ID                          primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	PlanID                      string                 `json:"planID" bson:"planID"`
	UserID                      string                 `json:"userId" bson:"userId"`
	NameOfThePlace              string                 `json:"nameoftheplace" bson:"nameoftheplace" binding:"required"`
	UserPrompt                  string                 `json:"userPrompt" bson:"userPrompt"`
	FromDate                    string                 `json:"fromDate,omitempty" bson:"fromDate,omitempty"`
	ToDate                      string                 `json:"toDate,omitempty" bson:"toDate,omitempty"`
	ActivityPreferences         []string               `json:"activityPreferences" bson:"activityPreferences"`
	Companion                   string                 `json:"companion,omitempty" bson:"companion,omitempty"`
	AboutThePlace               string                 `json:"abouttheplace" bson:"abouttheplace"`
	BestTimeToVisit             string                 `json:"besttimetovisit" bson:"besttimetovisit"`
	AdventuresActivitiesToDo    []string               `json:"adventuresactivitiestodo" bson:"adventuresactivitiestodo"`
	LocalCuisineRecommendations []string               `json:"localcuisinerecommendations" bson:"localcuisinerecommendations"`
	PackingChecklist            []string               `json:"packingchecklist" bson:"packingchecklist"`
	Itinerary                   []ItineraryDay         `json:"itinerary" bson:"itinerary"`
	TopPlacesToVisit            []TopPlace             `json:"topplacestovisit" bson:"topplacestovisit"`
	ContentGenerationState      ContentGenerationState `json:"contentGenerationState" bson:"contentGenerationState"`
	IsGeneratedUsingAI          bool                   `json:"isGeneratedUsingAI" bson:"isGeneratedUsingAI"`
	IsPublic                    bool                   `json:"isPublic" bson:"isPublic"`
	PreferredCurrency           string                 `json:"preferredCurrency,omitempty" bson:"preferredCurrency,omitempty"`
	Collaborators               []Collaborator         `json:"collaborators" bson:"collaborators"`
	CreatedAt                   time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt                   time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// CanAccess reports whether userID owns the plan or was invited to it.
func (p *Plan) CanAccess(userID string) bool {
	if userID == "" {
		return false
	}
	if p.UserID == userID {
		return true
	}
	for _, c := range p.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// GenerationRequest carries the trip parameters used to build the AI prompts.
type GenerationRequest struct {
	UserPrompt          string   `json:"userPrompt" binding:"required,max=500"`
	FromDate            string   `json:"fromDate" binding:"required"`
	ToDate              string   `json:"toDate" binding:"required"`
	ActivityPreferences []string `json:"activityPreferences"`
	Companion           string   `json:"companion"`
	IsPublic            bool     `json:"isPublic"`
}

// GenerationResult is returned by the AI orchestration: the stored plan and the batches that failed.
type GenerationResult struct {
	Plan          *Plan    `json:"plan"`
	FailedBatches []string `json:"failedBatches"`
}

// SectionUpdate carries the single field addressed by PUT /api/plan/:planId/:section.
type SectionUpdate struct {
	AboutThePlace               *string         `json:"abouttheplace"`
	BestTimeToVisit             *string         `json:"besttimetovisit"`
	PackingChecklist            *[]string       `json:"packingchecklist"`
	LocalCuisineRecommendations *[]string       `json:"localcuisinerecommendations"`
	AdventuresActivitiesToDo    *[]string       `json:"adventuresactivitiestodo"`
	Itinerary                   *[]ItineraryDay `json:"itinerary"`
	TopPlacesToVisit            *[]TopPlace     `json:"topplacestovisit"`
}

type CurrencyRequest struct {
	Currency string `json:"currency" binding:"required,len=3"`
}

type VisibilityRequest struct {
	IsPublic *bool `json:"isPublic" binding:"required"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}
