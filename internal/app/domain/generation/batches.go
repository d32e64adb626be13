package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const batch1Schema = `{
  "type": "object",
  "properties": {
    "abouttheplace": {"type": "string", "description": "About the place description, at least 50 words"},
    "besttimetovisit": {"type": "string", "description": "Best time to visit the place"}
  },
  "required": ["abouttheplace", "besttimetovisit"]
}`

const batch2Schema = `{
  "type": "object",
  "properties": {
    "adventuresactivitiestodo": {"type": "array", "items": {"type": "string"}, "description": "Top adventures and activities, at least 5, with a place name"},
    "localcuisinerecommendations": {"type": "array", "items": {"type": "string"}, "description": "Local cuisine recommendations"},
    "packingchecklist": {"type": "array", "items": {"type": "string"}, "description": "Packing checklist for the trip"}
  },
  "required": ["adventuresactivitiestodo", "localcuisinerecommendations", "packingchecklist"]
}`

const batch3Schema = `{
  "type": "object",
  "properties": {
    "itinerary": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string", "description": "Day title, e.g. Day 1: Arrival"},
          "activities": {
            "type": "object",
            "properties": {
              "morning": {"type": "array", "items": {"$ref": "#/definitions/activity"}},
              "afternoon": {"type": "array", "items": {"$ref": "#/definitions/activity"}},
              "evening": {"type": "array", "items": {"$ref": "#/definitions/activity"}}
            },
            "required": ["morning", "afternoon", "evening"]
          }
        },
        "required": ["title", "activities"]
      }
    },
    "topplacestovisit": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "coordinates": {
            "type": "object",
            "properties": {"lat": {"type": "number"}, "lng": {"type": "number"}},
            "required": ["lat", "lng"]
          }
        },
        "required": ["name", "coordinates"]
      }
    }
  },
  "required": ["itinerary", "topplacestovisit"],
  "definitions": {
    "activity": {
      "type": "object",
      "properties": {
        "itineraryItem": {"type": "string"},
        "briefDescription": {"type": "string"}
      },
      "required": ["itineraryItem", "briefDescription"]
    }
  }
}`

type basicInfo struct {
	AboutThePlace   string `json:"abouttheplace" validate:"required"`
	BestTimeToVisit string `json:"besttimetovisit" validate:"required"`
}

type activitiesInfo struct {
	AdventuresActivitiesToDo    []string `json:"adventuresactivitiestodo" validate:"required,min=1,dive,required"`
	LocalCuisineRecommendations []string `json:"localcuisinerecommendations" validate:"required,min=1,dive,required"`
	PackingChecklist            []string `json:"packingchecklist" validate:"required,min=1,dive,required"`
}

type itineraryInfo struct {
	Itinerary        []models.ItineraryDay `json:"itinerary" validate:"required,min=1,dive"`
	TopPlacesToVisit []models.TopPlace     `json:"topplacestovisit" validate:"required,min=1,dive"`
}

// batch describes one of the three model calls that fill a generated plan.
type batch struct {
	name   models.GenerationBatch
	schema string
	// decode turns a cleaned JSON answer into the plan fields and content flags to $set.
	decode func(raw []byte) (bson.M, error)
}

var batches = []batch{
	{
		name:   models.BatchBasicInfo,
		schema: batch1Schema,
		decode: func(raw []byte) (bson.M, error) {
			var out basicInfo
			if err := decodeAndValidate(raw, &out); err != nil {
				return nil, err
			}
			return bson.M{
				"abouttheplace":                          out.AboutThePlace,
				"besttimetovisit":                        out.BestTimeToVisit,
				"contentGenerationState.abouttheplace":   true,
				"contentGenerationState.besttimetovisit": true,
			}, nil
		},
	},
	{
		name:   models.BatchActivities,
		schema: batch2Schema,
		decode: func(raw []byte) (bson.M, error) {
			var out activitiesInfo
			if err := decodeAndValidate(raw, &out); err != nil {
				return nil, err
			}
			return bson.M{
				"adventuresactivitiestodo":                           out.AdventuresActivitiesToDo,
				"localcuisinerecommendations":                        out.LocalCuisineRecommendations,
				"packingchecklist":                                   out.PackingChecklist,
				"contentGenerationState.adventuresactivitiestodo":    true,
				"contentGenerationState.localcuisinerecommendations": true,
				"contentGenerationState.packingchecklist":            true,
			}, nil
		},
	},
	{
		name:   models.BatchItinerary,
		schema: batch3Schema,
		decode: func(raw []byte) (bson.M, error) {
			var out itineraryInfo
			if err := decodeAndValidate(raw, &out); err != nil {
				return nil, err
			}
			return bson.M{
				"itinerary":                               out.Itinerary,
				"topplacestovisit":                        out.TopPlacesToVisit,
				"contentGenerationState.itinerary":        true,
				"contentGenerationState.topplacestovisit": true,
			}, nil
		},
	},
}

func decodeAndValidate(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid JSON from model: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("model output failed validation: %w", err)
	}
	return nil
}

func systemPrompt(schema string) string {
	return "You are a helpful travel assistant. Output the answer in JSON using this schema:\n" +
		schema +
		"\nAnswer with a single JSON object and nothing else."
}

// userPrompt concatenates the trip parameters into one instruction.
func userPrompt(req models.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a travel plan for %s", strings.TrimSpace(req.UserPrompt))
	if req.FromDate != "" && req.ToDate != "" {
		fmt.Fprintf(&b, " from %s to %s", req.FromDate, req.ToDate)
	}
	b.WriteString(".")
	if len(req.ActivityPreferences) > 0 {
		fmt.Fprintf(&b, " Activity preferences: %s.", strings.Join(req.ActivityPreferences, ", "))
	}
	if req.Companion != "" {
		fmt.Fprintf(&b, " Travelling with: %s.", req.Companion)
	}
	return b.String()
}

// cleanJSONResponse strips markdown fences and any prose around the outermost JSON object.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}

	depth := 0
	inString := false
	escaped := false
	for i := firstBrace; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[firstBrace : i+1]
			}
		}
	}

	lastBrace := strings.LastIndex(response, "}")
	if lastBrace <= firstBrace {
		return response
	}
	return response[firstBrace : lastBrace+1]
}
