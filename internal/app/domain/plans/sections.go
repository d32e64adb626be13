package plans

import (
	"fmt"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

// section maps a route segment onto the plan field it replaces and its generation flag.
type section struct {
	field string
	flag  string
	value func(u models.SectionUpdate) (any, bool)
}

var sections = map[string]section{
	"about": {
		field: "abouttheplace",
		flag:  "contentGenerationState.abouttheplace",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.AboutThePlace) },
	},
	"besttime": {
		field: "besttimetovisit",
		flag:  "contentGenerationState.besttimetovisit",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.BestTimeToVisit) },
	},
	"packinglist": {
		field: "packingchecklist",
		flag:  "contentGenerationState.packingchecklist",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.PackingChecklist) },
	},
	"cuisine": {
		field: "localcuisinerecommendations",
		flag:  "contentGenerationState.localcuisinerecommendations",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.LocalCuisineRecommendations) },
	},
	"activities": {
		field: "adventuresactivitiestodo",
		flag:  "contentGenerationState.adventuresactivitiestodo",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.AdventuresActivitiesToDo) },
	},
	"itinerary": {
		field: "itinerary",
		flag:  "contentGenerationState.itinerary",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.Itinerary) },
	},
	"places": {
		field: "topplacestovisit",
		flag:  "contentGenerationState.topplacestovisit",
		value: func(u models.SectionUpdate) (any, bool) { return deref(u.TopPlacesToVisit) },
	},
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

// sectionFields resolves the $set document for one section update.
func sectionFields(name string, update models.SectionUpdate) (map[string]any, error) {
	sec, ok := sections[name]
	if !ok {
		return nil, fmt.Errorf("unknown section %q: %w", name, models.ErrBadRequest)
	}
	v, ok := sec.value(update)
	if !ok {
		return nil, fmt.Errorf("body must carry %q: %w", sec.field, models.ErrValidation)
	}
	return map[string]any{sec.field: v, sec.flag: true}, nil
}
