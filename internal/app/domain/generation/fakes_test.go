package generation

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

// scriptedCompleter answers per batch, keyed by a field name only that batch's schema carries.
type scriptedCompleter struct {
	mu             sync.Mutex
	answers        map[string]string
	errs           map[string]error
	calls          int
	blockItinerary bool
	blockAll       bool
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		answers: map[string]string{
			"besttimetovisit":  `{"abouttheplace":"Lisbon is a coastal capital.","besttimetovisit":"Spring"}`,
			"packingchecklist": "```json\n{\"adventuresactivitiestodo\":[\"Tram 28\"],\"localcuisinerecommendations\":[\"Pastel de nata\"],\"packingchecklist\":[\"Walking shoes\"]}\n```",
			"topplacestovisit": `{"itinerary":[{"title":"Day 1","activities":{"morning":[{"itineraryItem":"Belem","briefDescription":"Tower"}],"afternoon":[],"evening":[]}}],"topplacestovisit":[{"name":"Belem Tower","coordinates":{"lat":38.69,"lng":-9.21}}]}`,
		},
		errs: map[string]error{},
	}
}

var batchMarkers = []string{"besttimetovisit", "packingchecklist", "topplacestovisit"}

func batchKey(system string) string {
	for _, k := range batchMarkers {
		if strings.Contains(system, `"`+k+`"`) {
			return k
		}
	}
	return ""
}

func (c *scriptedCompleter) Complete(ctx context.Context, system, _ string) (*Completion, error) {
	c.mu.Lock()
	c.calls++
	k := batchKey(system)
	answer, err := c.answers[k], c.errs[k]
	block := c.blockAll || (c.blockItinerary && k == "topplacestovisit")
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &Completion{Content: answer, Model: "test-model", PromptTokens: 10, CompletionTokens: 20}, nil
}

func (c *scriptedCompleter) Provider() string { return "test" }

type memoryPlanStore struct {
	mu      sync.Mutex
	plans   map[string]*models.Plan
	updates map[string][]bson.M
	deleted []string
}

func newMemoryPlanStore() *memoryPlanStore {
	return &memoryPlanStore{plans: map[string]*models.Plan{}, updates: map[string][]bson.M{}}
}

func (s *memoryPlanStore) CreatePlan(_ context.Context, plan *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *plan
	s.plans[plan.PlanID] = &cp
	return nil
}

func (s *memoryPlanStore) GetPlanByPlanID(_ context.Context, planID string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryPlanStore) UpdateFields(_ context.Context, planID string, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return models.ErrNotFound
	}
	s.updates[planID] = append(s.updates[planID], set)
	if v, ok := set["abouttheplace"].(string); ok {
		p.AboutThePlace = v
		p.ContentGenerationState.AboutThePlace = true
	}
	if v, ok := set["packingchecklist"].([]string); ok {
		p.PackingChecklist = v
		p.ContentGenerationState.PackingChecklist = true
	}
	if v, ok := set["itinerary"].([]models.ItineraryDay); ok {
		p.Itinerary = v
		p.ContentGenerationState.Itinerary = true
	}
	return nil
}

func (s *memoryPlanStore) DeletePlan(ctx context.Context, planID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, planID)
	s.deleted = append(s.deleted, planID)
	return nil
}

func (s *memoryPlanStore) updatedKeys(planID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, u := range s.updates[planID] {
		for k := range u {
			keys = append(keys, k)
		}
	}
	return keys
}

type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) ConsumeCredit(ctx context.Context, userID string) (auth.CreditKind, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(auth.CreditKind), args.Error(1)
}

func (m *MockCreditLedger) RefundCredit(ctx context.Context, userID string, kind auth.CreditKind) error {
	args := m.Called(ctx, userID, kind)
	return args.Error(0)
}

type countingRecorder struct {
	mu           sync.Mutex
	interactions []models.LLMInteraction
}

func (r *countingRecorder) LogInteractionAsync(_ context.Context, i models.LLMInteraction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions = append(r.interactions, i)
}

func (r *countingRecorder) statuses() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for _, i := range r.interactions {
		out[i.Batch] = i.Status
	}
	return out
}
