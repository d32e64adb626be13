package expenses

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

// memoryRepo is an in-memory ExpenseRepo with the same matching rules as the Mongo one.
type memoryRepo struct {
	mu      sync.Mutex
	docs    map[primitive.ObjectID]*models.Expense
	pullErr error
}

func newMemoryRepo(docs ...*models.Expense) *memoryRepo {
	r := &memoryRepo{docs: map[primitive.ObjectID]*models.Expense{}}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *memoryRepo) AddEntry(_ context.Context, planID, userID, currency string, entry models.ExpenseEntry) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.PlanID == planID && d.UserID == userID {
			d.Expenses = append(d.Expenses, entry)
			if currency != "" {
				d.Currency = currency
			}
			return d, nil
		}
	}
	d := &models.Expense{ID: primitive.NewObjectID(), PlanID: planID, UserID: userID, Currency: currency,
		Expenses: []models.ExpenseEntry{entry}}
	r.docs[d.ID] = d
	return d, nil
}

func (r *memoryRepo) GetByPlanAndUser(_ context.Context, planID, userID string) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.PlanID == planID && d.UserID == userID {
			cp := *d
			cp.Expenses = append([]models.ExpenseEntry(nil), d.Expenses...)
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryRepo) ListByPlan(_ context.Context, planID string) ([]models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Expense{}
	for _, d := range r.docs {
		if d.PlanID == planID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateEntry(_ context.Context, docID primitive.ObjectID, userID string, entry models.ExpenseEntry) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docID]
	if !ok || d.UserID != userID {
		return nil, models.ErrNotFound
	}
	for i := range d.Expenses {
		if d.Expenses[i].ID == entry.ID {
			d.Expenses[i] = entry
			return d, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryRepo) PullEntry(_ context.Context, docID primitive.ObjectID, planID string, entryID primitive.ObjectID) (bool, error) {
	if r.pullErr != nil {
		return false, r.pullErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docID]
	if !ok || d.PlanID != planID {
		return false, nil
	}
	for i, e := range d.Expenses {
		if e.ID == entryID {
			d.Expenses = append(d.Expenses[:i], d.Expenses[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) DeleteIfEmpty(_ context.Context, docID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docID]
	if !ok || len(d.Expenses) > 0 {
		return false, nil
	}
	delete(r.docs, docID)
	return true, nil
}

func (r *memoryRepo) DeleteByPlanID(_ context.Context, planID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, d := range r.docs {
		if d.PlanID == planID {
			delete(r.docs, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) DistinctPlanIDs(context.Context) ([]string, error) {
	return nil, errors.New("not used")
}

func (r *memoryRepo) DeleteByPlanIDs(context.Context, []string) (int64, error) {
	return 0, errors.New("not used")
}

func (r *memoryRepo) has(docID primitive.ObjectID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[docID]
	return ok
}

// stubPlans grants access to members of the plans it knows.
type stubPlans struct {
	plans map[string]*models.Plan
}

func (s stubPlans) GetAccessiblePlan(_ context.Context, userID, planID string) (*models.Plan, error) {
	p, ok := s.plans[planID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !p.CanAccess(userID) {
		return nil, models.ErrForbidden
	}
	return p, nil
}

func testPlans() stubPlans {
	return stubPlans{plans: map[string]*models.Plan{
		"plan-1": {PlanID: "plan-1", UserID: "owner", PreferredCurrency: "EUR",
			Collaborators: []models.Collaborator{{UserID: "bob"}}},
		"plan-2": {PlanID: "plan-2", UserID: "owner"},
	}}
}
