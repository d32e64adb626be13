package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExpenseCategory string

const (
	CategoryFood          ExpenseCategory = "food"
	CategoryCommute       ExpenseCategory = "commute"
	CategoryShopping      ExpenseCategory = "shopping"
	CategoryGifts         ExpenseCategory = "gifts"
	CategoryAccomodations ExpenseCategory = "accomodations"
	CategoryOthers        ExpenseCategory = "others"
)

// ExpenseCategories is the closed set accepted by the store.
var ExpenseCategories = []ExpenseCategory{
	CategoryFood, CategoryCommute, CategoryShopping, CategoryGifts, CategoryAccomodations, CategoryOthers,
}

// ExpenseEntry is one embedded item of an Expense document.
type ExpenseEntry struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Purpose  string             `json:"purpose" bson:"purpose"`
	Amount   float64            `json:"amount" bson:"amount"`
	Category ExpenseCategory    `json:"category" bson:"category"`
	Date     time.Time          `json:"date" bson:"date"`
	WhoSpent string             `json:"whoSpent" bson:"whoSpent"`
}

// Expense aggregates every entry a user recorded for one plan.
type Expense struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PlanID    string             `json:"planId" bson:"planId"`
	UserID    string             `json:"userId" bson:"userId"`
	Currency  string             `json:"currency" bson:"currency"`
	Expenses  []ExpenseEntry     `json:"expenses" bson:"expenses"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type AddExpenseRequest struct {
	PlanID   string          `json:"planId" binding:"required"`
	Purpose  string          `json:"purpose" binding:"required"`
	Amount   float64         `json:"amount" binding:"required,gt=0"`
	Category ExpenseCategory `json:"category" binding:"required,oneof=food commute shopping gifts accomodations others"`
	Date     time.Time       `json:"date" binding:"required"`
	WhoSpent string          `json:"whoSpent"`
	Currency string          `json:"currency" binding:"omitempty,len=3"`
}

type UpdateExpenseRequest struct {
	ExpenseID string          `json:"expenseId" binding:"required"`
	Purpose   string          `json:"purpose" binding:"required"`
	Amount    float64         `json:"amount" binding:"required,gt=0"`
	Category  ExpenseCategory `json:"category" binding:"required,oneof=food commute shopping gifts accomodations others"`
	Date      time.Time       `json:"date" binding:"required"`
	WhoSpent  string          `json:"whoSpent"`
}

// ExpenseFilter narrows the entries returned for a plan. Zero values mean "no bound".
type ExpenseFilter struct {
	Category  ExpenseCategory `json:"category" binding:"omitempty,oneof=food commute shopping gifts accomodations others"`
	StartDate *time.Time      `json:"startDate"`
	EndDate   *time.Time      `json:"endDate"`
}

// Match reports whether entry passes the filter. Date bounds are inclusive; an end date at
// midnight covers that whole day.
func (f ExpenseFilter) Match(entry ExpenseEntry) bool {
	if f.Category != "" && entry.Category != f.Category {
		return false
	}
	if f.StartDate != nil && entry.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && !entry.Date.Before(endOfDay(*f.EndDate)) {
		return false
	}
	return true
}

// endOfDay returns the exclusive upper bound for t: the next midnight when t is a bare
// date, otherwise just past t.
func endOfDay(t time.Time) time.Time {
	if t.Equal(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())) {
		return t.AddDate(0, 0, 1)
	}
	return t.Add(time.Nanosecond)
}

// ExpenseRef addresses one embedded entry inside one Expense document.
type ExpenseRef struct {
	ExpenseDocID string `json:"expenseDocId"`
	ExpenseID    string `json:"expenseId"`
}

type DeleteMultipleRequest struct {
	IDs []ExpenseRef `json:"ids" binding:"required"`
}

type DeleteMultipleResult struct {
	Success        bool         `json:"success"`
	DeletedCount   int          `json:"deletedCount"`
	DeletedEntries []ExpenseRef `json:"deletedEntries"`
}

// ExpenseSummary totals a plan's expenses. Amounts are rendered with two decimals.
type ExpenseSummary struct {
	PlanID     string            `json:"planId"`
	Currency   string            `json:"currency"`
	Total      string            `json:"total"`
	Count      int               `json:"count"`
	ByCategory map[string]string `json:"byCategory"`
	ByPerson   map[string]string `json:"byPerson"`
}
