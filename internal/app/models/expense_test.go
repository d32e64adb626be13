package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpenseFilterMatchDateBounds(t *testing.T) {
	at := func(d, h int) time.Time { return time.Date(2025, 6, d, h, 30, 0, 0, time.UTC) }
	midnight := func(d int) *time.Time {
		v := time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name   string
		filter ExpenseFilter
		date   time.Time
		want   bool
	}{
		{"date-only end keeps evening of that day", ExpenseFilter{EndDate: midnight(5)}, at(5, 21), true},
		{"date-only end excludes next day", ExpenseFilter{EndDate: midnight(5)}, at(6, 0), false},
		{"instant end is inclusive", ExpenseFilter{EndDate: ptr(at(5, 21))}, at(5, 21), true},
		{"instant end excludes later same day", ExpenseFilter{EndDate: ptr(at(5, 12))}, at(5, 21), false},
		{"start is inclusive", ExpenseFilter{StartDate: midnight(5)}, *midnight(5), true},
		{"before start", ExpenseFilter{StartDate: midnight(5)}, at(4, 23), false},
		{"category mismatch", ExpenseFilter{Category: CategoryFood}, at(5, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ExpenseEntry{Category: CategoryCommute, Date: tt.date}
			if tt.filter.Category == "" {
				entry.Category = CategoryFood
			}
			assert.Equal(t, tt.want, tt.filter.Match(entry))
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }
