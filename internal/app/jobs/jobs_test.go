package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockExpenseSweeper struct {
	mock.Mock
}

func (m *MockExpenseSweeper) DistinctPlanIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockExpenseSweeper) DeleteByPlanIDs(ctx context.Context, planIDs []string) (int64, error) {
	args := m.Called(ctx, planIDs)
	return args.Get(0).(int64), args.Error(1)
}

type MockPlanLookup struct {
	mock.Mock
}

func (m *MockPlanLookup) ExistingPlanIDs(ctx context.Context, planIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, planIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func TestSweepOrphanExpenses(t *testing.T) {
	expenses := new(MockExpenseSweeper)
	plans := new(MockPlanLookup)
	ids := []string{"plan-1", "plan-2", "plan-3"}
	expenses.On("DistinctPlanIDs", mock.Anything).Return(ids, nil)
	plans.On("ExistingPlanIDs", mock.Anything, ids).Return(map[string]bool{"plan-2": true}, nil)
	expenses.On("DeleteByPlanIDs", mock.Anything, []string{"plan-1", "plan-3"}).Return(int64(4), nil)

	s := NewScheduler(expenses, plans, zap.NewNop())
	deleted, err := s.SweepOrphanExpenses(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	expenses.AssertExpectations(t)
	plans.AssertExpectations(t)
}

func TestSweepOrphanExpensesNothingToDo(t *testing.T) {
	expenses := new(MockExpenseSweeper)
	plans := new(MockPlanLookup)
	ids := []string{"plan-1"}
	expenses.On("DistinctPlanIDs", mock.Anything).Return(ids, nil)
	plans.On("ExistingPlanIDs", mock.Anything, ids).Return(map[string]bool{"plan-1": true}, nil)

	s := NewScheduler(expenses, plans, zap.NewNop())
	deleted, err := s.SweepOrphanExpenses(context.Background())

	require.NoError(t, err)
	assert.Zero(t, deleted)
	expenses.AssertNotCalled(t, "DeleteByPlanIDs", mock.Anything, mock.Anything)
}

func TestSweepOrphanExpensesLookupError(t *testing.T) {
	expenses := new(MockExpenseSweeper)
	plans := new(MockPlanLookup)
	expenses.On("DistinctPlanIDs", mock.Anything).Return([]string{"plan-1"}, nil)
	plans.On("ExistingPlanIDs", mock.Anything, mock.Anything).Return(nil, errors.New("server selection timeout"))

	s := NewScheduler(expenses, plans, zap.NewNop())
	_, err := s.SweepOrphanExpenses(context.Background())

	assert.Error(t, err)
	expenses.AssertNotCalled(t, "DeleteByPlanIDs", mock.Anything, mock.Anything)
}

func TestSchedulerStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(new(MockExpenseSweeper), new(MockPlanLookup), zap.NewNop())
	assert.Error(t, s.Start("every tuesday-ish"))
}

func TestSchedulerStartAndStop(t *testing.T) {
	s := NewScheduler(new(MockExpenseSweeper), new(MockPlanLookup), zap.NewNop())
	require.NoError(t, s.Start("@hourly"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestCronLoggerRecordsRecoveredPanics(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := newCronLogger(zap.New(core))

	job := cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(func() { panic("sweep exploded") }))
	assert.NotPanics(t, job.Run)

	entries := logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic", entries[0].Message)
	assert.Equal(t, "cron", entries[0].LoggerName)
	assert.Contains(t, entries[0].ContextMap()["error"], "sweep exploded")
}
