package lifecycle

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tasklink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, log.New(io.Discard, "", 0))
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to model.Status
		want     bool
	}{
		{model.StatusNew, model.StatusInProgress, true},
		{model.StatusNew, model.StatusBlocked, true},
		{model.StatusNew, model.StatusDone, false},
		{model.StatusInProgress, model.StatusDone, true},
		{model.StatusInProgress, model.StatusBlocked, true},
		{model.StatusInProgress, model.StatusNew, false},
		{model.StatusBlocked, model.StatusInProgress, true},
		{model.StatusBlocked, model.StatusDone, false},
		{model.StatusDone, model.StatusInProgress, false},
		{model.StatusDone, model.StatusBlocked, false},
		{model.StatusNew, model.StatusNew, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !IsTerminal(model.StatusDone) {
		t.Error("done should be terminal")
	}
	if IsTerminal(model.StatusBlocked) {
		t.Error("blocked should not be terminal")
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		from, to model.Status
		want     []model.Status
		ok       bool
	}{
		{model.StatusNew, model.StatusNew, nil, true},
		{model.StatusNew, model.StatusDone, []model.Status{model.StatusInProgress, model.StatusDone}, true},
		{model.StatusNew, model.StatusBlocked, []model.Status{model.StatusBlocked}, true},
		{model.StatusBlocked, model.StatusDone, []model.Status{model.StatusInProgress, model.StatusDone}, true},
		{model.StatusDone, model.StatusNew, nil, false},
		{model.StatusInProgress, model.StatusNew, nil, false},
	}
	for _, tt := range tests {
		got, ok := Path(tt.from, tt.to)
		assert.Equal(t, tt.ok, ok, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestCreateTaskMustStartNew(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, model.NewTask{Title: "T1"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, task.Status)

	_, err = svc.CreateTask(ctx, model.NewTask{Title: "T2", Status: model.StatusDone})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestStatusWalkToDone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.CreateTask(ctx, model.NewTask{Title: "T1"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, task.ID, model.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, task.ID, model.StatusDone)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, task.ID, model.StatusBlocked)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	var me *model.Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, model.StatusDone, me.From)
	assert.Equal(t, model.StatusBlocked, me.To)

	_, err = svc.Transition(ctx, task.ID, model.StatusInProgress)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
}

func TestFieldUpdatesAreIndependentOfStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.CreateTask(ctx, model.NewTask{Title: "T1"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, task.ID, model.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, task.ID, model.StatusDone)
	require.NoError(t, err)

	// A done task can still be reassigned.
	owner := "kim"
	updated, changed, err := svc.UpdateTask(ctx, task.ID, model.TaskPatch{Owner: &owner})
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, changed)
	assert.Equal(t, model.StatusDone, updated.Status)

	_, changed, err = svc.UpdateTask(ctx, task.ID, model.TaskPatch{Owner: &owner})
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestIllegalStatusRejectsWholePatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.CreateTask(ctx, model.NewTask{Title: "T1"})
	require.NoError(t, err)

	owner := "kim"
	done := model.StatusDone
	_, _, err = svc.UpdateTask(ctx, task.ID, model.TaskPatch{Owner: &owner, Status: &done})
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Owner)
	assert.Equal(t, model.StatusNew, got.Status)
}

func TestUpdateMissingTask(t *testing.T) {
	svc := newTestService(t)
	inProgress := model.StatusInProgress
	_, _, err := svc.UpdateTask(context.Background(), 7, model.TaskPatch{Status: &inProgress})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentStartSucceedsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.CreateTask(ctx, model.NewTask{Title: "T1"})
	require.NoError(t, err)

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, task.ID, model.StatusInProgress)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	}
	assert.Equal(t, 1, wins)
}
