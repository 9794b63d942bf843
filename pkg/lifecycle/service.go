// Package lifecycle guards task mutations: tasks are born in the initial
// status, move only along the transition table, and every other field is
// updated independently of status.
package lifecycle

import (
	"context"
	"errors"
	"log"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/store"
)

// maxStaleAttempts bounds how often an update is re-evaluated after losing
// a status race to a concurrent writer. Within one process the immediate
// transaction already serialises the read and the write, so the
// compare-and-set only fires for writers sharing the database file from
// another process, such as a parallel import.
const maxStaleAttempts = 3

type Service struct {
	store  *store.Store
	logger *log.Logger
}

// NewService wires the service to st. A nil logger means log.Default().
func NewService(st *store.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: st, logger: logger}
}

func (s *Service) CreateTask(ctx context.Context, nt model.NewTask) (model.Task, error) {
	if err := CheckInitial(nt.Status); err != nil {
		return model.Task{}, err
	}
	return s.store.CreateTask(ctx, nt)
}

func (s *Service) GetTask(ctx context.Context, id int64) (model.Task, error) {
	return s.store.GetTask(ctx, id)
}

// UpdateTask applies patch. Non-status fields go through unconditionally
// (subject to validation); a status change must be an edge of Transitions
// from the persisted status. It returns the resulting task and the fields
// that actually changed.
func (s *Service) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, []string, error) {
	if err := patch.Validate(); err != nil {
		return model.Task{}, nil, err
	}

	var task model.Task
	var changed []string
	var err error
	for attempt := 0; attempt < maxStaleAttempts; attempt++ {
		err = s.store.WithTx(ctx, func(tx *store.Tx) error {
			cur, err := tx.GetTask(ctx, id)
			if err != nil {
				return err
			}
			if patch.Status != nil && !CanTransition(cur.Status, *patch.Status) {
				return model.InvalidTransition(id, cur.Status, *patch.Status)
			}
			task, changed, err = tx.UpdateTask(ctx, id, patch, &cur.Status)
			return err
		})
		if !errors.Is(err, store.ErrStaleStatus) {
			break
		}
	}
	if errors.Is(err, store.ErrStaleStatus) {
		return model.Task{}, nil, model.Unavailable(err)
	}
	if err != nil {
		return model.Task{}, nil, err
	}
	if len(changed) > 0 {
		s.logger.Printf("task %d updated: %v", id, changed)
	}
	return task, changed, nil
}

// Transition moves the task to status to.
func (s *Service) Transition(ctx context.Context, id int64, to model.Status) (model.Task, error) {
	task, _, err := s.UpdateTask(ctx, id, model.TaskPatch{Status: &to})
	return task, err
}

func (s *Service) ListTasks(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, page model.Page) ([]model.Task, error) {
	return s.store.ListTasks(ctx, filter, sort, page)
}

func (s *Service) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	return s.store.CountTasksByStatus(ctx)
}
