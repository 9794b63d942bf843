package store

import (
	"context"

	"github.com/harrisonrobin/tasklink/pkg/model"
)

// The methods below run a single Tx primitive as its own atomic unit.

func (s *Store) CreateTask(ctx context.Context, nt model.NewTask) (task model.Task, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		task, err = tx.CreateTask(ctx, nt)
		return err
	})
	return task, err
}

func (s *Store) CreateDocument(ctx context.Context, nd model.NewDocument) (doc model.Document, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		doc, err = tx.CreateDocument(ctx, nd)
		return err
	})
	return doc, err
}

func (s *Store) GetTask(ctx context.Context, id int64) (task model.Task, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		task, err = tx.GetTask(ctx, id)
		return err
	})
	return task, err
}

func (s *Store) GetDocument(ctx context.Context, id int64) (doc model.Document, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		doc, err = tx.GetDocument(ctx, id)
		return err
	})
	return doc, err
}

// UpdateTask is the raw field update; status legality is enforced by the
// lifecycle service, not here.
func (s *Store) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (task model.Task, changed []string, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		task, changed, err = tx.UpdateTask(ctx, id, patch, nil)
		return err
	})
	return task, changed, err
}

func (s *Store) ListTasks(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, page model.Page) (tasks []model.Task, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		tasks, err = tx.ListTasks(ctx, filter, sort, page)
		return err
	})
	return tasks, err
}

func (s *Store) ListOpenTasksWithDueDate(ctx context.Context) (tasks []model.Task, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		tasks, err = tx.ListOpenTasksWithDueDate(ctx)
		return err
	})
	return tasks, err
}

func (s *Store) CountTasksByStatus(ctx context.Context) (counts map[model.Status]int, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		counts, err = tx.CountTasksByStatus(ctx)
		return err
	})
	return counts, err
}

func (s *Store) ListDocuments(ctx context.Context, page model.Page) (docs []model.Document, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		docs, err = tx.ListDocuments(ctx, page)
		return err
	})
	return docs, err
}

func (s *Store) DeleteTask(ctx context.Context, id int64) (links int64, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		links, err = tx.DeleteTask(ctx, id)
		return err
	})
	return links, err
}

func (s *Store) DeleteDocument(ctx context.Context, id int64) (links int64, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		links, err = tx.DeleteDocument(ctx, id)
		return err
	})
	return links, err
}

func (s *Store) Link(ctx context.Context, taskID, documentID int64, createdBy string) (created bool, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		created, err = tx.Link(ctx, taskID, documentID, createdBy)
		return err
	})
	return created, err
}

func (s *Store) Unlink(ctx context.Context, taskID, documentID int64) (removed bool, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		removed, err = tx.Unlink(ctx, taskID, documentID)
		return err
	})
	return removed, err
}

func (s *Store) ListDocumentsForTask(ctx context.Context, taskID int64) (docs []model.LinkedDocument, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		docs, err = tx.ListDocumentsForTask(ctx, taskID)
		return err
	})
	return docs, err
}

func (s *Store) ListTasksForDocument(ctx context.Context, documentID int64) (tasks []model.LinkedTask, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		tasks, err = tx.ListTasksForDocument(ctx, documentID)
		return err
	})
	return tasks, err
}

func (s *Store) CascadeDeleteForTask(ctx context.Context, taskID int64) (n int64, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		n, err = tx.CascadeDeleteForTask(ctx, taskID)
		return err
	})
	return n, err
}

func (s *Store) CascadeDeleteForDocument(ctx context.Context, documentID int64) (n int64, err error) {
	err = s.WithTx(ctx, func(tx *Tx) error {
		n, err = tx.CascadeDeleteForDocument(ctx, documentID)
		return err
	})
	return n, err
}
