// Package relations orchestrates the task↔document association: existence
// checks on the anchor entity, batch link/unlink with skip-and-succeed for
// unknown counterparts, and the display projections of either direction.
package relations

import (
	"context"
	"log"

	"github.com/harrisonrobin/tasklink/pkg/lifecycle"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/store"
)

const (
	DefaultMaxBatch      = 100
	DefaultPreviewLength = 200
)

type Service struct {
	store      *store.Store
	maxBatch   int
	previewLen int
	logger     *log.Logger
}

type Option func(*Service)

// WithMaxBatch caps the number of ids accepted per batch call.
func WithMaxBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithPreviewLength sets how many characters of document text are shown in
// GetDocumentsForTask.
func WithPreviewLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewLen = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		maxBatch:   DefaultMaxBatch,
		previewLen: DefaultPreviewLength,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) MaxBatch() int { return s.maxBatch }

// side says which entity a batch call is anchored on.
type side int

const (
	taskSide side = iota
	documentSide
)

func (sd side) anchorName() string {
	if sd == taskSide {
		return "task"
	}
	return "document"
}

func (sd side) otherField() string {
	if sd == taskSide {
		return "document_ids"
	}
	return "task_ids"
}

// pair orders (anchor, other) as (taskID, documentID).
func (sd side) pair(anchor, other int64) (int64, int64) {
	if sd == taskSide {
		return anchor, other
	}
	return other, anchor
}

func (sd side) requireAnchor(ctx context.Context, tx *store.Tx, id int64) error {
	if sd == taskSide {
		return tx.RequireTask(ctx, id)
	}
	return tx.RequireDocument(ctx, id)
}

func (sd side) existingOthers(ctx context.Context, tx *store.Tx, ids []int64) (map[int64]bool, error) {
	if sd == taskSide {
		return tx.ExistingDocumentIDs(ctx, ids)
	}
	return tx.ExistingTaskIDs(ctx, ids)
}

// LinkDocumentsToTask links every existing document in documentIDs to the
// task. Unknown document ids are skipped, not rejected.
func (s *Service) LinkDocumentsToTask(ctx context.Context, taskID int64, documentIDs []int64, createdBy string) (model.LinkResult, error) {
	return s.linkBatch(ctx, taskSide, taskID, documentIDs, createdBy)
}

// LinkTasksToDocument is the mirror of LinkDocumentsToTask.
func (s *Service) LinkTasksToDocument(ctx context.Context, documentID int64, taskIDs []int64, createdBy string) (model.LinkResult, error) {
	return s.linkBatch(ctx, documentSide, documentID, taskIDs, createdBy)
}

func (s *Service) UnlinkDocumentsFromTask(ctx context.Context, taskID int64, documentIDs []int64) (model.UnlinkResult, error) {
	return s.unlinkBatch(ctx, taskSide, taskID, documentIDs)
}

func (s *Service) UnlinkTasksFromDocument(ctx context.Context, documentID int64, taskIDs []int64) (model.UnlinkResult, error) {
	return s.unlinkBatch(ctx, documentSide, documentID, taskIDs)
}

func (s *Service) linkBatch(ctx context.Context, sd side, anchor int64, ids []int64, createdBy string) (model.LinkResult, error) {
	if err := s.checkBatch(sd.otherField(), ids); err != nil {
		return model.LinkResult{}, err
	}
	if err := checkActor(createdBy); err != nil {
		return model.LinkResult{}, err
	}

	var res model.LinkResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := sd.requireAnchor(ctx, tx, anchor); err != nil {
			return err
		}
		var err error
		res, err = linkInTx(ctx, tx, sd, anchor, ids, createdBy)
		return err
	})
	if err != nil {
		return model.LinkResult{}, err
	}
	s.logger.Printf("linked %s %d: %d valid, %d new, %d skipped",
		sd.anchorName(), anchor, res.Linked, res.Created, len(res.Skipped))
	return res, nil
}

// linkInTx does the per-id work of a link batch inside an open transaction;
// the anchor must already be known to exist.
func linkInTx(ctx context.Context, tx *store.Tx, sd side, anchor int64, ids []int64, createdBy string) (model.LinkResult, error) {
	var res model.LinkResult
	ids = dedupe(ids)
	existing, err := sd.existingOthers(ctx, tx, ids)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if !existing[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		taskID, documentID := sd.pair(anchor, id)
		created, err := tx.Link(ctx, taskID, documentID, createdBy)
		if err != nil {
			return model.LinkResult{}, err
		}
		res.Linked++
		if created {
			res.Created++
		}
	}
	return res, nil
}

func (s *Service) unlinkBatch(ctx context.Context, sd side, anchor int64, ids []int64) (model.UnlinkResult, error) {
	if err := s.checkBatch(sd.otherField(), ids); err != nil {
		return model.UnlinkResult{}, err
	}

	var res model.UnlinkResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		res = model.UnlinkResult{}
		if err := sd.requireAnchor(ctx, tx, anchor); err != nil {
			return err
		}
		for _, id := range dedupe(ids) {
			taskID, documentID := sd.pair(anchor, id)
			removed, err := tx.Unlink(ctx, taskID, documentID)
			if err != nil {
				return err
			}
			if removed {
				res.Unlinked++
			}
		}
		return nil
	})
	if err != nil {
		return model.UnlinkResult{}, err
	}
	s.logger.Printf("unlinked %s %d: %d removed", sd.anchorName(), anchor, res.Unlinked)
	return res, nil
}

// GetDocumentsForTask lists the task's documents, most recently linked
// first, with the text cut down to a preview.
func (s *Service) GetDocumentsForTask(ctx context.Context, taskID int64) ([]model.DocumentRef, error) {
	var linked []model.LinkedDocument
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.RequireTask(ctx, taskID); err != nil {
			return err
		}
		var err error
		linked, err = tx.ListDocumentsForTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	refs := make([]model.DocumentRef, 0, len(linked))
	for _, ld := range linked {
		refs = append(refs, model.DocumentRef{
			ID:         ld.Document.ID,
			Preview:    model.Preview(ld.Document.Text, s.previewLen),
			Summary:    ld.Document.Summary,
			Source:     ld.Document.Source,
			SourceType: ld.Document.SourceType,
			CreatedAt:  ld.Document.CreatedAt,
			LinkedAt:   ld.LinkedAt,
			LinkedBy:   ld.LinkedBy,
		})
	}
	return refs, nil
}

// GetTasksForDocument lists the document's tasks, most recently linked first.
func (s *Service) GetTasksForDocument(ctx context.Context, documentID int64) ([]model.TaskRef, error) {
	var linked []model.LinkedTask
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.RequireDocument(ctx, documentID); err != nil {
			return err
		}
		var err error
		linked, err = tx.ListTasksForDocument(ctx, documentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	refs := make([]model.TaskRef, 0, len(linked))
	for _, lt := range linked {
		refs = append(refs, model.TaskRef{
			ID:       lt.Task.ID,
			Title:    lt.Task.Title,
			Status:   lt.Task.Status,
			Priority: lt.Task.Priority,
			Owner:    lt.Task.Owner,
			DueDate:  lt.Task.DueDateString(),
			LinkedAt: lt.LinkedAt,
			LinkedBy: lt.LinkedBy,
		})
	}
	return refs, nil
}

// CreateTaskWithDocuments creates the task and links it to the existing
// documents among documentIDs in one transaction; on any failure nothing is
// written. The task's creator is recorded as the links' creator.
func (s *Service) CreateTaskWithDocuments(ctx context.Context, nt model.NewTask, documentIDs []int64) (model.Task, model.LinkResult, error) {
	if err := lifecycle.CheckInitial(nt.Status); err != nil {
		return model.Task{}, model.LinkResult{}, err
	}
	if err := s.checkBatch("document_ids", documentIDs); err != nil {
		return model.Task{}, model.LinkResult{}, err
	}

	var task model.Task
	var res model.LinkResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if task, err = tx.CreateTask(ctx, nt); err != nil {
			return err
		}
		res, err = linkInTx(ctx, tx, taskSide, task.ID, documentIDs, task.CreatedBy)
		return err
	})
	if err != nil {
		return model.Task{}, model.LinkResult{}, err
	}
	s.logger.Printf("created task %d with %d linked documents", task.ID, res.Linked)
	return task, res, nil
}

// DeleteTask removes the task together with all of its links.
func (s *Service) DeleteTask(ctx context.Context, taskID int64) (int64, error) {
	n, err := s.store.DeleteTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("deleted task %d and %d links", taskID, n)
	return n, nil
}

// DeleteDocument removes the document together with all of its links.
func (s *Service) DeleteDocument(ctx context.Context, documentID int64) (int64, error) {
	n, err := s.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("deleted document %d and %d links", documentID, n)
	return n, nil
}

func (s *Service) checkBatch(field string, ids []int64) error {
	if len(ids) > s.maxBatch {
		return model.Validationf(field, "%d ids exceed the batch limit of %d", len(ids), s.maxBatch)
	}
	return nil
}

func checkActor(createdBy string) error {
	if len([]rune(createdBy)) > model.MaxActorLen {
		return model.Validationf("created_by", "length exceeds %d characters", model.MaxActorLen)
	}
	return nil
}

// dedupe keeps the first occurrence of every id, preserving order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
