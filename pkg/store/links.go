package store

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/tasklink/pkg/model"
)

// Link inserts the (taskID, documentID) row if it is absent. An existing
// row is left untouched, created_at included, and created reports false.
// Concurrent inserts of the same pair collapse onto the primary key.
func (t *Tx) Link(ctx context.Context, taskID, documentID int64, createdBy string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO task_documents (task_id, document_id, created_at, created_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (task_id, document_id) DO NOTHING;
	`, taskID, documentID, formatTime(t.now()), createdBy)
	if err != nil {
		return false, fmt.Errorf("link task %d to document %d: %w", taskID, documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("link rows affected: %w", err)
	}
	return n == 1, nil
}

// Unlink deletes the row if present; removed is false when there was none.
func (t *Tx) Unlink(ctx context.Context, taskID, documentID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM task_documents WHERE task_id = ? AND document_id = ?;
	`, taskID, documentID)
	if err != nil {
		return false, fmt.Errorf("unlink task %d from document %d: %w", taskID, documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlink rows affected: %w", err)
	}
	return n == 1, nil
}

// IsLinked reports whether the pair has a row.
func (t *Tx) IsLinked(ctx context.Context, taskID, documentID int64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_documents WHERE task_id = ? AND document_id = ?;
	`, taskID, documentID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return n > 0, nil
}

// Both projections below read the same table and share one ordering: most
// recent link first, then the linked entity's id ascending.

// ListDocumentsForTask projects the link table by task.
func (t *Tx) ListDocumentsForTask(ctx context.Context, taskID int64) ([]model.LinkedDocument, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT d.id, d.text, d.summary, d.source, d.source_type, d.created_at, l.created_at, l.created_by
		FROM task_documents l
		JOIN documents d ON d.id = l.document_id
		WHERE l.task_id = ?
		ORDER BY l.created_at DESC, d.id ASC;
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list documents for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var out []model.LinkedDocument
	for rows.Next() {
		var ld model.LinkedDocument
		var linkedAt string
		doc, err := scanDocument(func(dest ...any) error {
			return rows.Scan(append(dest, &linkedAt, &ld.LinkedBy)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan linked document: %w", err)
		}
		ld.Document = doc
		if ld.LinkedAt, err = parseTime(linkedAt); err != nil {
			return nil, err
		}
		out = append(out, ld)
	}
	return out, rows.Err()
}

// ListTasksForDocument projects the link table by document.
func (t *Tx) ListTasksForDocument(ctx context.Context, documentID int64) ([]model.LinkedTask, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.status, t.priority, t.owner, t.created_by, t.due_date,
			t.created_at, t.updated_at, l.created_at, l.created_by
		FROM task_documents l
		JOIN tasks t ON t.id = l.task_id
		WHERE l.document_id = ?
		ORDER BY l.created_at DESC, t.id ASC;
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var out []model.LinkedTask
	for rows.Next() {
		var lt model.LinkedTask
		var linkedAt string
		task, err := scanTask(func(dest ...any) error {
			return rows.Scan(append(dest, &linkedAt, &lt.LinkedBy)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan linked task: %w", err)
		}
		lt.Task = task
		if lt.LinkedAt, err = parseTime(linkedAt); err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

// CascadeDeleteForTask removes every link that references the task.
func (t *Tx) CascadeDeleteForTask(ctx context.Context, taskID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM task_documents WHERE task_id = ?;`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete links of task %d: %w", taskID, err)
	}
	return res.RowsAffected()
}

// CascadeDeleteForDocument removes every link that references the document.
func (t *Tx) CascadeDeleteForDocument(ctx context.Context, documentID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM task_documents WHERE document_id = ?;`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete links of document %d: %w", documentID, err)
	}
	return res.RowsAffected()
}
