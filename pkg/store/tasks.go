package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/model"
)

// ErrStaleStatus is returned by Tx.UpdateTask when the task's status no
// longer matches the expected one, i.e. a concurrent writer moved it.
var ErrStaleStatus = errors.New("task status changed concurrently")

// Tx is one open transaction. Its methods are the Entity and Association
// Store primitives; callers compose them into atomic units via WithTx.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

const taskColumns = `id, title, description, status, priority, owner, created_by, due_date, created_at, updated_at`

func (t *Tx) CreateTask(ctx context.Context, nt model.NewTask) (model.Task, error) {
	nt = nt.Normalize()
	if err := nt.Validate(); err != nil {
		return model.Task{}, err
	}
	now := t.now().UTC()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, priority, owner, created_by, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, nt.Title, nt.Description, nt.Status, nt.Priority, nt.Owner, nt.CreatedBy,
		nullDate(nt.DueDate), formatTime(now), formatTime(now))
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("task id: %w", err)
	}
	return t.GetTask(ctx, id)
}

func (t *Tx) GetTask(ctx context.Context, id int64) (model.Task, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, model.NotFound("task", id)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("select task %d: %w", id, err)
	}
	return task, nil
}

// RequireTask fails with model.ErrNotFound unless the task exists.
func (t *Tx) RequireTask(ctx context.Context, id int64) error {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?;`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("task", id)
	}
	if err != nil {
		return fmt.Errorf("check task %d: %w", id, err)
	}
	return nil
}

// ExistingTaskIDs returns the subset of ids that name a stored task.
func (t *Tx) ExistingTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return t.existingIDs(ctx, "tasks", ids)
}

// UpdateTask applies patch to the stored task without consulting the
// status state machine. It returns the updated task and the names of the
// fields that changed; updated_at moves only when something changed.
//
// When expect is non-nil the write only lands if the persisted status still
// equals *expect; otherwise ErrStaleStatus is returned.
func (t *Tx) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch, expect *model.Status) (model.Task, []string, error) {
	if err := patch.Validate(); err != nil {
		return model.Task{}, nil, err
	}
	cur, err := t.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, nil, err
	}
	if expect != nil && cur.Status != *expect {
		return model.Task{}, nil, ErrStaleStatus
	}

	next, changed := patch.Apply(cur)
	if len(changed) == 0 {
		return cur, nil, nil
	}
	next.UpdatedAt = t.now().UTC()

	res, err := t.tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, owner = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND status = ?;
	`, next.Title, next.Description, next.Status, next.Priority, next.Owner,
		nullDate(next.DueDate), formatTime(next.UpdatedAt), id, cur.Status)
	if err != nil {
		return model.Task{}, nil, fmt.Errorf("update task %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Task{}, nil, fmt.Errorf("update task rows affected: %w", err)
	}
	if affected != 1 {
		return model.Task{}, nil, ErrStaleStatus
	}
	return next, changed, nil
}

// ListTasks returns one page of tasks. The sort column is chosen from a
// fixed set; id ascending breaks ties so pages are deterministic.
func (t *Tx) ListTasks(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, page model.Page) ([]model.Task, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY " + orderBy(sort) + ", id ASC")
	q.WriteString(" LIMIT ? OFFSET ?;")
	args = append(args, sqlLimit(page.Limit), page.Offset)

	rows, err := t.tx.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListOpenTasksWithDueDate returns every task that is not done and has a
// due date, earliest due first.
func (t *Tx) ListOpenTasksWithDueDate(ctx context.Context) ([]model.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE due_date IS NOT NULL AND status != ?
		ORDER BY due_date ASC, id ASC;
	`, model.StatusDone)
	if err != nil {
		return nil, fmt.Errorf("list tasks with due date: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountTasksByStatus reports a count for every status, zero included.
func (t *Tx) CountTasksByStatus(ctx context.Context) (map[model.Status]int, error) {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		counts[st] = 0
	}
	rows, err := t.tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// DeleteTask removes the task's links and then the task itself. The
// foreign keys cascade as well; the explicit first phase keeps the delete
// correct on connections where foreign key enforcement is off.
func (t *Tx) DeleteTask(ctx context.Context, id int64) (int64, error) {
	if err := t.RequireTask(ctx, id); err != nil {
		return 0, err
	}
	removed, err := t.CascadeDeleteForTask(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id); err != nil {
		return 0, fmt.Errorf("delete task %d: %w", id, err)
	}
	return removed, nil
}

func orderBy(s model.TaskSort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	switch s.Key {
	case model.SortPriority:
		return "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 END " + dir
	case model.SortDueDate:
		// Undated tasks go last in either direction.
		return "due_date IS NULL ASC, due_date " + dir
	case model.SortTitle:
		return "title COLLATE NOCASE " + dir
	default:
		return string(s.Key) + " " + dir
	}
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func scanTask(scan func(dest ...any) error) (model.Task, error) {
	var task model.Task
	var due sql.NullString
	var created, updated string
	if err := scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.Owner,
		&task.CreatedBy,
		&due,
		&created,
		&updated,
	); err != nil {
		return model.Task{}, err
	}
	var err error
	if task.CreatedAt, err = parseTime(created); err != nil {
		return model.Task{}, err
	}
	if task.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Task{}, err
	}
	if due.Valid {
		d, err := time.Parse(model.DateLayout, due.String)
		if err != nil {
			return model.Task{}, fmt.Errorf("parse stored due date %q: %w", due.String, err)
		}
		task.DueDate = &d
	}
	return task, nil
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(model.DateLayout), Valid: true}
}
