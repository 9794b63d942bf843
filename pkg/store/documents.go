package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harrisonrobin/tasklink/pkg/model"
)

const documentColumns = `id, text, summary, source, source_type, created_at`

func (t *Tx) CreateDocument(ctx context.Context, nd model.NewDocument) (model.Document, error) {
	if err := nd.Validate(); err != nil {
		return model.Document{}, err
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO documents (text, summary, source, source_type, created_at)
		VALUES (?, ?, ?, ?, ?);
	`, nd.Text, nd.Summary, nd.Source, nd.SourceType, formatTime(t.now()))
	if err != nil {
		return model.Document{}, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Document{}, fmt.Errorf("document id: %w", err)
	}
	return t.GetDocument(ctx, id)
}

func (t *Tx) GetDocument(ctx context.Context, id int64) (model.Document, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?;`, id)
	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, model.NotFound("document", id)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("select document %d: %w", id, err)
	}
	return doc, nil
}

// RequireDocument fails with model.ErrNotFound unless the document exists.
func (t *Tx) RequireDocument(ctx context.Context, id int64) error {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?;`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("document", id)
	}
	if err != nil {
		return fmt.Errorf("check document %d: %w", id, err)
	}
	return nil
}

// ExistingDocumentIDs returns the subset of ids that name a stored document.
func (t *Tx) ExistingDocumentIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return t.existingIDs(ctx, "documents", ids)
}

// ListDocuments pages through documents, newest first.
func (t *Tx) ListDocuments(ctx context.Context, page model.Page) ([]model.Document, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?;
	`, sqlLimit(page.Limit), page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document's links and then the document.
func (t *Tx) DeleteDocument(ctx context.Context, id int64) (int64, error) {
	if err := t.RequireDocument(ctx, id); err != nil {
		return 0, err
	}
	removed, err := t.CascadeDeleteForDocument(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?;`, id); err != nil {
		return 0, fmt.Errorf("delete document %d: %w", id, err)
	}
	return removed, nil
}

// existingIDs looks ids up in table (a fixed, trusted name) with a single
// IN query. Callers bound the batch size.
func (t *Tx) existingIDs(ctx context.Context, table string, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := fmt.Sprintf(`SELECT id FROM %s WHERE id IN (%s);`, table, placeholders(len(ids)))
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanDocument(scan func(dest ...any) error) (model.Document, error) {
	var doc model.Document
	var created string
	if err := scan(&doc.ID, &doc.Text, &doc.Summary, &doc.Source, &doc.SourceType, &created); err != nil {
		return model.Document{}, err
	}
	var err error
	if doc.CreatedAt, err = parseTime(created); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}
