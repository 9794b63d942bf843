// Package importer loads tasks read from other trackers into tasklink. Each
// record becomes one task, in its target status, with its notes stored as
// documents linked to it.
package importer

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/harrisonrobin/tasklink/pkg/lifecycle"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/store"
)

// Record is one task read from an external source.
type Record struct {
	// Ref identifies the task in its source, for reporting.
	Ref    string
	Task   model.NewTask
	Status model.Status
	Notes  []model.NewDocument
}

type Imported struct {
	Ref       string       `json:"ref"`
	TaskID    int64        `json:"task_id"`
	Status    model.Status `json:"status"`
	Documents int          `json:"documents"`
}

type Failure struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

type Result struct {
	Imported []Imported `json:"imported"`
	Failed   []Failure  `json:"failed,omitempty"`
}

type Importer struct {
	store  *store.Store
	logger *log.Logger
}

// New returns an importer writing to st. A nil logger means log.Default().
func New(st *store.Store, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{store: st, logger: logger}
}

// Import writes every record in its own transaction, so a bad record leaves
// no partial task behind and does not stop the others. createdBy is
// recorded on the tasks and links.
func (im *Importer) Import(ctx context.Context, records []Record, createdBy string) (Result, error) {
	res := Result{Imported: []Imported{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		imp, err := im.importOne(ctx, rec, createdBy)
		if err != nil {
			if !model.IsDomain(err) {
				return res, err
			}
			im.logger.Printf("import: skipping %s: %v", rec.Ref, err)
			res.Failed = append(res.Failed, Failure{Ref: rec.Ref, Error: err.Error()})
			continue
		}
		res.Imported = append(res.Imported, imp)
	}
	im.logger.Printf("import: %d tasks imported, %d failed", len(res.Imported), len(res.Failed))
	return res, nil
}

func (im *Importer) importOne(ctx context.Context, rec Record, createdBy string) (Imported, error) {
	nt := rec.Task
	nt.Status = ""
	if nt.CreatedBy == "" {
		nt.CreatedBy = createdBy
	}
	target := rec.Status
	if target == "" {
		target = lifecycle.Initial
	}
	steps, ok := lifecycle.Path(lifecycle.Initial, target)
	if !ok {
		return Imported{}, model.InvalidTransition(0, lifecycle.Initial, target)
	}

	var imp Imported
	err := im.store.WithTx(ctx, func(tx *store.Tx) error {
		imp = Imported{Ref: rec.Ref}
		task, err := tx.CreateTask(ctx, nt)
		if err != nil {
			return err
		}
		for _, note := range rec.Notes {
			doc, err := tx.CreateDocument(ctx, note)
			if err != nil {
				return err
			}
			if _, err := tx.Link(ctx, task.ID, doc.ID, nt.CreatedBy); err != nil {
				return err
			}
			imp.Documents++
		}
		for _, next := range steps {
			from := task.Status
			task, _, err = tx.UpdateTask(ctx, task.ID, model.TaskPatch{Status: &next}, &from)
			if err != nil {
				return err
			}
		}
		imp.TaskID = task.ID
		imp.Status = task.Status
		return nil
	})
	return imp, err
}

// Title turns free text into a task title: its first non-empty line, cut to
// the title limit. The full text is returned as the description when the
// title does not already carry all of it.
func Title(text string) (title, description string) {
	text = strings.TrimSpace(text)
	title = text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		title = strings.TrimSpace(text[:i])
	}
	title = truncate(title, model.MaxTitleLen)
	if title != text {
		description = truncate(text, model.MaxDescriptionLen)
	}
	return title, description
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
