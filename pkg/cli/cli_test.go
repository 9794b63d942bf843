package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/config"
	"github.com/harrisonrobin/tasklink/pkg/importer"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/overdue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvDBPath, "")
	t.Setenv(config.EnvMaxBatch, "")
	t.Setenv(config.EnvCalendar, "")
	return harness{db: filepath.Join(t.TempDir(), "cli.db")}
}

func (h harness) run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--db", h.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func (h harness) mustRun(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err)
	if v != nil {
		require.NoError(t, json.Unmarshal(out, v), "output: %s", out)
	}
}

func TestCreateTaskWithDocumentsAndList(t *testing.T) {
	h := newHarness(t)

	var doc model.Document
	h.mustRun(t, &doc, "doc", "create", "--text", "meeting notes", "--source", "email")
	assert.Equal(t, "email", doc.Source)

	var created struct {
		Task  model.Task       `json:"task"`
		Links model.LinkResult `json:"links"`
	}
	h.mustRun(t, &created, "task", "create", "--title", "Follow up", "--by", "ana",
		"--doc", "1", "--doc", "99", "--due", "2024-01-10")
	assert.Equal(t, model.StatusNew, created.Task.Status)
	assert.Equal(t, 1, created.Links.Linked)
	assert.Equal(t, []int64{99}, created.Links.Skipped)

	var refs []model.DocumentRef
	h.mustRun(t, &refs, "docs-for", "1")
	require.Len(t, refs, 1)
	assert.Equal(t, doc.ID, refs[0].ID)
	assert.Equal(t, "ana", refs[0].LinkedBy)

	var tasks []model.TaskRef
	h.mustRun(t, &tasks, "tasks-for", "1")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Follow up", tasks[0].Title)
}

func TestLinkUnlinkAndDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, nil, "task", "create", "--title", "T1")
	h.mustRun(t, nil, "doc", "create", "--text", "D1")
	h.mustRun(t, nil, "doc", "create", "--text", "D2")

	var res model.LinkResult
	h.mustRun(t, &res, "link", "docs", "1", "1", "1", "2", "--by", "sam")
	assert.Equal(t, 2, res.Linked)
	assert.Equal(t, 2, res.Created)

	h.mustRun(t, &res, "link", "tasks", "2", "1")
	assert.Equal(t, 1, res.Linked)
	assert.Equal(t, 0, res.Created)

	var un model.UnlinkResult
	h.mustRun(t, &un, "unlink", "docs", "1", "2", "2")
	assert.Equal(t, 1, un.Unlinked)

	var del deleteResult
	h.mustRun(t, &del, "doc", "delete", "1")
	assert.Equal(t, int64(1), del.LinksRemoved)

	var refs []model.DocumentRef
	h.mustRun(t, &refs, "docs-for", "1")
	assert.Empty(t, refs)

	_, err := h.run(t, "doc", "get", "1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLinkBatchLimitFlag(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, nil, "task", "create", "--title", "T1")

	_, err := h.run(t, "--max-batch", "2", "link", "docs", "1", "1", "2", "3")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTransitionsThroughCLI(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, nil, "task", "create", "--title", "Ship")

	var task model.Task
	h.mustRun(t, &task, "task", "transition", "1", "in_progress")
	assert.Equal(t, model.StatusInProgress, task.Status)

	_, err := h.run(t, "task", "transition", "1", "new")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	var updated struct {
		Task    model.Task `json:"task"`
		Changed []string   `json:"changed_fields"`
	}
	h.mustRun(t, &updated, "task", "update", "1", "--owner", "kim", "--status", "done")
	assert.Equal(t, []string{"owner", "status"}, updated.Changed)
	assert.Equal(t, model.StatusDone, updated.Task.Status)

	var counts map[model.Status]int
	h.mustRun(t, &counts, "task", "counts")
	assert.Equal(t, 1, counts[model.StatusDone])

	_, err = h.run(t, "task", "create", "--title", "Skip ahead", "--status", "done")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOverdueReport(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, nil, "task", "create", "--title", "Old", "--due", "2000-01-01")
	h.mustRun(t, nil, "task", "create", "--title", "Future", "--due", time.Now().AddDate(1, 0, 0).Format(model.DateLayout))
	h.mustRun(t, nil, "task", "create", "--title", "Undated")

	var entries []overdue.Entry
	h.mustRun(t, &entries, "task", "overdue")
	require.Len(t, entries, 1)
	assert.Equal(t, "Old", entries[0].Title)
}

func TestSetCalendarKeepsFileMinimal(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, nil, "config", "set-calendar", "Work")

	path, err := config.GetConfigPath()
	require.NoError(t, err)
	cfg, err := config.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Work", cfg.Calendar)
	assert.Empty(t, cfg.DBPath)
}

func TestImportOrgFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "todo.org")
	require.NoError(t, os.WriteFile(path, []byte("* DONE Shipped\n  Release notes here.\n* TODO Next up\n"), 0600))

	var res importer.Result
	h.mustRun(t, &res, "import", "org", path)
	require.Len(t, res.Imported, 2)
	assert.Equal(t, model.StatusDone, res.Imported[0].Status)
	assert.Equal(t, 1, res.Imported[0].Documents)

	var refs []model.DocumentRef
	h.mustRun(t, &refs, "docs-for", "1")
	require.Len(t, refs, 1)
	assert.Equal(t, "import", refs[0].LinkedBy)
}
