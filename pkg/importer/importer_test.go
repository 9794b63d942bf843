package importer

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tasklink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, log.New(io.Discard, "", 0)), st
}

func TestImportWalksStatusAndLinksNotes(t *testing.T) {
	im, st := newTestImporter(t)
	ctx := context.Background()

	records := []Record{
		{
			Ref:    "a",
			Task:   model.NewTask{Title: "Finished work"},
			Status: model.StatusDone,
			Notes:  []model.NewDocument{{Text: "note one"}, {Text: "note two"}},
		},
		{Ref: "b", Task: model.NewTask{Title: "Stuck"}, Status: model.StatusBlocked},
		{Ref: "c", Task: model.NewTask{Title: "Fresh", Owner: "kim"}},
	}
	res, err := im.Import(ctx, records, "importer")
	require.NoError(t, err)
	require.Len(t, res.Imported, 3)
	assert.Empty(t, res.Failed)

	done := res.Imported[0]
	assert.Equal(t, model.StatusDone, done.Status)
	assert.Equal(t, 2, done.Documents)

	docs, err := st.ListDocumentsForTask(ctx, done.TaskID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "importer", docs[0].LinkedBy)

	task, err := st.GetTask(ctx, res.Imported[1].TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBlocked, task.Status)
	assert.Equal(t, "importer", task.CreatedBy)

	task, err = st.GetTask(ctx, res.Imported[2].TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, task.Status)
}

func TestImportSkipsInvalidRecordWithoutPartialWrites(t *testing.T) {
	im, st := newTestImporter(t)
	ctx := context.Background()

	records := []Record{
		// The task is valid but its note is not, so nothing of it is kept.
		{Ref: "bad", Task: model.NewTask{Title: "Has empty note"}, Notes: []model.NewDocument{{Text: ""}}},
		{Ref: "good", Task: model.NewTask{Title: "Fine"}},
	}
	res, err := im.Import(ctx, records, "")
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad", res.Failed[0].Ref)

	tasks, err := st.ListTasks(ctx, model.TaskFilter{}, model.DefaultTaskSort, model.Page{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Fine", tasks[0].Title)
}

func TestTitle(t *testing.T) {
	title, desc := Title("  Short  ")
	assert.Equal(t, "Short", title)
	assert.Empty(t, desc)

	title, desc = Title("First line\nmore detail")
	assert.Equal(t, "First line", title)
	assert.Equal(t, "First line\nmore detail", desc)

	long := strings.Repeat("x", model.MaxTitleLen+10)
	title, desc = Title(long)
	assert.Len(t, title, model.MaxTitleLen)
	assert.Equal(t, long, desc)
}
