package taskwarrior

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/harrisonrobin/tasklink/pkg/importer"
	"github.com/harrisonrobin/tasklink/pkg/model"
)

// SourceName is stored as the source of documents made from annotations.
const SourceName = "taskwarrior"

type Client struct {
	// Binary is the task executable; empty means "task" on PATH.
	Binary string
}

func NewClient() *Client {
	return &Client{Binary: "task"}
}

// GetTasks runs `task <filter> export` with hooks disabled.
func (c *Client) GetTasks(filter []string) ([]Task, error) {
	bin := c.Binary
	if bin == "" {
		bin = "task"
	}
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	cmd := exec.Command(bin, args...)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}
	return c.ParseTasks(bytes.NewReader(output))
}

// ParseTasks reads an export, either a JSON array or one object per line
// as hooks and older versions produce.
func (c *Client) ParseTasks(r io.Reader) ([]Task, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(br)
	if first == '[' {
		var tasks []Task
		if err := decoder.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal taskwarrior export: %w", err)
		}
		return tasks, nil
	}

	var tasks []Task
	for {
		var task Task
		if err := decoder.Decode(&task); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode task json: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// Records converts exported tasks into import records. Deleted tasks and
// recurrence templates are dropped. Status maps as follows: pending is new,
// or in_progress once started; waiting or tagged BLOCKED is blocked;
// completed is done. Annotations become linked documents.
func Records(tasks []Task) []importer.Record {
	var records []importer.Record
	for _, t := range tasks {
		if t.Status == DELETED || t.Status == RECURRING {
			continue
		}
		title, desc := importer.Title(t.Description)
		rec := importer.Record{
			Ref: t.UUID,
			Task: model.NewTask{
				Title:       title,
				Description: desc,
				Priority:    priority(t.Priority),
			},
			Status: status(t),
		}
		if t.Due != nil && !t.Due.IsZero() {
			d := model.TruncateDate(t.Due.Time)
			rec.Task.DueDate = &d
		}
		for _, a := range t.Annotations {
			if strings.TrimSpace(a.Description) == "" {
				continue
			}
			rec.Notes = append(rec.Notes, model.NewDocument{
				Text:       a.Description,
				Summary:    t.Project,
				Source:     SourceName,
				SourceType: "annotation",
			})
		}
		records = append(records, rec)
	}
	return records
}

func status(t Task) model.Status {
	switch {
	case t.Status == COMPLETED:
		return model.StatusDone
	case t.Status == WAITING || t.hasTag(blockedTag):
		return model.StatusBlocked
	case t.Start != nil && !t.Start.IsZero():
		return model.StatusInProgress
	default:
		return model.StatusNew
	}
}

func priority(p string) model.Priority {
	switch strings.ToUpper(p) {
	case "H":
		return model.PriorityHigh
	case "M":
		return model.PriorityMedium
	case "L":
		return model.PriorityLow
	}
	return ""
}
