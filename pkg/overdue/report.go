package overdue

import (
	"sort"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/model"
)

type Entry struct {
	TaskID      int64        `json:"id"`
	Title       string       `json:"title"`
	Status      model.Status `json:"status"`
	Owner       string       `json:"owner,omitempty"`
	DueDate     string       `json:"due_date"`
	DaysOverdue int          `json:"days_overdue"`
}

// IsOverdue reports whether an open task's due date is strictly before the
// calendar day of now. Done tasks are never overdue.
func IsOverdue(task model.Task, now time.Time) bool {
	if task.DueDate == nil || task.Status == model.StatusDone {
		return false
	}
	return task.DueDate.Before(today(now))
}

// Sweep returns the overdue tasks among tasks, most overdue first.
func Sweep(tasks []model.Task, now time.Time) []Entry {
	day := today(now)
	var swept []Entry
	for _, task := range tasks {
		if !IsOverdue(task, now) {
			continue
		}
		swept = append(swept, Entry{
			TaskID:      task.ID,
			Title:       task.Title,
			Status:      task.Status,
			Owner:       task.Owner,
			DueDate:     task.DueDateString(),
			DaysOverdue: int(day.Sub(*task.DueDate).Hours() / 24),
		})
	}
	sort.SliceStable(swept, func(i, j int) bool {
		if swept[i].DaysOverdue != swept[j].DaysOverdue {
			return swept[i].DaysOverdue > swept[j].DaysOverdue
		}
		return swept[i].TaskID < swept[j].TaskID
	})
	return swept
}

// today is the calendar day of now in its own location, expressed as UTC
// midnight to line up with stored due dates.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
