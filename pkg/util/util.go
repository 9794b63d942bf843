package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/overdue"
	"google.golang.org/api/calendar/v3"
)

// TaskIDProperty is the private extended property that ties an event back
// to its task.
const TaskIDProperty = "tasklink_id"

// Google Calendar event colour ids.
var priorityColors = map[model.Priority]string{
	model.PriorityLow:    "2",  // sage
	model.PriorityMedium: "5",  // banana
	model.PriorityHigh:   "6",  // tangerine
	model.PriorityUrgent: "11", // tomato
}

const doneColor = "8" // graphite

// ConvertTaskToCalendarEvent renders a task as an all-day event on its due
// date, coloured by priority. Tasks without a due date cannot be mirrored.
func ConvertTaskToCalendarEvent(task model.Task, now time.Time) (*calendar.Event, error) {
	return ConvertTaskWithColor(task, now, "")
}

// ConvertTaskWithColor is ConvertTaskToCalendarEvent with an explicit event
// colour; an empty colorID falls back to the priority colour. Done tasks are
// always graphite.
func ConvertTaskWithColor(task model.Task, now time.Time, colorID string) (*calendar.Event, error) {
	if task.DueDate == nil {
		return nil, fmt.Errorf("task %d has no due date", task.ID)
	}

	prefix := ""
	switch {
	case task.Status == model.StatusDone:
		prefix = "✓"
	case overdue.IsOverdue(task, now):
		prefix = "!"
	case task.Status == model.StatusInProgress:
		prefix = "‣"
	}
	summary := task.Title
	if prefix != "" {
		summary = fmt.Sprintf("%s %s", prefix, task.Title)
	}

	if colorID == "" {
		colorID = priorityColors[task.Priority]
	}
	if task.Status == model.StatusDone {
		colorID = doneColor
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Status: %s\n", task.Status)
	fmt.Fprintf(&desc, "Priority: %s\n", task.Priority)
	if task.Owner != "" {
		fmt.Fprintf(&desc, "Owner: %s\n", task.Owner)
	}
	fmt.Fprintf(&desc, "ID: %d\n", task.ID)
	if task.Description != "" {
		desc.WriteString("\n")
		desc.WriteString(task.Description)
		desc.WriteString("\n")
	}

	day := task.DueDate.Format(model.DateLayout)
	next := task.DueDate.AddDate(0, 0, 1).Format(model.DateLayout)

	return &calendar.Event{
		Summary:     summary,
		ColorId:     colorID,
		Description: desc.String(),
		Start:       &calendar.EventDateTime{Date: day},
		End:         &calendar.EventDateTime{Date: next},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				TaskIDProperty: strconv.FormatInt(task.ID, 10),
			},
		},
	}, nil
}

// EventNeedsUpdate returns a patch carrying only the fields in which target
// differs from existing, or nil when they already agree.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDate(existing.Start) != eventDate(target.Start) || eventDate(existing.End) != eventDate(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

// GetTaskIDFromEvent reads the task id back out of an event.
func GetTaskIDFromEvent(event *calendar.Event) (int64, bool) {
	if event == nil || event.ExtendedProperties == nil {
		return 0, false
	}
	raw, ok := event.ExtendedProperties.Private[TaskIDProperty]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func eventDate(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	return dt.DateTime
}
