package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/index"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/util"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

var errStopPaging = errors.New("stop paging")

// CalendarClient mirrors tasks into a single Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	colorFor   func(model.Task) string
}

// NewCalendarClient wraps an already authenticated service.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx}
}

// SetColorFunc overrides the priority colouring of events. fn returning ""
// keeps the priority colour for that task.
func (c *CalendarClient) SetColorFunc(fn func(model.Task) string) {
	c.colorFor = fn
}

// SyncTask creates the event mirroring task, or patches the existing one
// when it has drifted.
func (c *CalendarClient) SyncTask(ctx context.Context, task model.Task, now time.Time) (*calendar.Event, error) {
	var colorID string
	if c.colorFor != nil {
		colorID = c.colorFor(task)
	}
	event, err := util.ConvertTaskWithColor(task, now, colorID)
	if err != nil {
		return nil, err
	}

	existing, err := c.findEvent(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		patch := util.EventNeedsUpdate(existing, event)
		if patch == nil {
			c.remember(task.ID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, fmt.Errorf("patch event for task %d: %w", task.ID, err)
		}
		c.remember(task.ID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event for task %d: %w", task.ID, err)
	}
	c.remember(task.ID, created.Id)
	return created, nil
}

// DeleteTaskEvent removes the event mirroring taskID, if any. It reports
// whether an event was deleted.
func (c *CalendarClient) DeleteTaskEvent(ctx context.Context, taskID int64) (bool, error) {
	existing, err := c.findEvent(ctx, taskID)
	if err != nil {
		return false, err
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	if existing == nil {
		return false, nil
	}
	if err := c.DeleteEvent(ctx, existing.Id); err != nil && !isGone(err) {
		return false, fmt.Errorf("delete event for task %d: %w", taskID, err)
	}
	return true, nil
}

// findEvent looks the event up through the local index first and falls
// back to the extended-property search.
func (c *CalendarClient) findEvent(ctx context.Context, taskID int64) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			event, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			switch {
			case err == nil && event.Status != "cancelled":
				return event, nil
			case err != nil && !isGone(err):
				log.Printf("index lookup for task %d failed, searching instead: %v", taskID, err)
			}
			c.index.Remove(taskID)
		}
	}

	event, err := c.GetEventByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}
	return event, nil
}

func (c *CalendarClient) remember(taskID int64, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// ListEvents fetches the task events starting at or after timeMin. Events
// not created by tasklink are skipped.
func (c *CalendarClient) ListEvents(ctx context.Context, timeMin time.Time) ([]*calendar.Event, error) {
	var items []*calendar.Event
	err := c.srv.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if _, ok := util.GetTaskIDFromEvent(item); ok {
					items = append(items, item)
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return items, nil
}

// GetEventByTaskID searches for the event carrying the task id in its
// private extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID int64) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%d", util.TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
