package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/index"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/util"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const eventsPath = "/calendars/cal/events"

// fakeCalendar serves the subset of the events API the client touches.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	inserts int
	patches int
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, eventsPath) {
		http.NotFound(w, r)
		return
	}
	eventID := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, eventsPath), "/")

	switch {
	case eventID == "" && r.Method == http.MethodGet:
		filter := r.URL.Query().Get("privateExtendedProperty")
		out := &calendar.Events{}
		for _, ev := range f.events {
			if filter != "" {
				key, value, _ := strings.Cut(filter, "=")
				if ev.ExtendedProperties == nil || ev.ExtendedProperties.Private[key] != value {
					continue
				}
			}
			out.Items = append(out.Items, ev)
		}
		json.NewEncoder(w).Encode(out)
	case eventID == "" && r.Method == http.MethodPost:
		ev := &calendar.Event{}
		json.NewDecoder(r.Body).Decode(ev)
		f.nextID++
		ev.Id = fmt.Sprintf("evt-%d", f.nextID)
		f.events[ev.Id] = ev
		f.inserts++
		json.NewEncoder(w).Encode(ev)
	default:
		ev, ok := f.events[eventID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"Not Found"}}`)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(ev)
		case http.MethodPatch:
			patch := &calendar.Event{}
			json.NewDecoder(r.Body).Decode(patch)
			if patch.Summary != "" {
				ev.Summary = patch.Summary
			}
			if patch.Description != "" {
				ev.Description = patch.Description
			}
			if patch.ColorId != "" {
				ev.ColorId = patch.ColorId
			}
			if patch.Start != nil {
				ev.Start, ev.End = patch.Start, patch.End
			}
			f.patches++
			json.NewEncoder(w).Encode(ev)
		case http.MethodDelete:
			delete(f.events, eventID)
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func newFakeClient(t *testing.T, idx *index.EventIndex) (*CalendarClient, *fakeCalendar) {
	t.Helper()
	fake := &fakeCalendar{events: make(map[string]*calendar.Event)}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("calendar.NewService failed: %v", err)
	}
	return NewCalendarClient(srv, "cal", idx), fake
}

func TestSyncTaskCreatesThenPatches(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewEventIndex(t.TempDir())
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}
	client, fake := newFakeClient(t, idx)

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	task := model.Task{ID: 4, Title: "Ship", Status: model.StatusNew, Priority: model.PriorityHigh, DueDate: &due}

	created, err := client.SyncTask(ctx, task, now)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if idx.Get(4) != created.Id {
		t.Errorf("Expected index to map task 4 to %s, got %q", created.Id, idx.Get(4))
	}

	// Unchanged task: no write.
	if _, err := client.SyncTask(ctx, task, now); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 || fake.patches != 0 {
		t.Errorf("Expected 1 insert and 0 patches, got %d and %d", fake.inserts, fake.patches)
	}

	task.Title = "Ship it"
	updated, err := client.SyncTask(ctx, task, now)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if updated.Summary != "Ship it" || fake.patches != 1 {
		t.Errorf("Expected patched summary, got %q after %d patches", updated.Summary, fake.patches)
	}
}

func TestSyncTaskFindsEventWithoutIndex(t *testing.T) {
	ctx := context.Background()
	client, fake := newFakeClient(t, nil)

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	task := model.Task{ID: 9, Title: "Find me", Status: model.StatusNew, Priority: model.PriorityLow, DueDate: &due}

	if _, err := client.SyncTask(ctx, task, due); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if _, err := client.SyncTask(ctx, task, due); err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 {
		t.Errorf("Expected the search to find the first event, got %d inserts", fake.inserts)
	}

	deleted, err := client.DeleteTaskEvent(ctx, 9)
	if err != nil {
		t.Fatalf("DeleteTaskEvent failed: %v", err)
	}
	if !deleted || len(fake.events) != 0 {
		t.Errorf("Expected the event to be deleted, remaining %d", len(fake.events))
	}

	deleted, err = client.DeleteTaskEvent(ctx, 9)
	if err != nil || deleted {
		t.Errorf("Expected a second delete to be a no-op, got %v, %v", deleted, err)
	}
}

func TestStaleIndexEntryFallsBackToSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewEventIndex(t.TempDir())
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}
	idx.Set(2, "evt-gone")
	client, fake := newFakeClient(t, idx)

	due := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	task := model.Task{ID: 2, Title: "Stale", Status: model.StatusNew, Priority: model.PriorityMedium, DueDate: &due}
	ev, err := client.SyncTask(ctx, task, due)
	if err != nil {
		t.Fatalf("SyncTask failed: %v", err)
	}
	if fake.inserts != 1 || idx.Get(2) != ev.Id {
		t.Errorf("Expected a fresh insert indexed as %s, got %q", ev.Id, idx.Get(2))
	}

	events, err := client.ListEvents(ctx, due.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if id, ok := util.GetTaskIDFromEvent(events[0]); !ok || id != 2 {
		t.Errorf("Expected task id 2, got %d", id)
	}
}
