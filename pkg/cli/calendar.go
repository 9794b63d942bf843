package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/harrisonrobin/tasklink/pkg/auth"
	"github.com/harrisonrobin/tasklink/pkg/colors"
	"github.com/harrisonrobin/tasklink/pkg/config"
	"github.com/harrisonrobin/tasklink/pkg/google"
	"github.com/harrisonrobin/tasklink/pkg/index"
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/spf13/cobra"
)

func newCalendarCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Mirror dated tasks into Google Calendar",
	}
	cmd.AddCommand(newCalendarAuthCommand(a), newCalendarSyncCommand(a))
	return cmd
}

func newCalendarAuthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize tasklink against Google Calendar, replacing any cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return fmt.Errorf("could not find configuration directory: %w", err)
			}
			if err := auth.RemoveToken(dir); err != nil {
				return fmt.Errorf("could not delete cached token, please delete it manually: %w", err)
			}
			if _, err := auth.GetCalendarService(cmd.Context(), dir); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			log.Printf("Authentication successful! Token saved in %s", dir)
			return nil
		},
	}
}

// SyncResult reports one calendar sync run.
type SyncResult struct {
	Calendar string  `json:"calendar"`
	Synced   int     `json:"synced"`
	Removed  int     `json:"removed"`
	Failed   []int64 `json:"failed_ids,omitempty"`
}

func newCalendarSyncCommand(a *app) *cobra.Command {
	var calendarName string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create or update an event per dated task and drop events of removed or undated tasks",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if calendarName == "" {
				calendarName = a.cfg.Calendar
			}
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			idx, err := index.NewEventIndex(dir)
			if err != nil {
				log.Printf("Warning: failed to load event index, searching the calendar instead: %v", err)
				idx = nil
			}
			client, err := google.NewClient(cmd.Context(), dir, calendarName, idx)
			if err != nil {
				return err
			}

			var cache *colors.ColorCache
			if a.cfg.ColorBy == config.ColorByOwner {
				if cache, err = colors.NewColorCache(dir); err != nil {
					return err
				}
				cache.ResetCounts()
				client.SetColorFunc(func(task model.Task) string {
					return cache.ColorID(task.Owner, task.Status != model.StatusDone)
				})
			}

			res, err := a.syncCalendar(cmd.Context(), client, idx)
			if err != nil {
				return err
			}
			res.Calendar = calendarName
			if idx != nil {
				if err := idx.Save(); err != nil {
					log.Printf("Warning: failed to save event index: %v", err)
				}
			}
			if cache != nil {
				if err := cache.Save(); err != nil {
					log.Printf("Warning: failed to save owner colours: %v", err)
				}
			}
			return printJSON(cmd, res)
		}),
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "calendar name (overrides config)")
	return cmd
}

// syncCalendar mirrors every task with a due date and removes the events of
// indexed tasks that no longer have one. A failure on one task does not stop
// the run.
func (a *app) syncCalendar(ctx context.Context, client *google.CalendarClient, idx *index.EventIndex) (SyncResult, error) {
	tasks, err := a.tasks.ListTasks(ctx, model.TaskFilter{}, model.TaskSort{Key: model.SortDueDate}, model.Page{})
	if err != nil {
		return SyncResult{}, err
	}

	var res SyncResult
	now := a.now()
	dated := make(map[int64]bool, len(tasks))
	for _, task := range tasks {
		if task.DueDate == nil {
			continue
		}
		dated[task.ID] = true
		if _, err := client.SyncTask(ctx, task, now); err != nil {
			log.Printf("Error syncing task %d: %v", task.ID, err)
			res.Failed = append(res.Failed, task.ID)
			continue
		}
		res.Synced++
	}

	if idx == nil {
		return res, nil
	}
	for _, id := range idx.TaskIDs() {
		if dated[id] {
			continue
		}
		removed, err := client.DeleteTaskEvent(ctx, id)
		if err != nil {
			log.Printf("Error deleting event of task %d: %v", id, err)
			res.Failed = append(res.Failed, id)
			continue
		}
		if removed {
			res.Removed++
		}
	}
	return res, nil
}
