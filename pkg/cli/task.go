package cli

import (
	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/harrisonrobin/tasklink/pkg/overdue"
	"github.com/spf13/cobra"
)

func newTaskCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, inspect and move tasks",
	}
	cmd.AddCommand(
		newTaskCreateCommand(a),
		newTaskGetCommand(a),
		newTaskListCommand(a),
		newTaskUpdateCommand(a),
		newTaskTransitionCommand(a),
		newTaskDeleteCommand(a),
		newTaskCountsCommand(a),
		newTaskOverdueCommand(a),
	)
	return cmd
}

func newTaskCreateCommand(a *app) *cobra.Command {
	var (
		nt     model.NewTask
		status string
		prio   string
		due    string
		docs   []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task, optionally linked to existing documents",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			nt.Status = model.Status(status)
			nt.Priority = model.Priority(prio)
			if due != "" {
				d, err := model.ParseDate(due)
				if err != nil {
					return err
				}
				nt.DueDate = &d
			}

			if !cmd.Flags().Changed("doc") {
				task, err := a.tasks.CreateTask(cmd.Context(), nt)
				if err != nil {
					return err
				}
				return printJSON(cmd, task)
			}

			ids, err := model.ParseIDs("document_ids", docs)
			if err != nil {
				return err
			}
			task, res, err := a.relations.CreateTaskWithDocuments(cmd.Context(), nt, ids)
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				Task  model.Task       `json:"task"`
				Links model.LinkResult `json:"links"`
			}{task, res})
		}),
	}
	f := cmd.Flags()
	f.StringVar(&nt.Title, "title", "", "task title")
	f.StringVar(&nt.Description, "description", "", "task description")
	f.StringVar(&status, "status", "", "initial status (only new is accepted)")
	f.StringVar(&prio, "priority", "", "low, medium, high or urgent (default medium)")
	f.StringVar(&nt.Owner, "owner", "", "owner of the task")
	f.StringVar(&nt.CreatedBy, "by", "", "creator recorded on the task and its links")
	f.StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	f.StringSliceVar(&docs, "doc", nil, "document id to link; repeatable")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("task_id", args[0])
			if err != nil {
				return err
			}
			task, err := a.tasks.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, task)
		}),
	}
}

func newTaskListCommand(a *app) *cobra.Command {
	var (
		status, owner, prio, createdBy string
		sortKey, order                 string
		page                           model.Page
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			sort, err := model.ParseSort(sortKey, order)
			if err != nil {
				return err
			}
			filter := model.TaskFilter{
				Status:    model.Status(status),
				Owner:     owner,
				Priority:  model.Priority(prio),
				CreatedBy: createdBy,
			}
			tasks, err := a.tasks.ListTasks(cmd.Context(), filter, sort, page)
			if err != nil {
				return err
			}
			if tasks == nil {
				tasks = []model.Task{}
			}
			return printJSON(cmd, tasks)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "only tasks in this status")
	f.StringVar(&owner, "owner", "", "only tasks with this owner")
	f.StringVar(&prio, "priority", "", "only tasks with this priority")
	f.StringVar(&createdBy, "created-by", "", "only tasks created by this actor")
	f.StringVar(&sortKey, "sort", "", "created_at, updated_at, title, priority or due_date")
	f.StringVar(&order, "order", "", "asc or desc")
	f.IntVar(&page.Limit, "limit", 50, "maximum number of tasks; 0 for all")
	f.IntVar(&page.Offset, "offset", 0, "number of tasks to skip")
	return cmd
}

func newTaskUpdateCommand(a *app) *cobra.Command {
	var (
		title, description, prio, owner, due, status string
		clearDue                                     bool
	)
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("task_id", args[0])
			if err != nil {
				return err
			}

			var patch model.TaskPatch
			f := cmd.Flags()
			if f.Changed("title") {
				patch.Title = &title
			}
			if f.Changed("description") {
				patch.Description = &description
			}
			if f.Changed("priority") {
				p := model.Priority(prio)
				patch.Priority = &p
			}
			if f.Changed("owner") {
				patch.Owner = &owner
			}
			if f.Changed("due") {
				d, err := model.ParseDate(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			patch.ClearDueDate = clearDue
			if f.Changed("status") {
				s := model.Status(status)
				patch.Status = &s
			}
			if patch.Empty() {
				return model.Validationf("patch", "no fields to update")
			}

			task, changed, err := a.tasks.UpdateTask(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			if changed == nil {
				changed = []string{}
			}
			return printJSON(cmd, struct {
				Task    model.Task `json:"task"`
				Changed []string   `json:"changed_fields"`
			}{task, changed})
		}),
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "new title")
	f.StringVar(&description, "description", "", "new description; empty clears it")
	f.StringVar(&prio, "priority", "", "new priority")
	f.StringVar(&owner, "owner", "", "new owner; empty clears it")
	f.StringVar(&due, "due", "", "new due date as YYYY-MM-DD")
	f.BoolVar(&clearDue, "clear-due", false, "remove the due date")
	f.StringVar(&status, "status", "", "new status; must be a legal transition")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func newTaskTransitionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transition <task-id> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("task_id", args[0])
			if err != nil {
				return err
			}
			task, err := a.tasks.Transition(cmd.Context(), id, model.Status(args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd, task)
		}),
	}
}

func newTaskDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and all of its links",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("task_id", args[0])
			if err != nil {
				return err
			}
			n, err := a.relations.DeleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, deleteResult{ID: id, LinksRemoved: n})
		}),
	}
}

type deleteResult struct {
	ID           int64 `json:"id"`
	LinksRemoved int64 `json:"links_removed"`
}

func newTaskCountsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Count tasks per status",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			counts, err := a.tasks.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		}),
	}
}

func newTaskOverdueCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List open tasks whose due date has passed, most overdue first",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			tasks, err := a.store.ListOpenTasksWithDueDate(cmd.Context())
			if err != nil {
				return err
			}
			entries := overdue.Sweep(tasks, a.now())
			if entries == nil {
				entries = []overdue.Entry{}
			}
			return printJSON(cmd, entries)
		}),
	}
}
