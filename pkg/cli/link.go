package cli

import (
	"context"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/spf13/cobra"
)

func newLinkCommand(a *app) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link tasks and documents; unknown ids are skipped",
	}
	cmd.PersistentFlags().StringVar(&by, "by", "", "actor recorded on the new links")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "docs <task-id> <document-id>...",
			Short: "Link documents to a task",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.withStore(batchRun("task_id", "document_ids", func(ctx context.Context, anchor int64, ids []int64) (any, error) {
				return a.relations.LinkDocumentsToTask(ctx, anchor, ids, by)
			})),
		},
		&cobra.Command{
			Use:   "tasks <document-id> <task-id>...",
			Short: "Link tasks to a document",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.withStore(batchRun("document_id", "task_ids", func(ctx context.Context, anchor int64, ids []int64) (any, error) {
				return a.relations.LinkTasksToDocument(ctx, anchor, ids, by)
			})),
		},
	)
	return cmd
}

func newUnlinkCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlink",
		Short: "Remove links between tasks and documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "docs <task-id> <document-id>...",
			Short: "Unlink documents from a task",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.withStore(batchRun("task_id", "document_ids", func(ctx context.Context, anchor int64, ids []int64) (any, error) {
				return a.relations.UnlinkDocumentsFromTask(ctx, anchor, ids)
			})),
		},
		&cobra.Command{
			Use:   "tasks <document-id> <task-id>...",
			Short: "Unlink tasks from a document",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.withStore(batchRun("document_id", "task_ids", func(ctx context.Context, anchor int64, ids []int64) (any, error) {
				return a.relations.UnlinkTasksFromDocument(ctx, anchor, ids)
			})),
		},
	)
	return cmd
}

// batchRun parses "<anchor> <id>..." and prints what op returns.
func batchRun(anchorField, idsField string, op func(ctx context.Context, anchor int64, ids []int64) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		anchor, err := model.ParseID(anchorField, args[0])
		if err != nil {
			return err
		}
		ids, err := model.ParseIDs(idsField, args[1:])
		if err != nil {
			return err
		}
		res, err := op(cmd.Context(), anchor, ids)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	}
}

func newDocsForCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "docs-for <task-id>",
		Short: "List the documents linked to a task, most recently linked first",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("task_id", args[0])
			if err != nil {
				return err
			}
			refs, err := a.relations.GetDocumentsForTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			if refs == nil {
				refs = []model.DocumentRef{}
			}
			return printJSON(cmd, refs)
		}),
	}
}

func newTasksForCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks-for <document-id>",
		Short: "List the tasks linked to a document, most recently linked first",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("document_id", args[0])
			if err != nil {
				return err
			}
			refs, err := a.relations.GetTasksForDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			if refs == nil {
				refs = []model.TaskRef{}
			}
			return printJSON(cmd, refs)
		}),
	}
}
