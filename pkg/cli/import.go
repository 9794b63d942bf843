package cli

import (
	"io"
	"os"

	"github.com/harrisonrobin/tasklink/pkg/importer"
	"github.com/harrisonrobin/tasklink/pkg/orgmode"
	"github.com/harrisonrobin/tasklink/pkg/taskwarrior"
	"github.com/spf13/cobra"
)

func newImportCommand(a *app) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tasks from other trackers; notes become linked documents",
	}
	cmd.PersistentFlags().StringVar(&by, "by", "import", "creator recorded on imported tasks and links")

	var filter []string
	tw := &cobra.Command{
		Use:   "taskwarrior [export-file|-]",
		Short: "Import a Taskwarrior export, or run `task export` when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			client := taskwarrior.NewClient()
			var tasks []taskwarrior.Task
			var err error
			if len(args) == 0 {
				tasks, err = client.GetTasks(filter)
			} else {
				tasks, err = parseExport(cmd, client, args[0])
			}
			if err != nil {
				return err
			}
			return a.runImport(cmd, taskwarrior.Records(tasks), by)
		}),
	}
	tw.Flags().StringSliceVar(&filter, "filter", nil, "filter arguments passed to task export")

	org := &cobra.Command{
		Use:   "org <file>...",
		Short: "Import TODO headings from Org-mode files",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			records, err := orgmode.ParseFiles(args)
			if err != nil {
				return err
			}
			return a.runImport(cmd, records, by)
		}),
	}

	cmd.AddCommand(tw, org)
	return cmd
}

func parseExport(cmd *cobra.Command, client *taskwarrior.Client, path string) ([]taskwarrior.Task, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return client.ParseTasks(r)
}

func (a *app) runImport(cmd *cobra.Command, records []importer.Record, by string) error {
	res, err := importer.New(a.store, a.logger).Import(cmd.Context(), records, by)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}
