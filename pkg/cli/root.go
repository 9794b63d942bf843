// Package cli is the tasklink command line front end. Every command maps
// onto one library operation and prints its result as JSON on stdout.
package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/config"
	"github.com/harrisonrobin/tasklink/pkg/lifecycle"
	"github.com/harrisonrobin/tasklink/pkg/relations"
	"github.com/harrisonrobin/tasklink/pkg/store"
	"github.com/spf13/cobra"
)

type app struct {
	cfg       *config.Config
	store     *store.Store
	tasks     *lifecycle.Service
	relations *relations.Service
	logger    *log.Logger
	now       func() time.Time

	dbPath   string
	maxBatch int
}

// NewRootCommand builds the tasklink command tree.
func NewRootCommand() *cobra.Command {
	a := &app{logger: log.Default(), now: time.Now}

	root := &cobra.Command{
		Use:           "tasklink",
		Short:         "Tasks, documents and the links between them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the sqlite database (overrides config)")
	root.PersistentFlags().IntVar(&a.maxBatch, "max-batch", 0, "maximum ids per link or unlink call (overrides config)")

	root.AddCommand(
		newTaskCommand(a),
		newDocCommand(a),
		newLinkCommand(a),
		newUnlinkCommand(a),
		newDocsForCommand(a),
		newTasksForCommand(a),
		newImportCommand(a),
		newCalendarCommand(a),
		newConfigCommand(a),
	)
	return root
}

// loadConfig resolves the configuration. Flags win over the environment,
// which wins over the config file.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if cmd.Flags().Changed("max-batch") {
		if a.maxBatch <= 0 {
			return fmt.Errorf("--max-batch must be positive, got %d", a.maxBatch)
		}
		cfg.MaxBatch = a.maxBatch
	}
	a.cfg = cfg
	return nil
}

// open lazily opens the database and builds the services on top of it.
func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	st, err := store.Open(a.cfg.DBPath, store.WithBusyRetries(a.cfg.BusyRetries))
	if err != nil {
		return err
	}
	a.store = st
	a.tasks = lifecycle.NewService(st, a.logger)
	a.relations = relations.NewService(st,
		relations.WithMaxBatch(a.cfg.MaxBatch),
		relations.WithPreviewLength(a.cfg.PreviewLength),
		relations.WithLogger(a.logger),
	)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// withStore wraps a RunE so the services are ready before it runs and the
// database is closed after.
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
