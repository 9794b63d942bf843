package cli

import (
	"log"

	"github.com/harrisonrobin/tasklink/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the tasklink configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printJSON(cmd, a.cfg)
			},
		},
		&cobra.Command{
			Use:   "set-calendar <name>",
			Short: "Set the default Google Calendar name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				cfg, err := config.ReadFile(path)
				if err != nil {
					return err
				}
				cfg.Calendar = args[0]
				if err := config.SaveTo(path, cfg); err != nil {
					return err
				}
				log.Printf("Default calendar set to: %s", args[0])
				return nil
			},
		},
	)
	return cmd
}
