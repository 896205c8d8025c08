// Package config manages the securitas configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/securitas/internal/conf"
)

// Command creates the config command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(), validateCommand(settings))
	return cmd
}

func initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a configuration file with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			defaults, err := conf.DefaultSettings()
			if err != nil {
				return err
			}
			if err := conf.SaveYAMLConfig(path, defaults); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func validateCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Loading already validated the settings.
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid: database=%s web=%t mqtt=%t notifications=%t\n",
				settings.Database.Type,
				settings.WebServer.Enabled,
				settings.Ingest.MQTT.Enabled,
				settings.Notification.Enabled)
			return nil
		},
	}
}
