package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/config"
)

// NewConfigCommand creates the 'projdock config' parent command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			data, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		}),
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fmt.Fprintln(a.out, a.configPath)
			return nil
		}),
	}
}

func newConfigInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Write a default config file",
		Example: `  projdock config init --root P:\Projects --root Q:\Archive`,
		Args:    cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			force, _ := cmd.Flags().GetBool("force")
			roots, _ := cmd.Flags().GetStringSlice("root")

			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}

			cfg := config.DefaultConfig()
			if len(roots) > 0 {
				cfg.Roots = roots
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(cmd.Context(), a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %s\n", a.configPath)
			return nil
		}),
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	cmd.Flags().StringSlice("root", nil, "Project drive roots")
	return cmd
}
