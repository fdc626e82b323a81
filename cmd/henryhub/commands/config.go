package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.Default(), output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "henryhub.yaml", "destination file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after file and environment overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return config.Write(cmd.OutOrStdout(), a.cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
