package main

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dshills/gatekeep/internal/config"
)

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configEnvCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect gatekeep configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after file and environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(afero.NewOsFs(), ConfigPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if cfg.Auth.TokenSecret != "" {
			cfg.Auth.TokenSecret = "<redacted>"
		}

		// YAML when asked for, otherwise the format of the config file.
		name := "gatekeep.toml"
		if OutputFormat == FormatYAML {
			name = "gatekeep.yaml"
		} else if ConfigPath != "" {
			name = filepath.Base(ConfigPath)
		}
		return config.Encode(cmd.OutOrStdout(), name, cfg)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Variable", "Set"})
		names := config.EnvVars()
		slices.Sort(names)
		for _, name := range names {
			_, set := os.LookupEnv(name)
			mark := ""
			if set {
				mark = "yes"
			}
			table.Append([]string{name, mark})
		}
		table.Render()
		return nil
	},
}
