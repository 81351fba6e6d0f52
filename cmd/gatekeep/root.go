package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/gatekeep/internal/app"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	ConfigPath   string
	LogLevel     string
	LogFormat    string
	Debug        bool
	OutputFormat string
)

var RootCmd = &cobra.Command{
	SilenceUsage: true,
	Use:          "gatekeep",
	Short:        "An account, profile and contact service",
	Long:         `Gatekeep serves user registration, sessions, profiles and contact lists, publishing every change on an in-process event bus.`,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	RootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level (overrides config)")
	RootCmd.PersistentFlags().StringVar(&LogFormat, "log-format", "", "Log format, text or json (overrides config)")
	RootCmd.PersistentFlags().BoolVarP(&Debug, "debug", "d", false, "Debug output")
	RootCmd.PersistentFlags().StringVarP(&OutputFormat, "output", "o", FormatTable, "Output format. One of table|json|yaml")
}

func appOptions() app.Options {
	return app.Options{
		ConfigPath: ConfigPath,
		Debug:      Debug,
		LogLevel:   LogLevel,
		LogFormat:  LogFormat,
	}
}

// writeStructured writes v as JSON or YAML per OutputFormat.
func writeStructured(w io.Writer, v any) error {
	switch strings.ToLower(OutputFormat) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", OutputFormat)
	}
}
