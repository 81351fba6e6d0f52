package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of gatekeep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), VersionInfo{
			Version:   version,
			Commit:    commit,
			Date:      date,
			GoVersion: runtime.Version(),
		})
	},
}

func writeVersion(w io.Writer, v VersionInfo) error {
	if OutputFormat != FormatTable {
		return writeStructured(w, v)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Version", "Commit", "Date", "Go Version"})
	table.Append([]string{v.Version, v.Commit, v.Date, v.GoVersion})
	table.Render()
	_, err := fmt.Fprintln(w)
	return err
}
