package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/stablekit/internal/format"
)

// Set at link time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and supported snapshot format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("stablectl %s (%s, built %s)\n", version, commit, date)
	fmt.Printf("  snapshot format: %d\n", format.SnapshotVersion)
	fmt.Printf("  header size:     %d bytes\n", format.HeaderSize)
	fmt.Printf("  go:              %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
