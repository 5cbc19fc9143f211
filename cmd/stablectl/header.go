package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/stablekit/internal/mmfile"
	"github.com/joshuapare/stablekit/stable"
)

func init() {
	rootCmd.AddCommand(newHeaderCmd())
}

func newHeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header <file>",
		Short: "Show the snapshot header",
		Long: `The header command decodes the 16-byte header at the start of a store
file: the offset and length of the most recent snapshot.

Example:
  stablectl header region.dat
  stablectl header region.dat --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeader(args)
		},
	}
	return cmd
}

func runHeader(args []string) error {
	path := args[0]
	printVerbose("Opening store: %s\n", path)

	r, err := mmfile.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer r.Close()

	h, err := stable.ReadHeader(r)
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"file":     path,
			"size":     r.Capacity(),
			"offset":   h.Offset,
			"length":   h.Length,
			"snapshot": !h.Empty(),
		})
	}

	printInfo("\nHeader:\n")
	printInfo("  File: %s\n", path)
	printInfo("  Size: %d bytes\n", r.Capacity())
	if h.Empty() {
		printInfo("  Snapshot: none\n")
		return nil
	}
	printInfo("  Snapshot offset: %d\n", h.Offset)
	printInfo("  Snapshot length: %d\n", h.Length)
	return nil
}
