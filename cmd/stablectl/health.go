package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/stablekit/alloc"
	"github.com/joshuapare/stablekit/internal/mmfile"
	"github.com/joshuapare/stablekit/stable"
)

var (
	healthUnit     string
	healthSegments bool
)

func init() {
	cmd := newHealthCmd()
	cmd.Flags().StringVar(&healthUnit, "unit", "", "Scale sizes to KB or MB (default: bytes)")
	cmd.Flags().BoolVar(&healthSegments, "segments", false, "List every free segment")
	rootCmd.AddCommand(cmd)
}

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health <file>",
		Short: "Report allocator usage recorded in the snapshot",
		Long: `The health command reads the allocator state stored with the most recent
snapshot and reports the boundary, file capacity, and free space.

Example:
  stablectl health region.dat
  stablectl health region.dat --unit KB --segments`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(args)
		},
	}
	return cmd
}

func runHealth(args []string) error {
	path := args[0]
	printVerbose("Opening store: %s\n", path)

	r, err := mmfile.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer r.Close()

	info, err := stable.Inspect(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	st := info.Allocator

	if jsonOut {
		var free uint64
		for _, s := range st.Segments {
			free += s.Len
		}
		out := map[string]any{
			"file":          path,
			"block_size":    st.BlockSize,
			"boundary":      st.Boundary,
			"capacity":      r.Capacity(),
			"free_segments": len(st.Segments),
			"free_bytes":    free,
		}
		if healthSegments {
			out["segments"] = st.Segments
		}
		return printJSON(out)
	}

	printInfo("%s\n", alloc.HealthOf(st, r.Capacity(), healthUnit))
	printVerbose("block size: %d, snapshot bytes: %d\n", st.BlockSize, info.Header.Length)
	if healthSegments {
		for _, s := range st.Segments {
			printInfo("  [%d, %d) %d\n", s.Off, s.End(), s.Len)
		}
	}
	return nil
}
