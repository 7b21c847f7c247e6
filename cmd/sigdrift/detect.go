package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Compare a file against the index and propose call-site updates",
	Long:  "Reads the file's current content, detects signature changes and renames relative to the indexed state, and emits update suggestions for call sites elsewhere in the tree. The index must be built first with scan.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	start := time.Now()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving path %q: %w", args[0], err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	engine, err := newEngine(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if _, _, ok, err := engine.LastScan(); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("no index found; run: sigdrift scan")
	}

	result, err := engine.DetectChanges(cmd.Context(), path, string(data))
	if err != nil {
		return fmt.Errorf("detecting: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Detected %d changed, %d renamed, %d suggestions in %s\n",
		len(result.ChangedFunctions), len(result.RenamedFunctions),
		len(result.UpdateSuggestions), time.Since(start).Round(time.Millisecond),
	)
	return outputResult(result)
}
