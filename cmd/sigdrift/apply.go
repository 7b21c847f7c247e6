package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/sigdrift"
)

var flagDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply [suggestions.json]",
	Short: "Apply update suggestions to the files they target",
	Long:  "Reads a JSON array of suggestions (the update_suggestions field of detect output) from a file or stdin and rewrites each target file in place. A suggestion whose old code is no longer present is reported and skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print what would change without writing files")
}

func runApply(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	suggestions, err := decodeSuggestions(r)
	if err != nil {
		return err
	}

	applied, skipped := 0, 0
	for _, s := range suggestions {
		if flagDryRun {
			fmt.Printf("%s:%d: %s -> %s\n", s.File, s.Line, s.OldCode, s.NewCode)
			continue
		}
		if err := sigdrift.ApplySuggestion(s); err != nil {
			fmt.Fprintf(os.Stderr, "Skipped: %s\n", err)
			skipped++
			continue
		}
		applied++
	}
	if !flagDryRun {
		fmt.Fprintf(os.Stderr, "Applied %d suggestions, skipped %d\n", applied, skipped)
	}
	return nil
}

// decodeSuggestions accepts either a bare suggestion array or a full
// detect result object.
func decodeSuggestions(r io.Reader) ([]sigdrift.Suggestion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading suggestions: %w", err)
	}

	var suggestions []sigdrift.Suggestion
	if err := json.Unmarshal(data, &suggestions); err == nil {
		return suggestions, nil
	}
	var result struct {
		UpdateSuggestions []sigdrift.Suggestion `json:"update_suggestions"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing suggestions: %w", err)
	}
	return result.UpdateSuggestions, nil
}
