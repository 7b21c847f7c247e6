package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/sigdrift"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// outputResult writes result to stdout in the selected format.
func outputResult(result any) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return outputResultText(os.Stdout, result)
}

func outputResultText(w io.Writer, result any) error {
	switch v := result.(type) {
	case *sigdrift.ScanResult:
		formatScanText(w, v)
	case *sigdrift.DetectResult:
		formatDetectText(w, v)
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatScanText lists definitions as aligned columns, one row per name.
func formatScanText(w io.Writer, result *sigdrift.ScanResult) {
	names := make([]string, 0, len(result.Definitions))
	for name := range result.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIGNATURE\tFILE\tUSAGES")
	for _, name := range names {
		def := result.Definitions[name]
		fmt.Fprintf(tw, "%s\t(%s)\t%s\t%d\n",
			def.Name, def.Signature, def.File, len(result.Usages[name]))
	}
	tw.Flush()

	for _, f := range result.Failures {
		fmt.Fprintf(w, "failed: %s\n", f)
	}
}

// formatDetectText prints changes, renames, and suggestions as readable
// blocks.
func formatDetectText(w io.Writer, result *sigdrift.DetectResult) {
	for _, c := range result.ChangedFunctions {
		fmt.Fprintf(w, "changed: %s(%s) -> %s(%s)\n",
			c.Name, c.OldSignature, c.Name, c.NewSignature)
	}
	for _, r := range result.RenamedFunctions {
		fmt.Fprintf(w, "renamed: %s -> %s\n", r.OldName, r.NewName)
	}
	if len(result.UpdateSuggestions) == 0 {
		fmt.Fprintln(w, "no suggestions")
		return
	}
	for _, s := range result.UpdateSuggestions {
		fmt.Fprintf(w, "\n%s:%d [%s]\n", s.File, s.Line, s.ChangeType)
		fmt.Fprintf(w, "  - %s\n", s.OldCode)
		fmt.Fprintf(w, "  + %s\n", s.NewCode)
	}
}
