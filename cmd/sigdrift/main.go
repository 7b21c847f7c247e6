package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jward/sigdrift"
)

var (
	flagDB                string
	flagFormat            string
	flagVerbose           bool
	flagNoOracle          bool
	flagOracleTimeout     time.Duration
	flagOracleConcurrency int
	flagExtractors        []string
)

func main() {
	// A .env in the working directory supplies oracle settings; absence
	// is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sigdrift",
	Short:         "Track function signatures and propose call-site updates",
	Long:          "Sigdrift indexes function definitions and call sites across a source tree, detects signature changes and renames, and proposes per-call-site edits.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .sigdrift/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoOracle, "no-oracle", false, "skip the rewrite oracle; suggestions keep the original line")
	rootCmd.PersistentFlags().DurationVar(&flagOracleTimeout, "oracle-timeout", 30*time.Second, "per-call oracle timeout")
	rootCmd.PersistentFlags().IntVar(&flagOracleConcurrency, "oracle-concurrency", 4, "max in-flight oracle calls")
	rootCmd.PersistentFlags().StringArrayVar(&flagExtractors, "extractor", nil, "register a Risor script extractor as ext=script.risor (repeatable)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newEngine opens the engine for targetDir, resolving the database path
// and wiring the oracle from the environment unless --no-oracle is set.
func newEngine(targetDir string) (*sigdrift.Engine, error) {
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []sigdrift.Option{
		sigdrift.WithLogger(log),
		sigdrift.WithOracleTimeout(flagOracleTimeout),
		sigdrift.WithOracleConcurrency(flagOracleConcurrency),
	}
	if !flagNoOracle {
		opts = append(opts, sigdrift.WithOracle(sigdrift.NewOracleClient(
			envOr("SIGDRIFT_ORACLE_URL", "http://localhost:11434/v1"),
			envOr("SIGDRIFT_ORACLE_KEY", "ollama"),
			envOr("SIGDRIFT_ORACLE_MODEL", "deepseek-coder:6.7b"),
		)))
	}

	scriptOpts, err := scriptExtractorOptions(flagExtractors)
	if err != nil {
		return nil, err
	}
	opts = append(opts, scriptOpts...)

	return sigdrift.New(dbPath, opts...)
}

// scriptExtractorOptions parses "ext=script.risor" specs into engine
// options, reading each script from disk.
func scriptExtractorOptions(specs []string) ([]sigdrift.Option, error) {
	var opts []sigdrift.Option
	for _, spec := range specs {
		ext, path, ok := strings.Cut(spec, "=")
		if !ok || ext == "" || path == "" {
			return nil, fmt.Errorf("invalid --extractor %q: want ext=script.risor", spec)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading extractor script %s: %w", path, err)
		}
		opts = append(opts, sigdrift.WithScriptExtractor(ext, string(source)))
	}
	return opts, nil
}

// resolveTargetDir returns the absolute path of the directory to operate on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".sigdrift", "index.db")
}

var (
	flagPatterns string
	flagForce    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Rebuild the index from every matching file under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagPatterns, "patterns", "", "comma-separated include globs (default **/*.py,**/*.js,**/*.ts)")
	scanCmd.Flags().BoolVar(&flagForce, "force", false, "clear the persisted index before scanning")
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(targetDir)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if flagForce {
		if err := engine.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Cleared index")
	}

	var patterns []string
	if flagPatterns != "" {
		for _, p := range strings.Split(flagPatterns, ",") {
			patterns = append(patterns, strings.TrimSpace(p))
		}
	}

	result, err := engine.Scan(cmd.Context(), targetDir, patterns)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Scanned %d files in %s (%d definitions, %d failures)\n",
		result.Files, time.Since(start).Round(time.Millisecond),
		len(result.Definitions), len(result.Failures),
	)
	return outputResult(result)
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show when the index was last rebuilt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir, err := resolveTargetDir(args)
		if err != nil {
			return err
		}
		engine, err := newEngine(targetDir)
		if err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}
		defer engine.Close()

		root, at, ok, err := engine.LastScan()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No scan recorded. Run: sigdrift scan")
			return nil
		}
		snap := engine.Snapshot()
		fmt.Printf("Last scan: %s (%s)\n", root, at.Format(time.RFC3339))
		fmt.Printf("Definitions: %d\n", len(snap.Definitions))
		return nil
	},
}
