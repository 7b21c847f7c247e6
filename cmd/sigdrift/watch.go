package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// skipDirNames are directories never watched, mirroring the scanner's
// exclusions.
var skipDirNames = map[string]bool{
	".git":         true,
	".sigdrift":    true,
	"venv":         true,
	".venv":        true,
	"node_modules": true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".tox":         true,
}

var watchedExts = map[string]bool{".py": true, ".js": true, ".ts": true}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and run detection on every file save",
	Long:  "Performs an initial scan, then watches the tree for writes to source files. Each save runs change detection against the index and prints any update suggestions.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(targetDir)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()

	result, err := engine.Scan(ctx, targetDir, nil)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Watching %s (%d files indexed)\n", targetDir, result.Files)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, targetDir); err != nil {
		return err
	}

	// Editors fire several events per save; collapse bursts per path.
	lastSeen := map[string]time.Time{}
	const debounce = 200 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %s\n", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !skipDirNames[filepath.Base(event.Name)] {
						_ = watchTree(watcher, event.Name)
					}
					continue
				}
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !watchedExts[filepath.Ext(event.Name)] {
				continue
			}
			if at, ok := lastSeen[event.Name]; ok && time.Since(at) < debounce {
				continue
			}
			lastSeen[event.Name] = time.Now()

			if err := detectAndReport(cmd, event.Name); err != nil {
				fmt.Fprintf(os.Stderr, "Detect %s: %s\n", event.Name, err)
			}
		}
	}
}

// watchTree registers root and every non-excluded subdirectory.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirNames[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func detectAndReport(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// A fresh engine per event keeps the database handle short-lived and
	// picks up index writes from concurrent invocations.
	engine, err := newEngine(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.DetectChanges(cmd.Context(), path, string(data))
	if err != nil {
		return err
	}
	if len(result.UpdateSuggestions) == 0 {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: %d suggestions\n", path, len(result.UpdateSuggestions))
	return outputResult(result)
}
