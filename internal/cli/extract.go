package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/indexer"
	"github.com/mvp-joe/shadow-ui/internal/storage"
)

var (
	workersFlag int
	jsonOutFlag string
	quietFlag   bool
	watchFlag   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract UI structure and selectors into the artifact store",
	Long: `Extract discovers Python sources and stylesheets under the project root,
extracts UI construction calls, containment trees, structure hashes and
stylesheet id/class references, and replaces the stored artifacts with the
result.

Examples:
  # Extract the current directory
  shadowui extract

  # Extract another project and also write JSON artifacts
  shadowui extract --root ../myapp --json-out build/shadowui

  # Re-extract whenever a source or stylesheet changes
  shadowui extract --watch
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().IntVar(&workersFlag, "workers", 0, "extraction workers (default one per CPU)")
	extractCmd.Flags().StringVar(&jsonOutFlag, "json-out", "", "also write layout_model.json and css_index.json to this directory")
	extractCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-extract")
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	p, err := loadProject()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		p.Config.Extract.Workers = workersFlag
	}
	if jsonOutFlag != "" {
		p.Config.Storage.JSONOut = jsonOutFlag
	}

	lock, err := storage.AcquireRunLock(p.DBPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	db, err := storage.Open(p.DBPath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	writer := storage.NewRunWriter(db)
	out := cmd.OutOrStdout()

	if _, err := executeExtract(ctx, p, writer, quietFlag, out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return err
	}

	if !watchFlag {
		return nil
	}

	discovery, err := indexer.NewFileDiscovery(p.RootDir, p.Config.Paths.Include, p.Config.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("invalid path pattern: %w", err)
	}
	watcher, err := indexer.NewWatcher(p.RootDir, discovery, func(ctx context.Context, changed []string) {
		log.Printf("Re-extracting due to changes in %d file(s)...", len(changed))
		if _, err := executeExtract(ctx, p, writer, true, out); err != nil && ctx.Err() == nil {
			log.Printf("Error during re-extraction: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !quietFlag {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}
	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()

	if !quietFlag {
		log.Println("Watch mode stopped")
	}
	return nil
}

// executeExtract runs one full extraction and persists it. The previous run
// stays in place when extraction or writing fails.
func executeExtract(ctx context.Context, p *project, writer *storage.RunWriter, quiet bool, out io.Writer) (*indexer.Result, error) {
	started := time.Now()

	result, err := indexer.Run(ctx, p.RootDir, p.Config, NewCLIProgressReporter(quiet))
	if err != nil {
		return nil, err
	}

	runID, err := writer.WriteRun(result, storage.RunMeta{
		RootDir:    p.RootDir,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	if dir := p.Config.Storage.JSONOut; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(p.RootDir, dir)
		}
		if err := storage.ExportJSON(dir, result.Model, result.Selectors); err != nil {
			return nil, fmt.Errorf("failed to export JSON: %w", err)
		}
	}

	if !quiet {
		printRunSummary(out, runID, &result.Stats)
	}
	return result, nil
}

func printRunSummary(out io.Writer, runID string, stats *indexer.Stats) {
	labelColor.Fprintf(out, "✓ Extraction complete in %.1fs\n", stats.Duration.Seconds())
	fmt.Fprintf(out, "  Run:            %s\n", runID)
	fmt.Fprintf(out, "  Files:          %s Python, %s stylesheets\n", formatNumber(stats.PythonFiles), formatNumber(stats.StylesheetFiles))
	fmt.Fprintf(out, "  Nodes:          %s\n", formatNumber(stats.Nodes))
	fmt.Fprintf(out, "  Edges:          %s\n", formatNumber(stats.Edges))
	fmt.Fprintf(out, "  Roots:          %s\n", formatNumber(stats.Roots))
	fmt.Fprintf(out, "  Selector refs:  %s\n", formatNumber(stats.Tokens))

	if stats.EdgeCases > 0 {
		warnColor.Fprintf(out, "  Edge cases:     %s\n", formatNumber(stats.EdgeCases))
	}
	if stats.Uncertainties > 0 {
		warnColor.Fprintf(out, "  CSS issues:     %s\n", formatNumber(stats.Uncertainties))
	}
	if stats.Failures > 0 {
		warnColor.Fprintf(out, "  Failed files:   %s\n", formatNumber(stats.Failures))
	}
}
