package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/shadow-ui/internal/indexer"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet   bool
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(pythonFiles, stylesheetFiles int) {
	if c.quiet {
		return
	}
	log.Printf("Extracting from %d Python files and %d stylesheets\n", pythonFiles, stylesheetFiles)
}

func (c *CLIProgressReporter) OnExtractionStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// OnFileExtracted is called from worker goroutines; the bar serializes Add.
func (c *CLIProgressReporter) OnFileExtracted(fileName string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
}
