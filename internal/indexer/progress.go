package indexer

// ProgressReporter provides callbacks for reporting extraction progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(pythonFiles, stylesheetFiles int)

	// OnExtractionStart is called before per-file extraction.
	OnExtractionStart(totalFiles int)

	// OnFileExtracted is called after each file is extracted. It may be
	// called concurrently from worker goroutines.
	OnFileExtracted(fileName string)

	// OnComplete is called when extraction and aggregation succeed.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                                    {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(pythonFiles, stylesheetFiles int) {}
func (n *NoOpProgressReporter) OnExtractionStart(totalFiles int)                     {}
func (n *NoOpProgressReporter) OnFileExtracted(fileName string)                      {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)                              {}
