package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/shadow-ui/internal/indexer"
)

// Export file names.
const (
	LayoutModelFile = "layout_model.json"
	CSSIndexFile    = "css_index.json"
)

// AtomicWriter handles atomic file writing using temp → rename pattern.
type AtomicWriter struct {
	outputDir string
	tempDir   string
}

// NewAtomicWriter creates a new atomic writer.
func NewAtomicWriter(outputDir string) (*AtomicWriter, error) {
	tempDir := filepath.Join(outputDir, ".tmp")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Clean up stale temp files
	if err := os.RemoveAll(tempDir); err != nil {
		return nil, fmt.Errorf("failed to clean temp directory: %w", err)
	}

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &AtomicWriter{
		outputDir: outputDir,
		tempDir:   tempDir,
	}, nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func (w *AtomicWriter) WriteJSON(filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	tempPath := filepath.Join(w.tempDir, filename)
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Rename to final location (atomic operation)
	finalPath := filepath.Join(w.outputDir, filename)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Close removes the temp directory.
func (w *AtomicWriter) Close() error {
	return os.RemoveAll(w.tempDir)
}

// ExportJSON writes the structural model and selector index as JSON files
// in dir.
func ExportJSON(dir string, model *indexer.StructuralModel, index *indexer.SelectorIndex) error {
	w, err := NewAtomicWriter(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteJSON(LayoutModelFile, model); err != nil {
		return err
	}
	return w.WriteJSON(CSSIndexFile, index)
}
