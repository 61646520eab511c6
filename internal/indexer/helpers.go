package indexer

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

var errBinary = errors.New("binary content")

// Language is the extractor family a source file is routed to.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageStylesheet Language = "stylesheet"
)

// SourceFile is one discovered input, read and decoded.
type SourceFile struct {
	Path     string // slash-separated, relative to the root
	Language Language
	Source   []byte // UTF-8; invalid sequences replaced with U+FFFD
	Hash     string // sha1 of the raw bytes
	Size     int64
	Lines    int
}

// Text returns the decoded source as a string.
func (s *SourceFile) Text() string {
	return string(s.Source)
}

// detectLanguage routes a path by extension.
func detectLanguage(path string, stylesheetExtensions []string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".py" {
		return LanguagePython, true
	}
	for _, s := range stylesheetExtensions {
		if ext == strings.ToLower(s) {
			return LanguageStylesheet, true
		}
	}
	return "", false
}

// calculateChecksum computes the SHA-1 hash of raw file bytes.
func calculateChecksum(data []byte) string {
	hash := sha1.Sum(data)
	return hex.EncodeToString(hash[:])
}

// countLines counts lines the way editors number them.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// isBinary reports whether the first 512 bytes contain a null byte. This is
// the same heuristic used by tools like 'file'.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// readSource reads one file relative to rootDir.
func readSource(rootDir, relPath string, stylesheetExtensions []string) (*SourceFile, error) {
	language, ok := detectLanguage(relPath, stylesheetExtensions)
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(relPath))
	}

	data, err := os.ReadFile(filepath.Join(rootDir, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if isBinary(data) {
		return nil, errBinary
	}

	return &SourceFile{
		Path:     relPath,
		Language: language,
		Source:   bytes.ToValidUTF8(data, []byte("�")),
		Hash:     calculateChecksum(data),
		Size:     int64(len(data)),
		Lines:    countLines(data),
	}, nil
}

// ReadSources reads every path. Files that cannot be read become failures
// with stage "read"; the rest are returned in input order.
func ReadSources(rootDir string, paths []string, stylesheetExtensions []string) ([]SourceFile, []extraction.FileFailure) {
	sources := make([]SourceFile, 0, len(paths))
	var failures []extraction.FileFailure

	for _, p := range paths {
		src, err := readSource(rootDir, p, stylesheetExtensions)
		if err != nil {
			failures = append(failures, extraction.FileFailure{
				File:   p,
				Stage:  StageRead,
				Reason: err.Error(),
			})
			continue
		}
		sources = append(sources, *src)
	}
	return sources, failures
}
