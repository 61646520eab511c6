package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/mvp-joe/shadow-ui/internal/config"
	"github.com/mvp-joe/shadow-ui/internal/query"
	"github.com/mvp-joe/shadow-ui/internal/storage"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// project is a resolved root directory with its configuration.
type project struct {
	RootDir string
	Config  *config.Config
	DBPath  string
}

// loadProject resolves --root and --db and loads the project configuration.
func loadProject() (*project, error) {
	rootDir, err := filepath.Abs(rootFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := cfg.ResolveDBPath(rootDir)
	if dbFlag != "" {
		if dbPath, err = filepath.Abs(dbFlag); err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}

	return &project{RootDir: rootDir, Config: cfg, DBPath: dbPath}, nil
}

// openQueryService opens the project's store read-only.
func openQueryService() (*query.Service, *sql.DB, error) {
	p, err := loadProject()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(p.DBPath, true)
	if err != nil {
		return nil, nil, err
	}
	return query.NewService(db), db, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// location renders file:start-end, or file:line for one-line spans.
func location(file string, start, end int) string {
	if end <= start {
		return fmt.Sprintf("%s:%d", file, start)
	}
	return fmt.Sprintf("%s:%d-%d", file, start, end)
}
