package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/shadow-ui/internal/indexer"
	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

// RunMeta describes the extraction run being persisted.
type RunMeta struct {
	RootDir    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunWriter persists extraction results to SQLite.
type RunWriter struct {
	db *sql.DB
}

// NewRunWriter creates a RunWriter instance.
// DB must have schema already created via CreateSchema().
func NewRunWriter(db *sql.DB) *RunWriter {
	return &RunWriter{db: db}
}

// WriteRun replaces every stored artifact with the given result in a single
// transaction and returns the new run id. Readers see either the previous
// run or this one, never a mix.
func (w *RunWriter) WriteRun(result *indexer.Result, meta RunMeta) (string, error) {
	runID := uuid.New().String()

	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Children first; files cascades to the rest but runs and failures do not.
	for _, table := range []string{"file_failures", "css_uncertainties", "css_tokens", "edge_cases", "roots", "edges", "nodes", "files", "runs"} {
		if _, err := sq.Delete(table).RunWith(tx).Exec(); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	steps := []struct {
		name string
		fn   func(*sql.Tx, *indexer.Result) error
	}{
		{"files", writeFiles},
		{"nodes", writeNodes},
		{"edges", writeEdges},
		{"roots", writeRoots},
		{"edge_cases", writeEdgeCases},
		{"css_tokens", writeTokens},
		{"css_uncertainties", writeUncertainties},
		{"file_failures", writeFailures},
	}
	for _, step := range steps {
		if err := step.fn(tx, result); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", step.name, err)
		}
	}

	stats := result.Stats
	_, err = sq.Insert("runs").
		Columns(
			"run_id", "root_dir", "started_at", "finished_at",
			"python_files", "stylesheet_files", "node_count", "edge_count", "root_count",
			"edge_case_count", "token_count", "uncertainty_count", "failure_count",
		).
		Values(
			runID, meta.RootDir,
			meta.StartedAt.UTC().Format(time.RFC3339),
			meta.FinishedAt.UTC().Format(time.RFC3339),
			stats.PythonFiles, stats.StylesheetFiles, stats.Nodes, stats.Edges, stats.Roots,
			stats.EdgeCases, stats.Tokens, stats.Uncertainties, stats.Failures,
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to write run: %w", err)
	}

	_, err = sq.Update("store_metadata").
		Set("value", runID).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339)).
		Where(sq.Eq{"key": "last_run_id"}).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to update store metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// prepareInsert builds the INSERT once with Squirrel and prepares it on tx.
func prepareInsert(tx *sql.Tx, table string, columns ...string) (*sql.Stmt, error) {
	placeholders := make([]interface{}, len(columns))
	sqlStr, _, err := sq.Insert(table).Columns(columns...).Values(placeholders...).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL: %w", err)
	}
	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return stmt, nil
}

func writeFiles(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "files", "file_path", "language", "file_hash", "size_bytes", "line_count")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range result.Sources {
		src := &result.Sources[i]
		if _, err := stmt.Exec(src.Path, string(src.Language), src.Hash, src.Size, src.Lines); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", src.Path, err)
		}
	}
	return nil
}

func writeNodes(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "nodes",
		"file_path", "node_id", "type", "identity_kind", "identity_value", "start_line", "end_line", "snippet")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, file := range result.Model.Files {
		for _, n := range file.Nodes {
			_, err := stmt.Exec(file.File, n.ID, n.Type, string(n.Identity.Kind), n.Identity.Value,
				n.Provenance.StartLine, n.Provenance.EndLine, n.Provenance.Snippet)
			if err != nil {
				return fmt.Errorf("failed to insert node %s:%s: %w", file.File, n.ID, err)
			}
		}
	}
	return nil
}

func writeEdges(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "edges", "file_path", "parent_id", "child_id", "order_index", "feature")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, file := range result.Model.Files {
		for _, e := range file.Edges {
			if _, err := stmt.Exec(file.File, e.Parent, e.Child, e.Order, string(e.Feature)); err != nil {
				return fmt.Errorf("failed to insert edge %s:%s->%s: %w", file.File, e.Parent, e.Child, err)
			}
		}
	}
	return nil
}

func writeRoots(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "roots",
		"file_path", "root_id", "node_id", "kind", "container", "structure_hash", "shape", "node_ids")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, file := range result.Model.Files {
		for _, r := range file.Roots {
			ids, err := json.Marshal(r.NodeIDs)
			if err != nil {
				return fmt.Errorf("failed to encode node ids: %w", err)
			}
			_, err = stmt.Exec(file.File, r.ID, r.NodeID, string(r.Kind), r.Container, r.StructureHash, r.Shape, string(ids))
			if err != nil {
				return fmt.Errorf("failed to insert root %s:%s: %w", file.File, r.ID, err)
			}
		}
	}
	return nil
}

func writeEdgeCases(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "edge_cases", "file_path", "bucket", "start_line", "end_line", "snippet", "detail")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, file := range result.Model.Files {
		for _, ec := range file.EdgeCases {
			p := ec.Provenance
			if _, err := stmt.Exec(file.File, ec.Bucket, p.StartLine, p.EndLine, p.Snippet, ec.Detail); err != nil {
				return fmt.Errorf("failed to insert edge case in %s: %w", file.File, err)
			}
		}
	}
	return nil
}

func writeTokens(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "css_tokens",
		"kind", "value", "file_path", "start_line", "end_line", "snippet", "selector_text")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, group := range []map[string][]extraction.SelectorToken{result.Selectors.IDs, result.Selectors.Classes} {
		for _, value := range sortedKeys(group) {
			for _, tok := range group[value] {
				loc := tok.Location
				_, err := stmt.Exec(string(tok.Kind), tok.Value, loc.File, loc.StartLine, loc.EndLine, loc.Snippet, tok.SelectorText)
				if err != nil {
					return fmt.Errorf("failed to insert token %s in %s: %w", tok.Value, loc.File, err)
				}
			}
		}
	}
	return nil
}

func sortedKeys(m map[string][]extraction.SelectorToken) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeUncertainties(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "css_uncertainties", "file_path", "bucket", "start_line", "end_line", "snippet", "detail")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range result.Selectors.Uncertainties {
		p := u.Provenance
		if _, err := stmt.Exec(p.File, u.Bucket, p.StartLine, p.EndLine, p.Snippet, u.Detail); err != nil {
			return fmt.Errorf("failed to insert uncertainty in %s: %w", p.File, err)
		}
	}
	return nil
}

func writeFailures(tx *sql.Tx, result *indexer.Result) error {
	stmt, err := prepareInsert(tx, "file_failures", "file_path", "stage", "reason")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range result.Model.Failures {
		if _, err := stmt.Exec(f.File, f.Stage, f.Reason); err != nil {
			return fmt.Errorf("failed to insert failure for %s: %w", f.File, err)
		}
	}
	return nil
}
