// Package query answers questions about a stored extraction run. It only
// reads persisted artifacts and never re-parses sources.
package query

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

// ErrNotFound is returned when a requested file, root or hash is not stored.
var ErrNotFound = errors.New("not found")

// featureOrder sorts edges by feature precedence, then sibling order.
const featureOrder = "CASE feature WHEN 'nesting' THEN 0 WHEN 'scoped-block' THEN 1 ELSE 2 END"

// Run describes a persisted extraction run.
type Run struct {
	ID              string    `json:"run_id"`
	RootDir         string    `json:"root_dir"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	PythonFiles     int       `json:"python_files"`
	StylesheetFiles int       `json:"stylesheet_files"`
	Nodes           int       `json:"nodes"`
	Edges           int       `json:"edges"`
	Roots           int       `json:"roots"`
	EdgeCases       int       `json:"edge_cases"`
	Tokens          int       `json:"tokens"`
	Uncertainties   int       `json:"uncertainties"`
	Failures        int       `json:"failures"`
}

// FileRow summarizes one stored file.
type FileRow struct {
	Path          string `json:"file"`
	Language      string `json:"language"`
	Nodes         int    `json:"nodes"`
	EdgeCases     int    `json:"edge_cases"`
	Tokens        int    `json:"tokens"`
	Uncertainties int    `json:"uncertainties"`
}

// Count pairs a name with an occurrence count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RootRow is a stored root with its file.
type RootRow struct {
	File string `json:"file"`
	extraction.Root
}

// EdgeRow is a stored edge with its file.
type EdgeRow struct {
	File string `json:"file"`
	extraction.Edge
}

// HashGroup collects roots with the same structure hash.
type HashGroup struct {
	Hash  string    `json:"structure_hash"`
	Shape string    `json:"shape"`
	Roots []RootRow `json:"roots"`
}

// FileDetail is everything stored for one file.
type FileDetail struct {
	File          string                      `json:"file"`
	Language      string                      `json:"language"`
	Nodes         []extraction.Node           `json:"nodes"`
	Edges         []EdgeRow                   `json:"edges"`
	Roots         []RootRow                   `json:"roots"`
	EdgeCases     []extraction.EdgeCase       `json:"edge_cases"`
	Tokens        []extraction.SelectorToken  `json:"tokens"`
	Uncertainties []extraction.CSSUncertainty `json:"uncertainties"`
	Failures      []extraction.FileFailure    `json:"failures"`
}

// NodeFilter narrows Nodes. Zero fields match everything.
type NodeFilter struct {
	File          string
	Type          string
	IdentityKind  extraction.IdentityKind
	IdentityValue string
	// Contains matches identity values holding the substring, ignoring case.
	Contains string
	Limit    uint64
}

// Service answers queries over one artifact database.
type Service struct {
	db *sql.DB
}

// NewService creates a query service over db.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// LatestRun returns the most recent run, or ErrNotFound before the first run.
func (s *Service) LatestRun() (*Run, error) {
	row := sq.Select(
		"run_id", "root_dir", "started_at", "finished_at",
		"python_files", "stylesheet_files", "node_count", "edge_count", "root_count",
		"edge_case_count", "token_count", "uncertainty_count", "failure_count",
	).
		From("runs").
		OrderBy("finished_at DESC").
		Limit(1).
		RunWith(s.db).
		QueryRow()

	var r Run
	var started, finished string
	err := row.Scan(&r.ID, &r.RootDir, &started, &finished,
		&r.PythonFiles, &r.StylesheetFiles, &r.Nodes, &r.Edges, &r.Roots,
		&r.EdgeCases, &r.Tokens, &r.Uncertainties, &r.Failures)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no extraction run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	return &r, nil
}

// Files lists stored files with per-file record counts.
func (s *Service) Files() ([]FileRow, error) {
	rows, err := sq.Select(
		"f.file_path",
		"f.language",
		"(SELECT COUNT(*) FROM nodes n WHERE n.file_path = f.file_path)",
		"(SELECT COUNT(*) FROM edge_cases e WHERE e.file_path = f.file_path)",
		"(SELECT COUNT(*) FROM css_tokens t WHERE t.file_path = f.file_path)",
		"(SELECT COUNT(*) FROM css_uncertainties u WHERE u.file_path = f.file_path)",
	).
		From("files f").
		OrderBy("f.file_path").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	result := []FileRow{}
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.Path, &f.Language, &f.Nodes, &f.EdgeCases, &f.Tokens, &f.Uncertainties); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// Nodes returns nodes matching filter, ordered by file and source position.
func (s *Service) Nodes(filter NodeFilter) ([]extraction.Node, error) {
	query := filter.apply(nodeSelect())
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return s.queryNodes(query)
}

// IDCounts counts occurrences per literal id among nodes matching filter,
// most frequent first. IdentityKind and Limit are ignored.
func (s *Service) IDCounts(filter NodeFilter) ([]Count, error) {
	filter.IdentityKind = extraction.IdentityLiteral
	return s.counts(filter.apply(sq.Select("identity_value", "COUNT(*) AS c").From("nodes")).
		GroupBy("identity_value").
		OrderBy("c DESC", "identity_value"))
}

// Types counts nodes per constructor type, most frequent first.
func (s *Service) Types() ([]Count, error) {
	return s.TypesIn("")
}

// TypesIn counts nodes per constructor type within one file, or across all
// files when file is empty.
func (s *Service) TypesIn(file string) ([]Count, error) {
	return s.counts(NodeFilter{File: file}.apply(sq.Select("type", "COUNT(*) AS c").From("nodes")).
		GroupBy("type").
		OrderBy("c DESC", "type"))
}

func (f NodeFilter) apply(query sq.SelectBuilder) sq.SelectBuilder {
	if f.File != "" {
		query = query.Where(sq.Eq{"file_path": f.File})
	}
	if f.Type != "" {
		query = query.Where(sq.Eq{"type": f.Type})
	}
	if f.IdentityKind != "" {
		query = query.Where(sq.Eq{"identity_kind": string(f.IdentityKind)})
	}
	if f.IdentityValue != "" {
		query = query.Where(sq.Eq{"identity_value": f.IdentityValue})
	}
	if f.Contains != "" {
		query = query.Where("instr(lower(identity_value), ?) > 0", strings.ToLower(f.Contains))
	}
	return query
}

// EdgeCases returns edge-case records, optionally restricted to one bucket
// and one file.
func (s *Service) EdgeCases(bucket, file string, limit uint64) ([]extraction.EdgeCase, error) {
	query := sq.Select("file_path", "bucket", "start_line", "end_line", "snippet", "detail").
		From("edge_cases").
		OrderBy("file_path", "start_line", "edge_case_id")
	if bucket != "" {
		query = query.Where(sq.Eq{"bucket": bucket})
	}
	if file != "" {
		query = query.Where(sq.Eq{"file_path": file})
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query edge cases: %w", err)
	}
	defer rows.Close()

	result := []extraction.EdgeCase{}
	for rows.Next() {
		var ec extraction.EdgeCase
		p := &ec.Provenance
		if err := rows.Scan(&p.File, &ec.Bucket, &p.StartLine, &p.EndLine, &p.Snippet, &ec.Detail); err != nil {
			return nil, fmt.Errorf("scan edge case: %w", err)
		}
		result = append(result, ec)
	}
	return result, rows.Err()
}

// EdgeCaseCounts counts edge-case records per bucket, most frequent first.
func (s *Service) EdgeCaseCounts() ([]Count, error) {
	return s.counts(sq.Select("bucket", "COUNT(*) AS c").
		From("edge_cases").
		GroupBy("bucket").
		OrderBy("c DESC", "bucket"))
}

// FileSummary returns every record stored for file.
func (s *Service) FileSummary(file string) (*FileDetail, error) {
	detail := &FileDetail{File: file}
	err := sq.Select("language").
		From("files").
		Where(sq.Eq{"file_path": file}).
		RunWith(s.db).
		QueryRow().
		Scan(&detail.Language)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file %s: %w", file, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}

	if detail.Nodes, err = s.Nodes(NodeFilter{File: file}); err != nil {
		return nil, err
	}
	if detail.Edges, err = s.edges(file); err != nil {
		return nil, err
	}
	if detail.Roots, err = s.roots(sq.Eq{"file_path": file}); err != nil {
		return nil, err
	}
	if detail.EdgeCases, err = s.EdgeCases("", file, 0); err != nil {
		return nil, err
	}
	if detail.Tokens, err = s.tokens(sq.Eq{"file_path": file}); err != nil {
		return nil, err
	}
	if detail.Uncertainties, err = s.uncertainties(sq.Eq{"file_path": file}); err != nil {
		return nil, err
	}
	if detail.Failures, err = s.failures(sq.Eq{"file_path": file}); err != nil {
		return nil, err
	}
	return detail, nil
}

// Hashes groups roots by structure hash, largest groups first.
func (s *Service) Hashes() ([]HashGroup, error) {
	roots, err := s.roots(nil)
	if err != nil {
		return nil, err
	}

	var groups []HashGroup
	index := make(map[string]int)
	for _, r := range roots {
		i, ok := index[r.StructureHash]
		if !ok {
			i = len(groups)
			index[r.StructureHash] = i
			groups = append(groups, HashGroup{Hash: r.StructureHash, Shape: r.Shape})
		}
		groups[i].Roots = append(groups[i].Roots, r)
	}

	sortHashGroups(groups)
	return groups, nil
}

// FindHash returns the roots sharing a structure hash.
func (s *Service) FindHash(hash string) (*HashGroup, error) {
	roots, err := s.roots(sq.Eq{"structure_hash": hash})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("hash %s: %w", hash, ErrNotFound)
	}
	return &HashGroup{Hash: hash, Shape: roots[0].Shape, Roots: roots}, nil
}

// SelectorTokens returns the rules referencing an id or class name.
func (s *Service) SelectorTokens(kind extraction.SelectorKind, value string) ([]extraction.SelectorToken, error) {
	return s.tokens(sq.Eq{"kind": string(kind), "value": value})
}

// SelectorValues counts rules per id or class name.
func (s *Service) SelectorValues(kind extraction.SelectorKind) ([]Count, error) {
	return s.counts(sq.Select("value", "COUNT(*) AS c").
		From("css_tokens").
		Where(sq.Eq{"kind": string(kind)}).
		GroupBy("value").
		OrderBy("value"))
}

// CSSUncertainties returns stylesheet regions that could not be indexed,
// optionally restricted to one bucket.
func (s *Service) CSSUncertainties(bucket string) ([]extraction.CSSUncertainty, error) {
	var where sq.Sqlizer
	if bucket != "" {
		where = sq.Eq{"bucket": bucket}
	}
	return s.uncertainties(where)
}

// Failures returns files whose results were discarded.
func (s *Service) Failures() ([]extraction.FileFailure, error) {
	return s.failures(nil)
}

func nodeSelect() sq.SelectBuilder {
	return sq.Select("file_path", "node_id", "type", "identity_kind", "identity_value", "start_line", "end_line", "snippet").
		From("nodes").
		OrderBy("file_path", "node_id")
}

func (s *Service) queryNodes(query sq.SelectBuilder) ([]extraction.Node, error) {
	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	result := []extraction.Node{}
	for rows.Next() {
		var n extraction.Node
		var kind string
		p := &n.Provenance
		if err := rows.Scan(&p.File, &n.ID, &n.Type, &kind, &n.Identity.Value, &p.StartLine, &p.EndLine, &p.Snippet); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Identity.Kind = extraction.IdentityKind(kind)
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Service) edges(file string) ([]EdgeRow, error) {
	rows, err := sq.Select("file_path", "parent_id", "child_id", "order_index", "feature").
		From("edges").
		Where(sq.Eq{"file_path": file}).
		OrderBy("parent_id", featureOrder, "order_index").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	result := []EdgeRow{}
	for rows.Next() {
		var e EdgeRow
		var feature string
		if err := rows.Scan(&e.File, &e.Parent, &e.Child, &e.Order, &feature); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Feature = extraction.EdgeFeature(feature)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Service) roots(where sq.Sqlizer) ([]RootRow, error) {
	query := sq.Select("file_path", "root_id", "node_id", "kind", "container", "structure_hash", "shape", "node_ids").
		From("roots").
		OrderBy("file_path", "root_id")
	if where != nil {
		query = query.Where(where)
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	result := []RootRow{}
	for rows.Next() {
		var r RootRow
		var kind, ids string
		if err := rows.Scan(&r.File, &r.ID, &r.NodeID, &kind, &r.Container, &r.StructureHash, &r.Shape, &ids); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		r.Kind = extraction.RootKind(kind)
		if err := json.Unmarshal([]byte(ids), &r.NodeIDs); err != nil {
			return nil, fmt.Errorf("decode node ids of %s:%s: %w", r.File, r.ID, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Service) tokens(where sq.Sqlizer) ([]extraction.SelectorToken, error) {
	rows, err := sq.Select("kind", "value", "file_path", "start_line", "end_line", "snippet", "selector_text").
		From("css_tokens").
		Where(where).
		OrderBy("file_path", "start_line", "selector_text", "token_id").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	result := []extraction.SelectorToken{}
	for rows.Next() {
		var tok extraction.SelectorToken
		var kind string
		loc := &tok.Location
		if err := rows.Scan(&kind, &tok.Value, &loc.File, &loc.StartLine, &loc.EndLine, &loc.Snippet, &tok.SelectorText); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tok.Kind = extraction.SelectorKind(kind)
		result = append(result, tok)
	}
	return result, rows.Err()
}

func (s *Service) uncertainties(where sq.Sqlizer) ([]extraction.CSSUncertainty, error) {
	query := sq.Select("file_path", "bucket", "start_line", "end_line", "snippet", "detail").
		From("css_uncertainties").
		OrderBy("file_path", "start_line", "uncertainty_id")
	if where != nil {
		query = query.Where(where)
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query css uncertainties: %w", err)
	}
	defer rows.Close()

	result := []extraction.CSSUncertainty{}
	for rows.Next() {
		var u extraction.CSSUncertainty
		p := &u.Provenance
		if err := rows.Scan(&p.File, &u.Bucket, &p.StartLine, &p.EndLine, &p.Snippet, &u.Detail); err != nil {
			return nil, fmt.Errorf("scan css uncertainty: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Service) failures(where sq.Sqlizer) ([]extraction.FileFailure, error) {
	query := sq.Select("file_path", "stage", "reason").
		From("file_failures").
		OrderBy("file_path", "stage")
	if where != nil {
		query = query.Where(where)
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	result := []extraction.FileFailure{}
	for rows.Next() {
		var f extraction.FileFailure
		if err := rows.Scan(&f.File, &f.Stage, &f.Reason); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Service) counts(query sq.SelectBuilder) ([]Count, error) {
	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	result := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
