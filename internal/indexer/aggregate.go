package indexer

import (
	"sort"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

// Failure stages.
const (
	StageRead       = "read"
	StageLayout     = "layout"
	StageStylesheet = "stylesheet"
)

// RootRef identifies a root across files.
type RootRef struct {
	File      string `json:"file"`
	RootID    string `json:"root_id"`
	NodeID    string `json:"node_id"`
	Container string `json:"container"`
	StartLine int    `json:"start_line"`
}

// StructuralModel is the merged layout of every extracted file. Node, edge
// and root ids are unique within their file, so records are keyed by file
// plus id.
type StructuralModel struct {
	Files        []extraction.FileLayout  `json:"files"`
	Failures     []extraction.FileFailure `json:"failures"`
	BucketCounts map[string]int           `json:"bucket_counts"`
	HashGroups   map[string][]RootRef     `json:"hash_groups"`
}

// SelectorIndex maps id and class names to the rules that reference them.
type SelectorIndex struct {
	IDs           map[string][]extraction.SelectorToken `json:"ids"`
	Classes       map[string][]extraction.SelectorToken `json:"classes"`
	Uncertainties []extraction.CSSUncertainty           `json:"uncertainties"`
	BucketCounts  map[string]int                        `json:"bucket_counts"`
}

// NodeCount returns the number of nodes across all files.
func (m *StructuralModel) NodeCount() int {
	n := 0
	for i := range m.Files {
		n += len(m.Files[i].Nodes)
	}
	return n
}

// EdgeCount returns the number of edges across all files.
func (m *StructuralModel) EdgeCount() int {
	n := 0
	for i := range m.Files {
		n += len(m.Files[i].Edges)
	}
	return n
}

// RootCount returns the number of roots across all files.
func (m *StructuralModel) RootCount() int {
	n := 0
	for i := range m.Files {
		n += len(m.Files[i].Roots)
	}
	return n
}

// EdgeCaseCount returns the number of edge-case records across all files.
func (m *StructuralModel) EdgeCaseCount() int {
	n := 0
	for _, c := range m.BucketCounts {
		n += c
	}
	return n
}

// TokenCount returns the number of id and class tokens.
func (s *SelectorIndex) TokenCount() int {
	n := 0
	for _, tokens := range s.IDs {
		n += len(tokens)
	}
	for _, tokens := range s.Classes {
		n += len(tokens)
	}
	return n
}

// Aggregate merges per-file results. The output does not depend on the order
// of the inputs. Nil entries are skipped.
func Aggregate(layouts []*extraction.FileLayout, selectors []*extraction.FileSelectors, failures []extraction.FileFailure) (*StructuralModel, *SelectorIndex) {
	model := &StructuralModel{
		Files:        []extraction.FileLayout{},
		Failures:     []extraction.FileFailure{},
		BucketCounts: make(map[string]int),
		HashGroups:   make(map[string][]RootRef),
	}

	for _, l := range layouts {
		if l != nil {
			model.Files = append(model.Files, *l)
		}
	}
	sort.Slice(model.Files, func(i, j int) bool {
		return model.Files[i].File < model.Files[j].File
	})

	for i := range model.Files {
		file := &model.Files[i]
		for _, ec := range file.EdgeCases {
			model.BucketCounts[ec.Bucket]++
		}

		lines := make(map[string]int, len(file.Nodes))
		for _, n := range file.Nodes {
			lines[n.ID] = n.Provenance.StartLine
		}
		for _, r := range file.Roots {
			model.HashGroups[r.StructureHash] = append(model.HashGroups[r.StructureHash], RootRef{
				File:      file.File,
				RootID:    r.ID,
				NodeID:    r.NodeID,
				Container: r.Container,
				StartLine: lines[r.NodeID],
			})
		}
	}

	model.Failures = append(model.Failures, failures...)
	sort.Slice(model.Failures, func(i, j int) bool {
		a, b := model.Failures[i], model.Failures[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Reason < b.Reason
	})

	return model, aggregateSelectors(selectors)
}

func aggregateSelectors(selectors []*extraction.FileSelectors) *SelectorIndex {
	index := &SelectorIndex{
		IDs:           make(map[string][]extraction.SelectorToken),
		Classes:       make(map[string][]extraction.SelectorToken),
		Uncertainties: []extraction.CSSUncertainty{},
		BucketCounts:  make(map[string]int),
	}

	// Files are merged in path order so stable sorts below break ties by
	// each file's own record order.
	ordered := make([]*extraction.FileSelectors, 0, len(selectors))
	for _, fs := range selectors {
		if fs != nil {
			ordered = append(ordered, fs)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].File < ordered[j].File
	})

	for _, fs := range ordered {
		for _, tok := range fs.Tokens {
			switch tok.Kind {
			case extraction.SelectorID:
				index.IDs[tok.Value] = append(index.IDs[tok.Value], tok)
			case extraction.SelectorClass:
				index.Classes[tok.Value] = append(index.Classes[tok.Value], tok)
			}
		}
		for _, u := range fs.Uncertainties {
			index.Uncertainties = append(index.Uncertainties, u)
			index.BucketCounts[u.Bucket]++
		}
	}

	for _, group := range index.IDs {
		sortTokens(group)
	}
	for _, group := range index.Classes {
		sortTokens(group)
	}
	sort.SliceStable(index.Uncertainties, func(i, j int) bool {
		a, b := index.Uncertainties[i], index.Uncertainties[j]
		if a.Provenance.File != b.Provenance.File {
			return a.Provenance.File < b.Provenance.File
		}
		if a.Provenance.StartLine != b.Provenance.StartLine {
			return a.Provenance.StartLine < b.Provenance.StartLine
		}
		if a.Bucket != b.Bucket {
			return a.Bucket < b.Bucket
		}
		if a.Provenance.EndLine != b.Provenance.EndLine {
			return a.Provenance.EndLine < b.Provenance.EndLine
		}
		if a.Provenance.Snippet != b.Provenance.Snippet {
			return a.Provenance.Snippet < b.Provenance.Snippet
		}
		return a.Detail < b.Detail
	})
	return index
}

// sortTokens orders a group by file, start line and selector text.
func sortTokens(tokens []extraction.SelectorToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i].Location, tokens[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if tokens[i].SelectorText != tokens[j].SelectorText {
			return tokens[i].SelectorText < tokens[j].SelectorText
		}
		return a.EndLine < b.EndLine
	})
}
