package stylesheet

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ScanStylesheet indexes the selectors of a standalone stylesheet file.
func ScanStylesheet(file, text string) *extraction.FileSelectors {
	result := &extraction.FileSelectors{File: file}
	starts := lineStarts(text)
	scanInto(result, text, func(offset int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	})
	return result
}

// scanInto scans text and appends tokens and parse errors to result.
// lineOf maps a byte offset in text to a line of the host file.
func scanInto(result *extraction.FileSelectors, text string, lineOf func(offset int) int) {
	rules, scanErrors := Scan(text)

	for _, rule := range rules {
		selector := cleanSelector(rule.RawSelector)
		tokens := selectorTokens(selector)
		if len(tokens) == 0 {
			continue
		}
		location := extraction.Provenance{
			File:      result.File,
			StartLine: lineOf(rule.SelectorStart),
			EndLine:   lineOf(rule.BlockEnd),
			Snippet:   parsers.ClipSnippet(selector),
		}
		for _, t := range tokens {
			result.Tokens = append(result.Tokens, extraction.SelectorToken{
				Kind:         t.kind,
				Value:        t.value,
				Location:     location,
				SelectorText: selector,
			})
		}
	}

	for _, e := range scanErrors {
		line := lineOf(e.Offset)
		result.Uncertainties = append(result.Uncertainties, extraction.CSSUncertainty{
			Bucket: extraction.BucketCSSParseError,
			Provenance: extraction.Provenance{
				File:      result.File,
				StartLine: line,
				EndLine:   line,
				Snippet:   parsers.ClipSnippet(text[e.Offset:]),
			},
			Detail: e.Message,
		})
	}
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Extractor finds stylesheets embedded in Python class attributes such as
// DEFAULT_CSS and indexes their selectors against host-file lines.
type Extractor struct {
	parser  *parsers.PythonParser
	attrs   map[string]bool
	mention *regexp.Regexp
}

// NewExtractor creates an inline stylesheet extractor for the given
// attribute names.
func NewExtractor(parser *parsers.PythonParser, attributes []string) *Extractor {
	attrs := make(map[string]bool, len(attributes))
	quoted := make([]string, 0, len(attributes))
	for _, a := range attributes {
		attrs[a] = true
		quoted = append(quoted, regexp.QuoteMeta(a))
	}
	var mention *regexp.Regexp
	if len(quoted) > 0 {
		mention = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\s*(?::[^=\n]*)?=[^=]`)
	}
	return &Extractor{
		parser:  parser,
		attrs:   attrs,
		mention: mention,
	}
}

// ExtractInline parses a Python file and indexes every inline stylesheet
// assigned to a configured attribute.
func (e *Extractor) ExtractInline(file string, source []byte) (*extraction.FileSelectors, error) {
	result := &extraction.FileSelectors{File: file}
	if len(e.attrs) == 0 {
		return result, nil
	}

	tree, err := e.parser.Parse(file, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	if tree.HasError() {
		e.recordUnparseable(result, tree)
		return result, nil
	}

	parsers.WalkTree(tree.Root(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "assignment":
			e.visitAssignment(result, tree, n)
		case "augmented_assignment":
			if e.isInlineTarget(tree, n.ChildByFieldName("left")) {
				record(result, tree, extraction.BucketInlineCSSPresentUnresolved, n, "stylesheet built by augmented assignment")
			}
		}
		return true
	})
	return result, nil
}

func (e *Extractor) visitAssignment(result *extraction.FileSelectors, tree *parsers.SourceTree, assign *sitter.Node) {
	if !e.isInlineTarget(tree, assign.ChildByFieldName("left")) {
		return
	}
	value := assign.ChildByFieldName("right")
	for value != nil && value.Kind() == "assignment" {
		value = value.ChildByFieldName("right")
	}
	if value == nil {
		return
	}

	decoded, err := tree.DecodeString(value)
	switch {
	case errors.Is(err, parsers.ErrNotString):
		record(result, tree, extraction.BucketInlineCSSPresentUnresolved, assign,
			fmt.Sprintf("value %q is not a string literal", parsers.ClipSnippet(tree.Text(value))))
		return
	case err != nil:
		record(result, tree, extraction.BucketInlineCSSUnextractable, assign, err.Error())
		return
	}

	text, lines, ok := decoded.Literal()
	if !ok {
		record(result, tree, extraction.BucketInlineCSSPresentUnresolved, assign, "f-string with interpolations")
		return
	}
	fallback := tree.StartLine(value)
	scanInto(result, text, func(offset int) int {
		if offset < len(lines) {
			return lines[offset]
		}
		if len(lines) > 0 {
			return lines[len(lines)-1]
		}
		return fallback
	})
}

func (e *Extractor) isInlineTarget(tree *parsers.SourceTree, left *sitter.Node) bool {
	if left == nil {
		return false
	}
	switch left.Kind() {
	case "identifier":
		return e.attrs[tree.Text(left)]
	case "attribute":
		return e.attrs[tree.Text(left.ChildByFieldName("attribute"))]
	}
	return false
}

// recordUnparseable reports a file that cannot be parsed but appears to
// assign an inline stylesheet.
func (e *Extractor) recordUnparseable(result *extraction.FileSelectors, tree *parsers.SourceTree) {
	loc := e.mention.FindIndex(tree.Source)
	if loc == nil {
		return
	}
	line := tree.LineAt(loc[0])
	result.Uncertainties = append(result.Uncertainties, extraction.CSSUncertainty{
		Bucket: extraction.BucketInlineCSSUnextractable,
		Provenance: extraction.Provenance{
			File:      result.File,
			StartLine: line,
			EndLine:   line,
			Snippet:   parsers.ClipSnippet(string(tree.Source[loc[0]:])),
		},
		Detail: "file has syntax errors",
	})
}

func record(result *extraction.FileSelectors, tree *parsers.SourceTree, bucket string, n *sitter.Node, detail string) {
	result.Uncertainties = append(result.Uncertainties, extraction.CSSUncertainty{
		Bucket: bucket,
		Provenance: extraction.Provenance{
			File:      result.File,
			StartLine: tree.StartLine(n),
			EndLine:   tree.EndLine(n),
			Snippet:   tree.Snippet(n),
		},
		Detail: detail,
	})
}
