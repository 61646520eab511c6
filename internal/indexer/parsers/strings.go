package parsers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	// ErrNotString indicates the expression is not a string literal
	ErrNotString = errors.New("not a string literal")

	// ErrBytesLiteral indicates a bytes literal, which never yields text
	ErrBytesLiteral = errors.New("bytes literal")

	// ErrUnsupportedEscape indicates an escape that cannot be decoded statically
	ErrUnsupportedEscape = errors.New("unsupported escape sequence")

	// ErrMalformedString indicates a string literal containing syntax errors
	ErrMalformedString = errors.New("malformed string literal")
)

// StringPart is either decoded literal text or an f-string interpolation.
type StringPart struct {
	Text  string
	Lines []int // host line (1-indexed) of each byte of Text

	Interpolation *sitter.Node
}

// StringValue is a statically decoded string literal or adjacent concatenation.
type StringValue struct {
	Parts   []StringPart
	FString bool
}

// HasInterpolation reports whether any part is an f-string interpolation.
func (v *StringValue) HasInterpolation() bool {
	for _, p := range v.Parts {
		if p.Interpolation != nil {
			return true
		}
	}
	return false
}

// Literal returns the full decoded text and its line map. ok is false when
// the value contains interpolations.
func (v *StringValue) Literal() (text string, lines []int, ok bool) {
	var sb strings.Builder
	for _, p := range v.Parts {
		if p.Interpolation != nil {
			return "", nil, false
		}
		sb.WriteString(p.Text)
		lines = append(lines, p.Lines...)
	}
	return sb.String(), lines, true
}

// DecodeString decodes a string or concatenated_string node, following
// Python's escape rules. Parenthesized literals are unwrapped.
func (t *SourceTree) DecodeString(node *sitter.Node) (*StringValue, error) {
	node = Unparen(node)
	if node == nil {
		return nil, ErrNotString
	}

	var segments []*sitter.Node
	switch node.Kind() {
	case "string":
		segments = []*sitter.Node{node}
	case "concatenated_string":
		for _, child := range NamedChildren(node) {
			if child.Kind() == "string" {
				segments = append(segments, child)
			}
		}
	default:
		return nil, ErrNotString
	}

	value := &StringValue{}
	for _, seg := range segments {
		if err := t.decodeSegment(seg, value); err != nil {
			return nil, err
		}
	}
	value.Parts = mergeParts(value.Parts)
	return value, nil
}

func (t *SourceTree) decodeSegment(seg *sitter.Node, value *StringValue) error {
	if seg.HasError() {
		return ErrMalformedString
	}
	count := int(seg.ChildCount())
	if count < 2 {
		return ErrMalformedString
	}
	start := seg.Child(0)
	end := seg.Child(uint(count - 1))
	if start.Kind() != "string_start" || end.Kind() != "string_end" || end.IsMissing() {
		return ErrMalformedString
	}

	prefix := strings.ToLower(strings.TrimRight(t.Text(start), `"'`))
	raw := strings.ContainsRune(prefix, 'r')
	fstring := strings.ContainsRune(prefix, 'f')
	if strings.ContainsRune(prefix, 'b') {
		return ErrBytesLiteral
	}
	if strings.ContainsRune(prefix, 't') {
		// template strings evaluate to Template objects, not str
		return ErrNotString
	}
	if fstring {
		value.FString = true
	}

	pos := int(start.EndByte())
	for i := 1; i < count-1; i++ {
		child := seg.Child(uint(i))
		if child.Kind() != "interpolation" {
			continue
		}
		if err := t.decodeRange(pos, int(child.StartByte()), raw, fstring, value); err != nil {
			return err
		}
		value.Parts = append(value.Parts, StringPart{Interpolation: child})
		pos = int(child.EndByte())
	}
	return t.decodeRange(pos, int(end.StartByte()), raw, fstring, value)
}

// decodeRange decodes the literal source bytes [from, to) and appends them as a part.
func (t *SourceTree) decodeRange(from, to int, raw, fstring bool, value *StringValue) error {
	if from >= to {
		return nil
	}
	src := t.Source[from:to]
	var out []byte
	var lines []int

	emit := func(b []byte, offset int) {
		line := t.LineAt(offset)
		out = append(out, b...)
		for range b {
			lines = append(lines, line)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		offset := from + i

		if c == '\r' && i+1 < len(src) && src[i+1] == '\n' {
			i++
			continue
		}

		if fstring && (c == '{' || c == '}') && i+1 < len(src) && src[i+1] == c {
			emit([]byte{c}, offset)
			i += 2
			continue
		}

		if c != '\\' || raw {
			emit([]byte{c}, offset)
			i++
			continue
		}

		if i+1 >= len(src) {
			return fmt.Errorf("%w: trailing backslash", ErrMalformedString)
		}
		next := src[i+1]
		switch next {
		case '\n':
			i += 2
		case '\r':
			i += 2
			if i < len(src) && src[i] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			emit([]byte{next}, offset)
			i += 2
		case 'a':
			emit([]byte{'\a'}, offset)
			i += 2
		case 'b':
			emit([]byte{'\b'}, offset)
			i += 2
		case 'f':
			emit([]byte{'\f'}, offset)
			i += 2
		case 'n':
			emit([]byte{'\n'}, offset)
			i += 2
		case 'r':
			emit([]byte{'\r'}, offset)
			i += 2
		case 't':
			emit([]byte{'\t'}, offset)
			i += 2
		case 'v':
			emit([]byte{'\v'}, offset)
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i + 1
			for j < len(src) && j < i+4 && src[j] >= '0' && src[j] <= '7' {
				j++
			}
			code, _ := strconv.ParseUint(string(src[i+1:j]), 8, 32)
			emit(utf8.AppendRune(nil, rune(code)), offset)
			i = j
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[next]
			if i+2+width > len(src) {
				return fmt.Errorf("%w: truncated \\%c escape", ErrMalformedString, next)
			}
			code, err := strconv.ParseUint(string(src[i+2:i+2+width]), 16, 32)
			if err != nil || code > utf8.MaxRune {
				return fmt.Errorf("%w: invalid \\%c escape", ErrMalformedString, next)
			}
			emit(utf8.AppendRune(nil, rune(code)), offset)
			i += 2 + width
		case 'N':
			return fmt.Errorf("%w: \\N{...}", ErrUnsupportedEscape)
		default:
			// unknown escapes keep the backslash
			emit([]byte{'\\'}, offset)
			i++
		}
	}

	if len(out) > 0 {
		value.Parts = append(value.Parts, StringPart{Text: string(out), Lines: lines})
	}
	return nil
}

func mergeParts(parts []StringPart) []StringPart {
	var merged []StringPart
	for _, p := range parts {
		n := len(merged)
		if p.Interpolation == nil && n > 0 && merged[n-1].Interpolation == nil {
			merged[n-1].Text += p.Text
			merged[n-1].Lines = append(merged[n-1].Lines, p.Lines...)
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// InterpolationName returns the identifier of an interpolation of the form
// `{name}`. ok is false for any other expression, conversion, format spec or `=`.
func (t *SourceTree) InterpolationName(interp *sitter.Node) (string, bool) {
	for i := 0; i < int(interp.ChildCount()); i++ {
		if interp.Child(uint(i)).Kind() == "=" {
			return "", false
		}
	}
	named := NamedChildren(interp)
	if len(named) != 1 || named[0].Kind() != "identifier" {
		return "", false
	}
	return t.Text(named[0]), true
}
