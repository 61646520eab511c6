package stylesheet

import (
	"strings"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

type token struct {
	kind  extraction.SelectorKind
	value string
}

// selectorTokens returns the distinct id and class names referenced by a
// selector, in first-occurrence order. Attribute selectors and strings are
// skipped.
func selectorTokens(selector string) []token {
	var tokens []token
	seen := make(map[token]bool)

	for i := 0; i < len(selector); {
		switch c := selector[i]; c {
		case '[':
			end := strings.IndexByte(selector[i:], ']')
			if end < 0 {
				return tokens
			}
			i += end + 1
		case '"', '\'':
			i = skipQuoted(selector, i)
		case '#', '.':
			j := i + 1
			for j < len(selector) && isNameByte(selector[j]) {
				j++
			}
			if j > i+1 {
				kind := extraction.SelectorClass
				if c == '#' {
					kind = extraction.SelectorID
				}
				t := token{kind: kind, value: selector[i+1 : j]}
				if !seen[t] {
					seen[t] = true
					tokens = append(tokens, t)
				}
			}
			i = j
		default:
			i++
		}
	}
	return tokens
}

func isNameByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b >= 0x80
}

func skipQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// cleanSelector strips comments and collapses whitespace.
func cleanSelector(raw string) string {
	var b strings.Builder
	for {
		start := strings.Index(raw, "/*")
		if start < 0 {
			b.WriteString(raw)
			break
		}
		b.WriteString(raw[:start])
		b.WriteByte(' ')
		end := strings.Index(raw[start+2:], "*/")
		if end < 0 {
			break
		}
		raw = raw[start+2+end+2:]
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
