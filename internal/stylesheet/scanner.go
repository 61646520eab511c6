package stylesheet

import "strings"

// Rule is a selector region followed by a balanced `{ ... }` block.
// Offsets index into the scanned text.
type Rule struct {
	RawSelector   string
	SelectorStart int // first significant byte of the selector region
	BlockStart    int // offset of '{'
	BlockEnd      int // offset of the matching '}'
	Depth         int // 0 for top-level rules, >0 for nested rules
}

// ScanError is a recoverable problem found while scanning.
type ScanError struct {
	Offset  int
	Message string
}

// Scan splits stylesheet text into rules. It understands comments, quoted
// strings and nested rule blocks, and never scans declarations for selectors.
// Problems are reported as ScanErrors and scanning resumes after them:
//   - a '{' without a matching '}' is reported at its selector region and
//     scanning continues right after that '{'
//   - a stray top-level '}' is reported and skipped
//   - an unterminated comment is reported and ends the scan
func Scan(text string) ([]Rule, []ScanError) {
	s := &scanner{text: text}
	s.scanTop()
	return s.rules, s.errors
}

type scanner struct {
	text   string
	rules  []Rule
	errors []ScanError
}

func (s *scanner) scanTop() {
	text := s.text
	boundary := 0
	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end, ok := s.skipComment(i)
			if !ok {
				s.errors = append(s.errors, ScanError{Offset: i, Message: "unterminated comment"})
				return
			}
			i = end
		case c == '"' || c == '\'':
			i = s.skipString(i)
		case c == ';':
			boundary = i + 1
			i++
		case c == '}':
			s.errors = append(s.errors, ScanError{Offset: i, Message: "unmatched '}'"})
			boundary = i + 1
			i++
		case c == '{':
			end, ok := s.matchBrace(i)
			if !ok {
				s.errors = append(s.errors, ScanError{
					Offset:  s.significantStart(boundary, i),
					Message: "unterminated '{' block",
				})
				boundary = i + 1
				i++
				continue
			}
			s.addRule(boundary, i, end, 0)
			boundary = end + 1
			i = end + 1
		default:
			i++
		}
	}
}

// scanBody finds nested rules inside the block (open, close).
func (s *scanner) scanBody(open, close, depth int) {
	text := s.text
	boundary := open + 1
	for i := open + 1; i < close; {
		switch c := text[i]; {
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end, _ := s.skipComment(i)
			i = end
		case c == '"' || c == '\'':
			i = s.skipString(i)
		case c == ';' || c == '}':
			boundary = i + 1
			i++
		case c == '{':
			end, ok := s.matchBrace(i)
			if !ok || end > close {
				return
			}
			s.addRule(boundary, i, end, depth)
			boundary = end + 1
			i = end + 1
		default:
			i++
		}
	}
}

func (s *scanner) addRule(selStart, open, close, depth int) {
	s.rules = append(s.rules, Rule{
		RawSelector:   s.text[selStart:open],
		SelectorStart: s.significantStart(selStart, open),
		BlockStart:    open,
		BlockEnd:      close,
		Depth:         depth,
	})
	s.scanBody(open, close, depth+1)
}

// matchBrace returns the offset of the '}' closing the '{' at open.
func (s *scanner) matchBrace(open int) (int, bool) {
	text := s.text
	depth := 0
	for i := open; i < len(text); {
		switch c := text[i]; {
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end, ok := s.skipComment(i)
			if !ok {
				return 0, false
			}
			i = end
		case c == '"' || c == '\'':
			i = s.skipString(i)
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
			i++
		default:
			i++
		}
	}
	return 0, false
}

// skipComment returns the offset after the comment starting at i.
func (s *scanner) skipComment(i int) (int, bool) {
	end := strings.Index(s.text[i+2:], "*/")
	if end < 0 {
		return len(s.text), false
	}
	return i + 2 + end + 2, true
}

// skipString returns the offset after the string starting at i. Strings end
// at their closing quote or, unterminated, at the end of the line.
func (s *scanner) skipString(i int) int {
	quote := s.text[i]
	for j := i + 1; j < len(s.text); j++ {
		switch s.text[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(s.text)
}

// significantStart skips whitespace and comments at the start of [from, to).
func (s *scanner) significantStart(from, to int) int {
	i := from
	for i < to {
		switch {
		case s.text[i] == ' ' || s.text[i] == '\t' || s.text[i] == '\n' || s.text[i] == '\r' || s.text[i] == '\f':
			i++
		case s.text[i] == '/' && i+1 < to && s.text[i+1] == '*':
			end, ok := s.skipComment(i)
			if !ok || end > to {
				return i
			}
			i = end
		default:
			return i
		}
	}
	if i >= to {
		return from
	}
	return i
}
