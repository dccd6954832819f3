// Package osf parses OmniScript Format documents into top-level blocks.
//
// The grammar handled here is block-level only: a document is a sequence of
// `@kind { ... }` sections separated by whitespace and comments. Bodies of
// `@doc` blocks are free text; other bodies are scanned for `key: value;`
// properties at nesting depth zero.
package osf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/odvcencio/osfcheck/pkg/model"
)

// SyntaxError reports malformed input with a 1-based source position.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Msg, e.Line, e.Column)
}

// Parser implements lang.Parser for .osf files.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Format() string {
	return "osf"
}

func (p *Parser) Parse(src string) (model.Document, error) {
	return Parse(src)
}

// Parse returns the blocks of src in document order.
func Parse(src string) (model.Document, error) {
	s := &scanner{src: src, line: 1, col: 1}
	doc := model.Document{Blocks: []model.Block{}}

	for {
		if err := s.skipTrivia(); err != nil {
			return model.Document{}, err
		}
		if s.eof() {
			return doc, nil
		}

		line, col := s.line, s.col
		if r := s.peek(); r != '@' {
			return model.Document{}, s.errorAt(line, col, "unexpected character %q", r)
		}
		s.next()

		nameLine, nameCol := s.line, s.col
		name := s.ident()
		if name == "" {
			return model.Document{}, s.errorAt(nameLine, nameCol, "expected block name after '@'")
		}

		if err := s.skipTrivia(); err != nil {
			return model.Document{}, err
		}
		if s.peek() != '{' {
			return model.Document{}, s.errorAt(s.line, s.col, "expected '{' after @%s", name)
		}
		s.next()

		body, err := s.body(name, line, col)
		if err != nil {
			return model.Document{}, err
		}

		block := model.Block{Kind: name, Line: line}
		if name != "doc" {
			block.Properties = properties(body)
		}
		doc.Blocks = append(doc.Blocks, block)
	}
}

type scanner struct {
	src  string
	pos  int
	line int
	col  int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek() rune {
	if s.eof() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return r
}

func (s *scanner) peekAt(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func (s *scanner) next() rune {
	if s.eof() {
		return utf8.RuneError
	}
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) errorAt(line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// skipTrivia consumes whitespace, `//` line comments, and `/* */` block comments.
func (s *scanner) skipTrivia() error {
	for !s.eof() {
		r := s.peek()
		switch {
		case unicode.IsSpace(r) || r == '\uFEFF':
			s.next()
		case r == '/' && s.peekAt(1) == '/':
			for !s.eof() && s.peek() != '\n' {
				s.next()
			}
		case r == '/' && s.peekAt(1) == '*':
			line, col := s.line, s.col
			s.next()
			s.next()
			closed := false
			for !s.eof() {
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.next()
					s.next()
					closed = true
					break
				}
				s.next()
			}
			if !closed {
				return s.errorAt(line, col, "unterminated comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) ident() string {
	start := s.pos
	for !s.eof() {
		r := s.peek()
		if s.pos == start && !unicode.IsLetter(r) {
			break
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			break
		}
		s.next()
	}
	return s.src[start:s.pos]
}

// body consumes up to and including the `}` matching an already consumed `{`
// and returns the text in between.
func (s *scanner) body(name string, line, col int) (string, error) {
	start := s.pos
	depth := 1
	freeText := name == "doc"

	for !s.eof() {
		r := s.peek()
		switch {
		case r == '"' && !freeText:
			if err := s.skipString(); err != nil {
				return "", err
			}
			continue
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth == 0 {
				end := s.pos
				s.next()
				return s.src[start:end], nil
			}
		}
		s.next()
	}
	return "", s.errorAt(line, col, "unterminated @%s block", name)
}

func (s *scanner) skipString() error {
	line, col := s.line, s.col
	s.next()
	escaped := false
	for !s.eof() {
		r := s.next()
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			return nil
		case r == '\n':
			return s.errorAt(line, col, "unterminated string")
		}
	}
	return s.errorAt(line, col, "unterminated string")
}

func properties(body string) map[string]string {
	props := map[string]string{}
	var segment strings.Builder
	depth := 0
	inString := false
	escaped := false

	flush := func() {
		key, value, ok := strings.Cut(segment.String(), ":")
		segment.Reset()
		if !ok {
			return
		}
		key = strings.TrimSpace(key)
		if !isKey(key) {
			return
		}
		props[key] = unquote(strings.TrimSpace(value))
	}

	for _, r := range body {
		switch {
		case inString:
			if depth == 0 {
				segment.WriteRune(r)
			}
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
		case r == '"':
			inString = true
			if depth == 0 {
				segment.WriteRune(r)
			}
		case r == '{':
			if depth == 0 {
				segment.Reset()
			}
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			flush()
		default:
			if depth == 0 {
				segment.WriteRune(r)
			}
		}
	}
	flush()

	if len(props) == 0 {
		return nil
	}
	return props
}

func isKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

func unquote(value string) string {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return value
	}
	if unquoted, err := strconv.Unquote(value); err == nil {
		return unquoted
	}
	return value[1 : len(value)-1]
}
