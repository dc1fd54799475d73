// Package bibtex reads BibTeX text into raw entries and checks them against
// the per-type field requirements of the supported study types.
package bibtex

import (
	"fmt"
	"regexp"
	"strings"
)

// Entry is one bibliographic entry as written in the source text.
// Field names are lower-cased; values keep inner braces and LaTeX escapes.
type Entry struct {
	Type   string            // declared type token, e.g. "article"
	Key    string            // citation key
	Fields map[string]string // field name -> value with outer delimiters removed
	Line   int               // line of the '@' that opened the entry
}

// Field returns the first non-blank value among names, trimmed.
func (e Entry) Field(names ...string) (string, bool) {
	for _, name := range names {
		v := strings.TrimSpace(e.Fields[strings.ToLower(name)])
		if v != "" {
			return v, true
		}
	}
	return "", false
}

// Has reports whether name is present, even with a blank value.
func (e Entry) Has(name string) bool {
	_, ok := e.Fields[strings.ToLower(name)]
	return ok
}

// newlineRun matches whitespace runs that span a line break.
var newlineRun = regexp.MustCompile(`[ \t\r]*\n\s*`)

// Parse splits src into entries. @comment and @preamble blocks are skipped,
// @string macros are expanded where their names are used as bare values,
// and text outside entries is ignored. An '@' opens an entry only at the
// start of input, after whitespace, or right after a closing delimiter.
//
// Blank input, input with no entries and structurally broken entries
// (unbalanced delimiters, missing key or '=') all yield an *InputFormatError.
// When a field is repeated, the first occurrence wins.
func Parse(src string) ([]Entry, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &InputFormatError{Reason: "input is blank"}
	}

	p := &parser{src: src, macros: defaultMacros()}
	var entries []Entry
	for {
		at := strings.IndexByte(p.src[p.pos:], '@')
		if at < 0 {
			break
		}
		start := p.pos + at
		p.pos = start + 1
		if start > 0 && !startsEntry(p.src[start-1]) {
			// "@" inside a word, such as an e-mail address
			continue
		}

		typ := p.ident()
		if typ == "" {
			continue
		}
		p.skipSpace()
		if p.eof() || (p.peek() != '{' && p.peek() != '(') {
			continue
		}
		closer := byte('}')
		if p.peek() == '(' {
			closer = ')'
		}
		p.pos++

		switch strings.ToLower(typ) {
		case "comment", "preamble":
			if err := p.skipBlock(closer, start); err != nil {
				return nil, err
			}
			continue
		case "string":
			if err := p.macro(closer, start); err != nil {
				return nil, err
			}
			continue
		}

		e, err := p.entry(typ, closer, start)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, &InputFormatError{Reason: "no bibliographic entry found"}
	}
	return entries, nil
}

type parser struct {
	src    string
	pos    int
	macros map[string]string
}

func defaultMacros() map[string]string {
	m := make(map[string]string, 12)
	for _, name := range []string{"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december"} {
		m[name[:3]] = strings.ToUpper(name[:1]) + name[1:]
	}
	return m
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

// lineAt returns the 1-based line number of offset.
func (p *parser) lineAt(offset int) int {
	if offset > len(p.src) {
		offset = len(p.src)
	}
	return strings.Count(p.src[:offset], "\n") + 1
}

func (p *parser) fail(offset int, format string, args ...interface{}) error {
	return &InputFormatError{Line: p.lineAt(offset), Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// startsEntry reports whether an '@' preceded by c can open an entry.
func startsEntry(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '}', ')':
		return true
	}
	return false
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == ':' || c == '.' || c == '+' || c == '/'
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// skipBlock consumes everything up to the closer matching an opened block.
func (p *parser) skipBlock(closer byte, start int) error {
	opener := byte('{')
	if closer == ')' {
		opener = '('
	}
	depth := 1
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return p.fail(start, "unterminated block")
}

func (p *parser) macro(closer byte, start int) error {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return p.fail(p.pos, "@string without a name")
	}
	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		return p.fail(p.pos, "expected '=' after @string name %q", name)
	}
	p.pos++
	value, err := p.value(start)
	if err != nil {
		return err
	}
	p.skipSpace()
	if p.eof() || p.peek() != closer {
		return p.fail(start, "unterminated @string")
	}
	p.pos++
	p.macros[strings.ToLower(name)] = value
	return nil
}

func (p *parser) entry(typ string, closer byte, start int) (Entry, error) {
	e := Entry{Type: typ, Fields: make(map[string]string), Line: p.lineAt(start)}

	p.skipSpace()
	keyStart := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ',' || c == closer || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		p.pos++
	}
	e.Key = p.src[keyStart:p.pos]
	if e.Key == "" || strings.ContainsAny(e.Key, "={}\"") {
		return Entry{}, p.fail(start, "@%s entry has no citation key", typ)
	}

	p.skipSpace()
	if p.eof() {
		return Entry{}, p.fail(start, "unterminated entry %q", e.Key)
	}
	if p.peek() == closer {
		p.pos++
		return e, nil
	}
	if p.peek() != ',' {
		return Entry{}, p.fail(p.pos, "expected ',' after citation key %q", e.Key)
	}
	p.pos++

	for {
		p.skipSpace()
		if p.eof() {
			return Entry{}, p.fail(start, "unterminated entry %q", e.Key)
		}
		if p.peek() == closer {
			p.pos++
			return e, nil
		}

		name := p.ident()
		if name == "" {
			return Entry{}, p.fail(p.pos, "expected field name in entry %q", e.Key)
		}
		p.skipSpace()
		if p.eof() || p.peek() != '=' {
			return Entry{}, p.fail(p.pos, "expected '=' after field %q in entry %q", name, e.Key)
		}
		p.pos++

		value, err := p.value(start)
		if err != nil {
			return Entry{}, err
		}
		lname := strings.ToLower(name)
		if _, dup := e.Fields[lname]; !dup {
			e.Fields[lname] = value
		}

		p.skipSpace()
		if p.eof() {
			return Entry{}, p.fail(start, "unterminated entry %q", e.Key)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return e, nil
		default:
			return Entry{}, p.fail(p.pos, "expected ',' after field %q in entry %q", name, e.Key)
		}
	}
}

// value reads a field value: braced, quoted, numeric or macro parts joined by '#'.
func (p *parser) value(start int) (string, error) {
	var b strings.Builder
	for {
		p.skipSpace()
		if p.eof() {
			return "", p.fail(start, "unexpected end of input in field value")
		}
		switch c := p.peek(); {
		case c == '{':
			s, err := p.delimited('}')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c == '"':
			s, err := p.delimited('"')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case isIdentByte(c):
			word := p.ident()
			if v, ok := p.macros[strings.ToLower(word)]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(word)
			}
		default:
			return "", p.fail(p.pos, "unexpected %q in field value", c)
		}

		p.skipSpace()
		if !p.eof() && p.peek() == '#' {
			p.pos++
			continue
		}
		return strings.TrimSpace(newlineRun.ReplaceAllString(b.String(), " ")), nil
	}
}

// delimited reads a {..} or ".." value starting at the opening delimiter and
// returns its content. Inner braces are kept; a '"' nested in braces does not
// terminate a quoted value. Escaped braces do not count towards nesting.
func (p *parser) delimited(end byte) (string, error) {
	open := p.pos
	p.pos++
	depth := 0
	if end == '}' {
		depth = 1
	}
	contentStart := p.pos
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '{' || p.src[p.pos+1] == '}'):
			p.pos += 2
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if end == '}' && depth == 0 {
				s := p.src[contentStart:p.pos]
				p.pos++
				return s, nil
			}
			if depth < 0 {
				return "", p.fail(p.pos, "unbalanced '}' in field value")
			}
		case c == '"' && end == '"' && depth == 0:
			s := p.src[contentStart:p.pos]
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return "", p.fail(open, "unterminated field value")
}
