package schema

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseText parses a schema definition from its text form. The grammar
// is the same five directives the container's own bootstrap schema
// describes:
//
//	P <name>                declare a new filetype block, primary name
//	S <name>                declare a secondary (alias) name for it
//	O <char> <n> <types...>  declare the object line type
//	G <char> <n> <types...>  declare the group line type
//	D <char> <n> <types...>  declare any other line type
//
// <types...> is itself written the way the container's own STRING_LIST
// field would be: a count, then that many length-prefixed words drawn
// from {INT,REAL,CHAR,STRING,DNA,INT_LIST,REAL_LIST,STRING_LIST}. A
// trailing "# comment" on an O/G/D line is recorded as that line type's
// Comment. Blank lines and lines starting with "." or "#" are skipped.
func ParseText(text string) (*Schema, error) {
	s := &Schema{}
	var cur *FileType

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ".") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		sc := &lineScanner{buf: []byte(line)}
		directive, ok := sc.readWord()
		if !ok {
			return nil, &Error{Line: lineNo, Msg: "missing directive"}
		}

		switch directive {
		case "P":
			name, err := sc.readString()
			if err != nil {
				return nil, &Error{Line: lineNo, Msg: "P: " + err.Error()}
			}
			cur = newFileType(name)
			s.Blocks = append(s.Blocks, cur)

		case "S":
			if cur == nil {
				return nil, &Error{Line: lineNo, Msg: "S directive before any P"}
			}
			name, err := sc.readString()
			if err != nil {
				return nil, &Error{Line: lineNo, Msg: "S: " + err.Error()}
			}
			cur.Secondary = append(cur.Secondary, name)

		case "O", "G", "D":
			if cur == nil {
				return nil, &Error{Line: lineNo, Msg: directive + " directive before any P"}
			}
			lt, err := parseLineTypeDirective(sc, directive)
			if err != nil {
				return nil, &Error{Line: lineNo, Msg: err.Error()}
			}
			if err := cur.addLineType(lt); err != nil {
				if se, ok := err.(*Error); ok {
					se.Line = lineNo
					return nil, se
				}
				return nil, &Error{Line: lineNo, Msg: err.Error()}
			}

		default:
			return nil, &Error{Line: lineNo, Msg: fmt.Sprintf("unknown directive %q", directive)}
		}
	}

	for _, b := range s.Blocks {
		if err := b.AssignOpcodes(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseLineTypeDirective(sc *lineScanner, directive string) (*LineType, error) {
	c, err := sc.readChar()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", directive, err)
	}
	names, err := sc.readStringList()
	if err != nil {
		return nil, fmt.Errorf("%s %c: %w", directive, c, err)
	}
	fields := make([]FieldKind, len(names))
	for i, n := range names {
		k, ok := ParseFieldKind(n)
		if !ok {
			return nil, fmt.Errorf("%s %c: unknown field kind %q", directive, c, n)
		}
		fields[i] = k
	}
	role := RoleNone
	switch directive {
	case "O":
		role = RoleObject
	case "G":
		role = RoleGroup
	}
	comment := ""
	if rest := sc.remainder(); rest != "" {
		comment = strings.TrimPrefix(strings.TrimSpace(rest), "#")
		comment = strings.TrimSpace(comment)
	}
	return &LineType{Char: c, Fields: fields, Role: role, Comment: comment}, nil
}

// FromText is an alias for ParseText, matching the FromFile/FromText/
// FromTypeHint constructor family.
func FromText(text string) (*Schema, error) { return ParseText(text) }

// FromFile reads and parses a schema text file.
func FromFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader reads and parses a schema text stream.
func FromReader(r io.Reader) (*Schema, error) {
	var sb strings.Builder
	br := bufio.NewReader(r)
	if _, err := io.Copy(&sb, br); err != nil {
		return nil, err
	}
	return ParseText(sb.String())
}

// lineScanner is a minimal cursor-based tokenizer over one schema-text
// line, implementing just the subset of the container's ASCII field
// grammar the bootstrap directives need: whitespace-delimited words,
// decimal INT tokens, and length-prefixed STRING/STRING_LIST tokens.
type lineScanner struct {
	buf []byte
	pos int
}

func (s *lineScanner) skipSpace() {
	for s.pos < len(s.buf) && s.buf[s.pos] == ' ' {
		s.pos++
	}
}

func (s *lineScanner) remainder() string {
	s.skipSpace()
	return string(s.buf[s.pos:])
}

func (s *lineScanner) readWord() (string, bool) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.buf) && s.buf[s.pos] != ' ' {
		s.pos++
	}
	if s.pos == start {
		return "", false
	}
	return string(s.buf[start:s.pos]), true
}

func (s *lineScanner) readChar() (byte, error) {
	w, ok := s.readWord()
	if !ok || len(w) != 1 {
		return 0, fmt.Errorf("expected single character token")
	}
	return w[0], nil
}

func (s *lineScanner) readInt() (int, error) {
	w, ok := s.readWord()
	if !ok {
		return 0, fmt.Errorf("expected integer token")
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("bad integer token %q: %w", w, err)
	}
	return n, nil
}

// readString reads an INT length, then exactly that many raw bytes
// after a single separating space.
func (s *lineScanner) readString() (string, error) {
	n, err := s.readInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length")
	}
	if n == 0 {
		return "", nil
	}
	if s.pos >= len(s.buf) || s.buf[s.pos] != ' ' {
		return "", fmt.Errorf("missing separator before string body")
	}
	s.pos++
	if s.pos+n > len(s.buf) {
		return "", fmt.Errorf("string body truncated: want %d bytes", n)
	}
	out := string(s.buf[s.pos : s.pos+n])
	s.pos += n
	return out, nil
}

func (s *lineScanner) readStringList() ([]string, error) {
	n, err := s.readInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative list length")
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		str, err := s.readString()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = str
	}
	return out, nil
}
