package onefile

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/solidcoredata/one/schema"
)

type readerState int

const (
	stBody readerState = iota
	stDone
)

// lineSource is a line-at-a-time cursor over the body region with a
// single line of pushback, needed because an ASCII record's trailing
// `/` comment is only known to belong to it once the following line
// has been read and inspected.
type lineSource struct {
	br      *bufio.Reader
	pending []byte
	has     bool
}

func (ls *lineSource) next() ([]byte, error) {
	if ls.has {
		ls.has = false
		return ls.pending, nil
	}
	return readLine(ls.br)
}

func (ls *lineSource) pushBack(line []byte) {
	ls.pending = line
	ls.has = true
}

// Reader is an open container file positioned in the body region,
// yielding one Record per ReadRecord call. Construct with Open or
// OpenReader.
type Reader struct {
	*base

	file io.ReadSeeker
	br   *bufio.Reader
	src  *lineSource

	footerStart   int64 // absolute offset just past the footer's leading '\n', binary only
	objectOrdinal int64
	lineNo        int
	state         readerState
}

// Open opens path as a container file. want, if non-nil, is the schema
// the caller expects the file's primary type to satisfy; the file's own
// embedded `~` schema lines (if present) are checked for compatibility
// against it. Either the file or want (or both) must supply a schema —
// a file with no embedded schema and no want is an OpenError.
func Open(path string, want *schema.Schema) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Msg: err.Error()}
	}
	r, err := OpenReader(f, path, want)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// OpenReader opens an already-open seekable source as a container file.
// Random access (GotoObject/GotoGroup) and binary footer reads require
// rs to support Seek.
func OpenReader(rs io.ReadSeeker, path string, want *schema.Schema) (*Reader, error) {
	r := &Reader{file: rs, br: bufio.NewReader(rs)}
	if err := r.readHeader(path, want); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader(path string, want *schema.Schema) error {
	firstLine, err := readLine(r.br)
	if err != nil {
		return &OpenError{Path: path, Msg: "empty file"}
	}
	r.lineNo++
	if len(firstLine) == 0 || firstLine[0] != '1' {
		return &OpenError{Path: path, Msg: "missing mandatory '1' header line"}
	}
	firstRec := newMetaRecord('1')
	if err := parseASCIIBody(trimLeadingField(firstLine), firstRec); err != nil {
		return &OpenError{Path: path, Msg: "malformed '1' line: " + err.Error()}
	}
	typeName := firstRec.slots[0].bytes
	major := firstRec.slots[1].i
	minor := firstRec.slots[2].i
	if major != 1 {
		return &VersionError{Path: path, Major: int(major), Minor: int(minor), WantMajor: 1, MaxMinor: CurrentMinor}
	}
	if minor > CurrentMinor {
		return &VersionError{Path: path, Major: int(major), Minor: int(minor), WantMajor: 1, MaxMinor: CurrentMinor}
	}

	primary := string(typeName)
	b := &base{path: path, ver: version{Major: int(major), Minor: int(minor)}, primary: primary}

	var schemaText strings.Builder
	var headerText strings.Builder
	var countLines [][]byte

	for {
		line, err := readLine(r.br)
		if err != nil {
			if err == io.EOF {
				break
			}
			return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
		}
		r.lineNo++
		if len(line) == 0 {
			// blank line: ASCII body begins here.
			break
		}
		c := line[0]
		rest := trimLeadingField(line)

		switch c {
		case '2':
			rec := newMetaRecord('2')
			if err := parseASCIIBody(rest, rec); err != nil {
				return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
			}
			b.subtype = string(rec.slots[0].bytes)
		case '!':
			rec := newMetaRecord('!')
			if err := parseASCIIBody(rest, rec); err != nil {
				return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
			}
			b.provenance = append(b.provenance, Provenance{
				Program: string(rec.slots[0].bytes), Version: string(rec.slots[1].bytes),
				Command: string(rec.slots[2].bytes), Date: string(rec.slots[3].bytes),
			})
		case '<':
			rec := newMetaRecord('<')
			if err := parseASCIIBody(rest, rec); err != nil {
				return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
			}
			b.references = append(b.references, Reference{Filename: string(rec.slots[0].bytes), Count: rec.slots[1].i})
		case '>':
			rec := newMetaRecord('>')
			if err := parseASCIIBody(rest, rec); err != nil {
				return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
			}
			b.deferred = append(b.deferred, Deferred{Filename: string(rec.slots[0].bytes)})
		case '~':
			schemaText.Write(rest)
			schemaText.WriteByte('\n')
		case '.':
			headerText.Write(rest)
			headerText.WriteByte('\n')
		case '#', '@', '+', '%':
			countLines = append(countLines, line)
		case '$':
			rec := newMetaRecord('$')
			if err := parseASCIIBody(rest, rec); err != nil {
				return &ParseError{Path: path, Line: r.lineNo, Msg: err.Error()}
			}
			b.binary = true
			b.bigEndian = rec.slots[0].i != 0
			goto headerDone
		default:
			// Any other leading byte starts the body (an alphabetic
			// record line, or '/' with no preceding record — both are
			// handled by pushing the line back for the body reader).
			r.src = &lineSource{br: r.br}
			r.src.pushBack(line)
			goto headerDone
		}
	}
headerDone:

	if err := resolveSchema(b, primary, schemaText.String(), want); err != nil {
		return err
	}
	for _, line := range countLines {
		rec := newMetaRecord(line[0])
		if err := parseASCIIBody(trimLeadingField(line), rec); err != nil {
			return &ParseError{Path: path, Msg: err.Error()}
		}
		if err := applyFooterLine(b, line[0], rec); err != nil {
			return &ParseError{Path: path, Msg: err.Error()}
		}
	}
	b.headerText = []byte(headerText.String())

	r.base = b
	if b.binary {
		return r.prepareBinaryBody(path)
	}
	if r.src == nil {
		r.src = &lineSource{br: r.br}
	}
	return nil
}

// resolveSchema picks b.ft from the file's own embedded schema text,
// the caller-supplied want schema, or both (checked for compatibility),
// per spec §4.4's "schema may be given externally or embedded" rule.
func resolveSchema(b *base, primary, schemaText string, want *schema.Schema) error {
	var embedded *schema.FileType
	if strings.TrimSpace(schemaText) != "" {
		s, err := schema.ParseText(schemaText)
		if err != nil {
			return &SchemaMismatch{Path: b.path, Reason: "embedded schema: " + err.Error()}
		}
		ft, ok := s.ForType(primary)
		if !ok {
			return &SchemaMismatch{Path: b.path, Reason: "embedded schema has no block named " + primary}
		}
		embedded = ft
	}

	var wanted *schema.FileType
	if want != nil {
		ft, ok := want.ForType(primary)
		if !ok {
			return &SchemaMismatch{Path: b.path, Reason: "supplied schema has no block named " + primary}
		}
		wanted = ft
	}

	switch {
	case embedded != nil && wanted != nil:
		if ok, reason := schema.Compatible(embedded, wanted); !ok {
			return &SchemaMismatch{Path: b.path, Reason: reason}
		}
		b.ft = embedded
	case embedded != nil:
		b.ft = embedded
	case wanted != nil:
		b.ft = wanted.Clone()
	default:
		return &OpenError{Path: b.path, Msg: "file has no embedded schema and none was supplied"}
	}

	b.infos = make(map[byte]*lineInfo, len(b.ft.LineTypes))
	for c, lt := range b.ft.LineTypes {
		b.infos[c] = newLineInfo(lt)
	}
	return nil
}

// prepareBinaryBody locates and reads the footer (which a binary reader
// needs up front: trained Huffman tables must be known before any
// compressed record can be decoded), then rewinds to just after the `$`
// marker to begin sequential body reading.
func (r *Reader) prepareBinaryBody(path string) error {
	bodyStart, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return &OpenError{Path: path, Msg: "binary file requires a seekable source: " + err.Error()}
	}
	// bodyStart currently overstates the true position by however much
	// r.br has buffered but not yet consumed from the underlying reader.
	bodyStart -= int64(r.br.Buffered())

	end, err := r.file.Seek(0, io.SeekEnd)
	if err != nil {
		return &OpenError{Path: path, Msg: err.Error()}
	}
	if end < 8 {
		return &OpenError{Path: path, Msg: "binary file too short to hold a footer pointer"}
	}
	if _, err := r.file.Seek(end-8, io.SeekStart); err != nil {
		return err
	}
	var ptr [8]byte
	if _, err := io.ReadFull(r.file, ptr[:]); err != nil {
		return &OpenError{Path: path, Msg: "reading footer pointer: " + err.Error()}
	}
	order := byteOrderFor(r.bigEndian)
	footerStart := int64(order.Uint64(ptr[:]))
	r.footerStart = footerStart

	if _, err := r.file.Seek(footerStart, io.SeekStart); err != nil {
		return err
	}
	fbr := bufio.NewReader(r.file)
	if err := readFooter(fbr, r.base); err != nil {
		return err
	}

	return r.seekBody(bodyStart)
}

// Close closes the underlying file, if the source passed to Open or
// OpenReader supports it.
func (r *Reader) Close() error {
	if c, ok := r.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// seekBody positions the reader to read sequential body records
// starting at the given absolute offset (the start of the container for
// ASCII, or just after the `$` marker / any object offset for binary).
func (r *Reader) seekBody(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if r.binary {
		n := r.footerStart - 1 - offset
		if n < 0 {
			n = 0
		}
		r.br = bufio.NewReader(io.LimitReader(r.file, n))
	} else {
		r.br = bufio.NewReader(r.file)
	}
	r.src = &lineSource{br: r.br}
	return nil
}

// ReadRecord returns the next body record, reusing storage owned by the
// reader (valid only until the next ReadRecord/Goto* call). It returns
// io.EOF once the body is exhausted.
func (r *Reader) ReadRecord() (*Record, error) {
	if r.binary {
		return r.readBinaryRecord()
	}
	return r.readASCIIRecord()
}

func (r *Reader) readASCIIRecord() (*Record, error) {
	for {
		line, err := r.src.next()
		if err != nil {
			return nil, err
		}
		r.lineNo++
		if len(line) == 0 {
			continue
		}
		c := line[0]
		if c == '/' {
			// An orphan comment with no owning record; drop it.
			continue
		}
		lt, ok := r.ft.LineTypes[c]
		if !ok {
			return nil, &ParseError{Path: r.path, Line: r.lineNo, Msg: "unknown line type " + string(c)}
		}
		li := r.infos[c]
		rec := li.rec
		rec.reset()
		if err := parseASCIIBody(trimLeadingField(line), rec); err != nil {
			return nil, &ParseError{Path: r.path, Line: r.lineNo, Msg: err.Error()}
		}
		if c == r.ft.ObjectCh {
			r.objectOrdinal++
		}
		li.recordOne(rec.ListLen())

		nxt, err2 := r.src.next()
		if err2 == nil {
			if len(nxt) > 0 && nxt[0] == '/' {
				r.lineNo++
				cmt := trimLeadingField(nxt)
				rec.SetComment(cmt)
			} else {
				r.src.pushBack(nxt)
			}
		}
		return rec, nil
	}
}

func (r *Reader) readBinaryRecord() (*Record, error) {
	op, err := r.br.ReadByte()
	if err != nil {
		return nil, err
	}
	lt, huffFlag, ok := r.ft.LineTypeForOpcode(op)
	if !ok {
		return nil, &BinaryError{Path: r.path, Msg: "unrecognised opcode"}
	}
	li := r.infos[lt.Char]
	rec := li.rec
	rec.reset()
	flip := r.bigEndian
	if err := decodeBinaryRecord(&binReader{r: r.br}, li, rec, huffFlag, flip); err != nil {
		return nil, err
	}
	if lt.Char == r.ft.ObjectCh {
		r.objectOrdinal++
	}
	li.recordOne(rec.ListLen())
	return rec, nil
}

// trimLeadingField strips the line-type character and the single space
// that follows it (if present), leaving the field payload.
func trimLeadingField(line []byte) []byte {
	body := line[1:]
	if len(body) > 0 && body[0] == ' ' {
		body = body[1:]
	}
	return body
}
