package onefile

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/solidcoredata/one/schema"
)

type writerState int

const (
	wOpen writerState = iota
	wClosed
)

// Writer is an open container file accepting WriteRecord calls. The
// header is deferred: nothing is written to the underlying sink until
// the first WriteRecord or Close call forces it out, so provenance and
// reference lines can be added right up until the first real write. Construct with Create or
// NewWriter.
type Writer struct {
	*base

	out    io.Writer
	seeker io.WriteSeeker // non-nil iff out supports Seek, enabling ASCII header rewrite-on-close
	cw     *countingWriter
	cfg    WriteConfig

	state         writerState
	headerWritten bool

	objectOrdinal int64

	// bodyOnly is true for a ParallelWriter sibling: it writes raw
	// binary records starting at its temp file's byte 0, with no header
	// of its own and no footer at Close — the primary supplies both
	// once, wrapping every sibling's concatenated body.
	bodyOnly bool
	// coord, if non-nil, redirects codec training through a
	// ParallelWriter's cross-sibling coordinator instead of this
	// writer's own lineInfo.train.
	coord trainCoordinator
}

// Create creates path and opens it for writing as a container file
// whose primary type is typeName, drawn from s.
func Create(path string, s *schema.Schema, typeName string, binary bool, cfg WriteConfig) (*Writer, error) {
	ft, ok := s.ForType(typeName)
	if !ok {
		return nil, &OpenError{Path: path, Msg: "schema has no block named " + typeName}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Path: path, Msg: err.Error()}
	}
	w, err := newWriter(f, path, ft, binary, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter wraps an arbitrary sink (a pipe, a sibling temp file, an
// in-memory buffer) as a container writer. If out also implements
// io.WriteSeeker, an ASCII writer can rewrite its header's count lines
// in place at Close; otherwise those lines keep the zero values they
// were first written with, per the non-seekable-sink fallback.
func NewWriter(out io.Writer, path string, ft *schema.FileType, binary bool, cfg WriteConfig) (*Writer, error) {
	return newWriter(out, path, ft, binary, cfg)
}

func newWriter(out io.Writer, path string, ft *schema.FileType, isBinary bool, cfg WriteConfig) (*Writer, error) {
	b := newBase(ft.Clone(), ft.Primary, "")
	b.path = path
	b.binary = isBinary
	seeker, _ := out.(io.WriteSeeker)
	w := &Writer{
		base:   b,
		out:    out,
		seeker: seeker,
		cfg:    cfg,
	}
	w.cw = &countingWriter{w: out}
	return w, nil
}

// AddProvenance records a `!` header line. Legal only before the header
// is emitted (i.e. before the first write).
func (w *Writer) AddProvenance(p Provenance) error {
	if w.headerWritten {
		return &WriteError{Path: w.path, Msg: "provenance added after header was emitted"}
	}
	w.provenance = append(w.provenance, p)
	return nil
}

// AddReference records a `<` header line.
func (w *Writer) AddReference(ref Reference) error {
	if w.headerWritten {
		return &WriteError{Path: w.path, Msg: "reference added after header was emitted"}
	}
	w.references = append(w.references, ref)
	return nil
}

// AddDeferred records a `>` header line.
func (w *Writer) AddDeferred(d Deferred) error {
	if w.headerWritten {
		return &WriteError{Path: w.path, Msg: "deferred entry added after header was emitted"}
	}
	w.deferred = append(w.deferred, d)
	return nil
}

// SetHeaderText sets the free-form `.` header text.
func (w *Writer) SetHeaderText(s string) error {
	if w.headerWritten {
		return &WriteError{Path: w.path, Msg: "header text added after header was emitted"}
	}
	w.headerText = []byte(s)
	return nil
}

// SetSubtype sets the `2` header line's subtype name.
func (w *Writer) SetSubtype(s string) error {
	if w.headerWritten {
		return &WriteError{Path: w.path, Msg: "subtype set after header was emitted"}
	}
	w.subtype = s
	return nil
}

// NewRecord returns the reusable Record for line type c, cleared of any
// previous contents, ready for the caller to fill and pass to
// WriteRecord.
func (w *Writer) NewRecord(c byte) (*Record, error) {
	li, ok := w.infos[c]
	if !ok {
		return nil, &LogicError{Msg: "unknown line type " + string(c)}
	}
	li.rec.reset()
	return li.rec, nil
}

// WriteRecord appends rec to the body, emitting the deferred header
// first if this is the first write.
func (w *Writer) WriteRecord(rec *Record) error {
	if w.state == wClosed {
		return &WriteError{Path: w.path, Msg: "write after close"}
	}
	if !w.headerWritten {
		if err := w.emitHeader(false); err != nil {
			return err
		}
	}
	li, ok := w.infos[rec.Char()]
	if !ok {
		return &LogicError{Msg: "unknown line type " + string(rec.Char())}
	}

	if rec.Char() == w.ft.ObjectCh {
		w.objectIndex = append(w.objectIndex, w.cw.n)
		w.objectOrdinal++
	}
	if rec.Char() == w.ft.GroupCh {
		w.groupIndex = append(w.groupIndex, w.objectOrdinal)
		li.accum.groupCount++
		li.accum.groupTotal = w.objectOrdinal
	}

	listLen := rec.ListLen()
	if w.binary {
		huffFlag := li.isCompressibleByteList() && li.useCodec
		if err := encodeBinaryRecord(w.cw, li, rec, huffFlag); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
		if li.isCompressibleByteList() && !li.useCodec {
			if data, err := rec.Bytes(); err == nil {
				if err := w.train(li, rec.Char(), data); err != nil {
					return &WriteError{Path: w.path, Msg: err.Error()}
				}
			}
		}
	} else {
		if err := writeASCIIRecord(w.cw, rec); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
	}
	li.recordOne(listLen)
	return nil
}

// Close finalises the file: for binary files, appends the footer and
// its trailing 8-byte pointer; for ASCII files whose sink supports
// Seek, rewrites the header's count lines in place with their final
// values. A file on which no record was ever written still gets a
// valid (empty-body) header.
func (w *Writer) Close() error {
	if w.state == wClosed {
		return nil
	}
	w.state = wClosed
	if w.bodyOnly {
		// A ParallelWriter sibling: its temp file holds nothing but raw
		// body records. The primary supplies the one shared header and
		// footer at ParallelWriter.Close, after reading this file back.
		if c, ok := w.out.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	if !w.headerWritten {
		if err := w.emitHeader(false); err != nil {
			return err
		}
	}

	if w.binary {
		if w.ft.GroupCh != 0 && len(w.groupIndex) > 0 {
			w.groupIndex = append(w.groupIndex, w.objectOrdinal)
		}
		footerStart, err := writeFooter(w.cw, w.base, w.cw.n)
		if err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
		var ptr [8]byte
		byteOrderFor(w.bigEndian).PutUint64(ptr[:], uint64(footerStart))
		if _, err := w.cw.Write(ptr[:]); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
	} else if !w.cfg.NoASCIIHeader && w.seeker != nil {
		if _, err := w.seeker.Seek(0, io.SeekStart); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
		var final strings.Builder
		if err := w.writeHeaderTo(&final, true); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
		if _, err := w.seeker.Write([]byte(final.String())); err != nil {
			return &WriteError{Path: w.path, Msg: err.Error()}
		}
	}

	if c, ok := w.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// train folds data into li's codec-training state: directly, for a
// standalone writer, or through a ParallelWriter's cross-sibling
// coordinator when w is a sibling, so every sibling converges on one
// shared Huffman table per line type instead of training n independent
// ones (spec §4.9, §5).
func (w *Writer) train(li *lineInfo, ch byte, data []byte) error {
	if w.coord != nil {
		return w.coord.train(ch, li, data)
	}
	_, err := li.train(data, w.cfg.threshold())
	return err
}

// emitHeader writes the deferred header (zero-valued ASCII count lines,
// if applicable) and marks it written. final is always false here;
// Close's in-place rewrite calls writeHeaderTo directly with final=true.
// An ASCII writer with NoASCIIHeader set writes no header at all.
func (w *Writer) emitHeader(final bool) error {
	if !w.binary && w.cfg.NoASCIIHeader {
		w.headerWritten = true
		return nil
	}
	if err := w.writeHeaderTo(w.cw, final); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

func (w *Writer) writeHeaderTo(dst io.Writer, final bool) error {
	if err := writeMetaLine(dst, '1', func(rec *Record) {
		rec.slots[0].bytes = []byte(w.primary)
		rec.slots[1].i = int64(w.ver.Major)
		rec.slots[2].i = int64(w.ver.Minor)
	}); err != nil {
		return err
	}
	if w.subtype != "" {
		if err := writeMetaLine(dst, '2', func(rec *Record) { rec.slots[0].bytes = []byte(w.subtype) }); err != nil {
			return err
		}
	}
	for _, p := range w.provenance {
		if err := writeMetaLine(dst, '!', func(rec *Record) {
			rec.slots[0].bytes = []byte(p.Program)
			rec.slots[1].bytes = []byte(p.Version)
			rec.slots[2].bytes = []byte(p.Command)
			rec.slots[3].bytes = []byte(p.Date)
		}); err != nil {
			return err
		}
	}
	for _, ref := range w.references {
		if err := writeMetaLine(dst, '<', func(rec *Record) {
			rec.slots[0].bytes = []byte(ref.Filename)
			rec.slots[1].i = ref.Count
		}); err != nil {
			return err
		}
	}
	for _, d := range w.deferred {
		if err := writeMetaLine(dst, '>', func(rec *Record) { rec.slots[0].bytes = []byte(d.Filename) }); err != nil {
			return err
		}
	}

	var sb strings.Builder
	schemaForWrite := &schema.Schema{Blocks: []*schema.FileType{w.ft}}
	if err := schemaForWrite.Write(&sb); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		if _, err := io.WriteString(dst, "~ "+line+"\n"); err != nil {
			return err
		}
	}

	if len(w.headerText) > 0 {
		for _, line := range strings.Split(strings.TrimRight(string(w.headerText), "\n"), "\n") {
			if _, err := io.WriteString(dst, ". "+line+"\n"); err != nil {
				return err
			}
		}
	}

	if w.binary {
		return writeMetaLine(dst, '$', func(rec *Record) {
			if w.bigEndian {
				rec.slots[0].i = 1
			}
		})
	}

	// ASCII: count lines, fixed-width so the final rewrite-on-close
	// lands in exactly the same byte span as this (zero-valued) pass.
	for _, c := range w.ft.SortedChars() {
		li := w.infos[c]
		var count int64
		if final {
			count = li.accum.count
		}
		if err := writeCountLinePadded(dst, '#', c, count); err != nil {
			return err
		}
		if li.lt.ListFieldIndex() >= 0 {
			var mx, tot int64
			if final {
				mx, tot = li.accum.max, li.accum.total
			}
			if err := writeCountLinePadded(dst, '@', c, mx); err != nil {
				return err
			}
			if err := writeCountLinePadded(dst, '+', c, tot); err != nil {
				return err
			}
		}
		if c == w.ft.GroupCh {
			var gc, gt int64
			if final {
				gc, gt = li.accum.groupCount, w.objectOrdinal
			}
			if err := writeCountLinePadded(dst, '%', c, gc, gt); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeCountLinePadded writes a "<directive> <ltchar> <values...>\n"
// header count line with each value zero-padded to a fixed width, so
// the line's byte length never changes between the zero-valued first
// pass and the final rewrite-on-close pass.
func writeCountLinePadded(dst io.Writer, directive byte, ltChar byte, values ...int64) error {
	buf := make([]byte, 0, 48)
	buf = append(buf, directive, ' ', ltChar)
	for _, v := range values {
		buf = append(buf, ' ')
		buf = appendPadded(buf, v, 19)
	}
	buf = append(buf, '\n')
	_, err := dst.Write(buf)
	return err
}

func appendPadded(buf []byte, v int64, width int) []byte {
	s := strconv.FormatInt(v, 10)
	for len(s) < width {
		s = "0" + s
	}
	return append(buf, s...)
}
