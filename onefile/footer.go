package onefile

import (
	"bufio"
	"encoding/binary"
	"io"
	"sort"

	"github.com/solidcoredata/one/huffman"
)

// writeFooter appends the footer block of a binary file at the given
// current absolute file offset: a preface newline, `#/@/+/%` count
// records for every line type that was used, `;` serialized listCodec
// records for every line type that trained one, `&`/`*` object/group
// index records, and a `^` terminator. It returns the absolute offset
// of the first byte after the preface newline — the value the caller
// writes into the file's trailing 8-byte footer pointer.
func writeFooter(w io.Writer, b *base, currentOffset int64) (int64, error) {
	if _, err := w.Write([]byte{'\n'}); err != nil {
		return 0, err
	}
	footerStart := currentOffset + 1
	cw := &countingWriter{w: w}

	var chars []byte
	for c := range b.infos {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	for _, c := range chars {
		li := b.infos[c]
		if li.accum.count == 0 {
			continue
		}
		if err := writeMetaLine(cw, '#', func(rec *Record) {
			rec.slots[0].c = c
			rec.slots[1].i = li.accum.count
		}); err != nil {
			return 0, err
		}
		if li.lt.ListFieldIndex() >= 0 {
			if err := writeMetaLine(cw, '@', func(rec *Record) {
				rec.slots[0].c = c
				rec.slots[1].i = li.accum.max
			}); err != nil {
				return 0, err
			}
			if err := writeMetaLine(cw, '+', func(rec *Record) {
				rec.slots[0].c = c
				rec.slots[1].i = li.accum.total
			}); err != nil {
				return 0, err
			}
		}
		if c == b.ft.GroupCh {
			if err := writeMetaLine(cw, '%', func(rec *Record) {
				rec.slots[0].c = c
				rec.slots[1].i = li.accum.groupCount
				rec.slots[2].i = li.accum.groupTotal
			}); err != nil {
				return 0, err
			}
		}
	}

	for _, c := range chars {
		li := b.infos[c]
		if li.huffman == nil || !li.useCodec {
			continue
		}
		data, err := li.huffman.Serialize()
		if err != nil {
			return 0, err
		}
		if err := writeMetaLine(cw, ';', func(rec *Record) {
			rec.slots[0].c = c
			rec.slots[1].bytes = data
		}); err != nil {
			return 0, err
		}
	}

	if b.ft.ObjectCh != 0 && len(b.objectIndex) > 0 {
		if err := writeMetaLine(cw, '&', func(rec *Record) {
			rec.slots[0].ints = b.objectIndex
		}); err != nil {
			return 0, err
		}
	}
	if b.ft.GroupCh != 0 && len(b.groupIndex) > 0 {
		if err := writeMetaLine(cw, '*', func(rec *Record) {
			rec.slots[0].ints = b.groupIndex
		}); err != nil {
			return 0, err
		}
	}

	if err := writeMetaLine(cw, '^', nil); err != nil {
		return 0, err
	}

	return footerStart, nil
}

func writeMetaLine(w io.Writer, c byte, fill func(*Record)) error {
	rec := newMetaRecord(c)
	if fill != nil {
		fill(rec)
	}
	return writeASCIIRecord(w, rec)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// readFooter reads the footer block starting at r's current position
// (already seeked to the offset recorded in the file's trailing 8
// bytes) through the `^` terminator, populating b's given counts,
// listCodecs, and indexes.
func readFooter(r *bufio.Reader, b *base) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return &OpenError{Path: b.path, Msg: "empty line in footer"}
		}
		c := line[0]
		body := line[1:]
		if len(body) > 0 && body[0] == ' ' {
			body = body[1:]
		}
		if c == '^' {
			return nil
		}
		lt, ok := metaLineTypes[c]
		if !ok {
			return &OpenError{Path: b.path, Msg: "unrecognised footer line type " + string(c)}
		}
		rec := newRecord(lt)
		if err := parseASCIIBody(body, rec); err != nil {
			return &ParseError{Path: b.path, Msg: err.Error()}
		}
		if err := applyFooterLine(b, c, rec); err != nil {
			return err
		}
	}
}

func applyFooterLine(b *base, c byte, rec *Record) error {
	switch c {
	case '#':
		lc, err := footerLineInfo(b, rec.slots[0].c)
		if err != nil {
			return err
		}
		lc.given.count = rec.slots[1].i
	case '@':
		lc, err := footerLineInfo(b, rec.slots[0].c)
		if err != nil {
			return err
		}
		lc.given.max = rec.slots[1].i
	case '+':
		lc, err := footerLineInfo(b, rec.slots[0].c)
		if err != nil {
			return err
		}
		lc.given.total = rec.slots[1].i
	case '%':
		lc, err := footerLineInfo(b, rec.slots[0].c)
		if err != nil {
			return err
		}
		lc.given.groupCount = rec.slots[1].i
		lc.given.groupTotal = rec.slots[2].i
	case ';':
		lc, err := footerLineInfo(b, rec.slots[0].c)
		if err != nil {
			return err
		}
		codec, err := huffman.Deserialize(rec.slots[1].bytes)
		if err != nil {
			return err
		}
		lc.huffman = codec
		lc.codec = codec
		lc.useCodec = true
	case '&':
		b.objectIndex = rec.slots[0].ints
	case '*':
		b.groupIndex = rec.slots[0].ints
	}
	return nil
}

func footerLineInfo(b *base, c byte) (*lineInfo, error) {
	li, ok := b.infos[c]
	if !ok {
		return nil, &OpenError{Path: b.path, Msg: "footer references unknown line type " + string(c)}
	}
	return li, nil
}

// readLine reads one LF-terminated line from r, with the trailing
// newline (and any trailing CR) stripped.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

func byteOrderFor(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
