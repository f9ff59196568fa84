package onefile

import (
	"io"

	"github.com/solidcoredata/one/schema"
)

// Record holds the current field values for one line type: the set of
// accessors and mutators a reader/writer cursor exposes to callers
// between read_line/write_line calls. Its field slots are pre-sized
// from the line type's declared signature so repeated reads/writes on
// the same line type reuse storage.
type Record struct {
	lt      *schema.LineType
	slots   []fieldSlot
	comment []byte
	hasComment bool
}

type fieldSlot struct {
	kind  schema.FieldKind
	i     int64
	r     float64
	c     byte
	bytes []byte
	ints  []int64
	reals []float64
	strs  [][]byte
}

func newRecord(lt *schema.LineType) *Record {
	rec := &Record{lt: lt, slots: make([]fieldSlot, len(lt.Fields))}
	for i, k := range lt.Fields {
		rec.slots[i].kind = k
	}
	return rec
}

// reset clears all field slots and the comment, keeping storage.
func (r *Record) reset() {
	for i := range r.slots {
		s := &r.slots[i]
		s.i, s.r, s.c = 0, 0, 0
		s.bytes = s.bytes[:0]
		s.ints = s.ints[:0]
		s.reals = s.reals[:0]
		s.strs = s.strs[:0]
	}
	r.comment = r.comment[:0]
	r.hasComment = false
}

// Char is the record's line-type character.
func (r *Record) Char() byte { return r.lt.Char }

// LineType is the schema line type this record's shape is drawn from.
func (r *Record) LineType() *schema.LineType { return r.lt }

// NumFields is the number of fields in this line type's signature.
func (r *Record) NumFields() int { return len(r.slots) }

func (r *Record) field(i int, want schema.FieldKind) (*fieldSlot, error) {
	if i < 0 || i >= len(r.slots) {
		return nil, &LogicError{Msg: "field index out of range"}
	}
	s := &r.slots[i]
	if want >= 0 && s.kind != want {
		return nil, &LogicError{Msg: "field " + itoa(i) + " is " + s.kind.String() + ", not " + want.String()}
	}
	return s, nil
}

// Int returns field i's INT value.
func (r *Record) Int(i int) (int64, error) {
	s, err := r.field(i, schema.Int)
	if err != nil {
		return 0, err
	}
	return s.i, nil
}

// SetInt sets field i's INT value.
func (r *Record) SetInt(i int, v int64) error {
	s, err := r.field(i, schema.Int)
	if err != nil {
		return err
	}
	s.i = v
	return nil
}

// Real returns field i's REAL value.
func (r *Record) Real(i int) (float64, error) {
	s, err := r.field(i, schema.Real)
	if err != nil {
		return 0, err
	}
	return s.r, nil
}

// SetReal sets field i's REAL value.
func (r *Record) SetReal(i int, v float64) error {
	s, err := r.field(i, schema.Real)
	if err != nil {
		return err
	}
	s.r = v
	return nil
}

// CharAt returns field i's CHAR value.
func (r *Record) CharAt(i int) (byte, error) {
	s, err := r.field(i, schema.Char)
	if err != nil {
		return 0, err
	}
	return s.c, nil
}

// SetChar sets field i's CHAR value.
func (r *Record) SetChar(i int, v byte) error {
	s, err := r.field(i, schema.Char)
	if err != nil {
		return err
	}
	s.c = v
	return nil
}

// ListLen returns the length of the line type's list field (0 if the
// line type has none or it is empty).
func (r *Record) ListLen() int {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return 0
	}
	s := &r.slots[idx]
	switch s.kind {
	case schema.String, schema.DNA:
		return len(s.bytes)
	case schema.IntList:
		return len(s.ints)
	case schema.RealList:
		return len(s.reals)
	case schema.StringList:
		return len(s.strs)
	default:
		return 0
	}
}

// Bytes returns the raw bytes of a STRING or DNA list field (DNA as
// lower-case ASCII letters).
func (r *Record) Bytes() ([]byte, error) {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return nil, &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.String && s.kind != schema.DNA {
		return nil, &LogicError{Msg: "list field is not STRING or DNA"}
	}
	return s.bytes, nil
}

// SetBytes sets a STRING or DNA list field's contents.
func (r *Record) SetBytes(data []byte) error {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.String && s.kind != schema.DNA {
		return &LogicError{Msg: "list field is not STRING or DNA"}
	}
	s.bytes = append(s.bytes[:0], data...)
	return nil
}

// IntList returns an INT_LIST field's values.
func (r *Record) IntList() ([]int64, error) {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return nil, &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.IntList {
		return nil, &LogicError{Msg: "list field is not INT_LIST"}
	}
	return s.ints, nil
}

// SetIntList sets an INT_LIST field's values.
func (r *Record) SetIntList(v []int64) error {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.IntList {
		return &LogicError{Msg: "list field is not INT_LIST"}
	}
	s.ints = append(s.ints[:0], v...)
	return nil
}

// RealList returns a REAL_LIST field's values.
func (r *Record) RealList() ([]float64, error) {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return nil, &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.RealList {
		return nil, &LogicError{Msg: "list field is not REAL_LIST"}
	}
	return s.reals, nil
}

// SetRealList sets a REAL_LIST field's values.
func (r *Record) SetRealList(v []float64) error {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.RealList {
		return &LogicError{Msg: "list field is not REAL_LIST"}
	}
	s.reals = append(s.reals[:0], v...)
	return nil
}

// Strings returns a STRING_LIST field's values.
func (r *Record) Strings() ([][]byte, error) {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return nil, &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.StringList {
		return nil, &LogicError{Msg: "list field is not STRING_LIST"}
	}
	return s.strs, nil
}

// SetStrings sets a STRING_LIST field's values.
func (r *Record) SetStrings(v [][]byte) error {
	idx := r.lt.ListFieldIndex()
	if idx < 0 {
		return &LogicError{Msg: "line type has no list field"}
	}
	s := &r.slots[idx]
	if s.kind != schema.StringList {
		return &LogicError{Msg: "list field is not STRING_LIST"}
	}
	s.strs = append(s.strs[:0], v...)
	return nil
}

// Comment returns the optional trailing comment buffered with this
// record (from a `/` meta-record), and whether one was present.
func (r *Record) Comment() ([]byte, bool) { return r.comment, r.hasComment }

// SetComment attaches a comment to be written alongside this record.
func (r *Record) SetComment(c []byte) {
	r.comment = append(r.comment[:0], c...)
	r.hasComment = len(c) > 0
}

// WriteASCII writes rec in its single-line ASCII form (plus a trailing
// `/` comment line, if it carries one), for callers — the reference CLI
// in particular — that want to print a record read from a binary file
// in its ASCII shape.
func (r *Record) WriteASCII(w io.Writer) error {
	return writeASCIIRecord(w, r)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
