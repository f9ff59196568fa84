package onefile

import (
	"fmt"
	"io"
	"strconv"

	"github.com/solidcoredata/one/schema"
)

// writeASCIIRecord writes one record as "<char> field1 field2 ...\n",
// followed, if the record carries a comment, by a separate `/` line.
func writeASCIIRecord(w io.Writer, rec *Record) error {
	buf := make([]byte, 0, 64)
	buf = append(buf, rec.Char())
	for i, k := range rec.lt.Fields {
		buf = append(buf, ' ')
		s := &rec.slots[i]
		switch k {
		case schema.Int:
			buf = strconv.AppendInt(buf, s.i, 10)
		case schema.Real:
			buf = strconv.AppendFloat(buf, s.r, 'g', -1, 64)
		case schema.Char:
			buf = append(buf, s.c)
		case schema.String, schema.DNA:
			buf = appendBytesField(buf, s.bytes)
		case schema.IntList:
			buf = strconv.AppendInt(buf, int64(len(s.ints)), 10)
			for _, v := range s.ints {
				buf = append(buf, ' ')
				buf = strconv.AppendInt(buf, v, 10)
			}
		case schema.RealList:
			buf = strconv.AppendInt(buf, int64(len(s.reals)), 10)
			for _, v := range s.reals {
				buf = append(buf, ' ')
				buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
			}
		case schema.StringList:
			buf = strconv.AppendInt(buf, int64(len(s.strs)), 10)
			for _, v := range s.strs {
				buf = append(buf, ' ')
				buf = appendBytesField(buf, v)
			}
		}
	}
	buf = append(buf, '\n')
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if rec.hasComment {
		cbuf := make([]byte, 0, len(rec.comment)+3)
		cbuf = append(cbuf, '/', ' ')
		cbuf = append(cbuf, rec.comment...)
		cbuf = append(cbuf, '\n')
		if _, err := w.Write(cbuf); err != nil {
			return err
		}
	}
	return nil
}

func appendBytesField(buf []byte, data []byte) []byte {
	buf = strconv.AppendInt(buf, int64(len(data)), 10)
	if len(data) > 0 {
		buf = append(buf, ' ')
		buf = append(buf, data...)
	}
	return buf
}

// parseASCIIBody fills rec's fields from the bytes following the
// leading "<char> " of an ASCII record line.
func parseASCIIBody(body []byte, rec *Record) error {
	sc := &scanner{buf: body}
	for i, k := range rec.lt.Fields {
		s := &rec.slots[i]
		var err error
		switch k {
		case schema.Int:
			s.i, err = sc.readInt()
		case schema.Real:
			s.r, err = sc.readReal()
		case schema.Char:
			s.c, err = sc.readChar()
		case schema.String, schema.DNA:
			s.bytes, err = sc.readBytes()
		case schema.IntList:
			err = parseIntList(sc, s)
		case schema.RealList:
			err = parseRealList(sc, s)
		case schema.StringList:
			err = parseStringList(sc, s)
		}
		if err != nil {
			return fmt.Errorf("field %d (%s): %w", i, k, err)
		}
	}
	if !sc.atEnd() {
		return fmt.Errorf("trailing unparsed content: %q", sc.remainder())
	}
	return nil
}

func parseIntList(sc *scanner, s *fieldSlot) error {
	n, err := sc.readInt()
	if err != nil {
		return err
	}
	s.ints = s.ints[:0]
	for i := int64(0); i < n; i++ {
		v, err := sc.readInt()
		if err != nil {
			return err
		}
		s.ints = append(s.ints, v)
	}
	return nil
}

func parseRealList(sc *scanner, s *fieldSlot) error {
	n, err := sc.readInt()
	if err != nil {
		return err
	}
	s.reals = s.reals[:0]
	for i := int64(0); i < n; i++ {
		v, err := sc.readReal()
		if err != nil {
			return err
		}
		s.reals = append(s.reals, v)
	}
	return nil
}

func parseStringList(sc *scanner, s *fieldSlot) error {
	n, err := sc.readInt()
	if err != nil {
		return err
	}
	s.strs = s.strs[:0]
	for i := int64(0); i < n; i++ {
		v, err := sc.readBytes()
		if err != nil {
			return err
		}
		s.strs = append(s.strs, v)
	}
	return nil
}
