package onefile

import (
	"bytes"
	"io"
	"testing"

	"github.com/solidcoredata/one/schema"
)

func mustSchema(t *testing.T, text string) *schema.Schema {
	t.Helper()
	s, err := schema.ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	return s
}

// S1: ASCII round-trip with a plain and a list line type.
func TestASCIIRoundTrip(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nO A 1 3 INT\nD B 1 6 STRING\n")
	var buf bytes.Buffer
	ft, _ := s.ForType("tst")
	w, err := NewWriter(&buf, "-", ft, false, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	recA, _ := w.NewRecord('A')
	recA.SetInt(0, 42)
	if err := w.WriteRecord(recA); err != nil {
		t.Fatalf("WriteRecord A: %v", err)
	}
	recB, _ := w.NewRecord('B')
	if err := recB.SetBytes([]byte("hello")); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := w.WriteRecord(recB); err != nil {
		t.Fatalf("WriteRecord B: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	var got []byte
	for i := 0; i < 2; i++ {
		rec, err := r.ReadRecord()
		if err != nil {
			t.Fatalf("ReadRecord %d: %v", i, err)
		}
		got = append(got, rec.Char())
	}
	if _, err := r.ReadRecord(); err != io.EOF {
		t.Fatalf("ReadRecord at end = %v, want io.EOF", err)
	}
	if string(got) != "AB" {
		t.Fatalf("record order = %q, want AB", got)
	}

	stats := r.Stats()
	var countA, countB, totalB, maxB int64
	for _, s := range stats {
		switch s.Char {
		case 'A':
			countA = s.Count
		case 'B':
			countB, totalB, maxB = s.Count, s.Total, s.Max
		}
	}
	if countA != 1 || countB != 1 || totalB != 5 || maxB != 5 {
		t.Fatalf("counts A=%d B=%d total=%d max=%d, want 1 1 5 5", countA, countB, totalB, maxB)
	}
}

// S2: binary round-trip, footer offset pointer, GotoObject.
func TestBinaryRoundTripAndIndex(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nO A 1 3 INT\nD B 1 6 STRING\n")
	ft, _ := s.ForType("tst")
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "-", ft, true, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	recA, _ := w.NewRecord('A')
	recA.SetInt(0, 42)
	if err := w.WriteRecord(recA); err != nil {
		t.Fatalf("WriteRecord A: %v", err)
	}
	recB, _ := w.NewRecord('B')
	if err := recB.SetBytes([]byte("hello")); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := w.WriteRecord(recB); err != nil {
		t.Fatalf("WriteRecord B: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatalf("file too short: %d bytes", len(data))
	}
	ptr := byteOrderFor(false).Uint64(data[len(data)-8:])
	if int64(ptr) <= 0 || int64(ptr) >= int64(len(data)) {
		t.Fatalf("footer pointer %d out of range [0,%d)", ptr, len(data))
	}

	r, err := OpenReader(bytes.NewReader(data), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if err := r.GotoObject(0); err != nil {
		t.Fatalf("GotoObject(0): %v", err)
	}
	rec, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord after GotoObject: %v", err)
	}
	if rec.Char() != 'A' {
		t.Fatalf("record char = %q, want A", string(rec.Char()))
	}
	v, _ := rec.Int(0)
	if v != 42 {
		t.Fatalf("A value = %d, want 42", v)
	}
}

// Boundary: empty list field round-trips.
func TestEmptyListField(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nD B 1 6 STRING\n")
	ft, _ := s.ForType("tst")
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "-", ft, false, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	rec, _ := w.NewRecord('B')
	if err := rec.SetBytes(nil); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := w.WriteRecord(rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	got, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.ListLen() != 0 {
		t.Fatalf("ListLen = %d, want 0", got.ListLen())
	}
}

// Boundary: a header-only file (no body records) opens and reads zero
// records cleanly, for both encodings.
func TestHeaderOnlyFile(t *testing.T) {
	for _, binary := range []bool{false, true} {
		s := mustSchema(t, "P 3 tst\nO A 1 3 INT\n")
		ft, _ := s.ForType("tst")
		var buf bytes.Buffer
		w, err := NewWriter(&buf, "-", ft, binary, WriteConfig{})
		if err != nil {
			t.Fatalf("NewWriter(binary=%v): %v", binary, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close(binary=%v): %v", binary, err)
		}

		r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
		if err != nil {
			t.Fatalf("OpenReader(binary=%v): %v", binary, err)
		}
		if _, err := r.ReadRecord(); err != io.EOF {
			t.Fatalf("ReadRecord(binary=%v) = %v, want io.EOF", binary, err)
		}
	}
}

// Boundary: a record whose ASCII form is longer than a small initial
// buffer still round-trips without data loss.
func TestLongASCIIRecordGrowsBuffer(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nD B 1 6 STRING\n")
	ft, _ := s.ForType("tst")
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "-", ft, false, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	long := bytes.Repeat([]byte("xyzzy-"), 10000)
	rec, _ := w.NewRecord('B')
	if err := rec.SetBytes(long); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := w.WriteRecord(rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	got, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	gotBytes, err := got.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(gotBytes, long) {
		t.Fatalf("round-tripped record length = %d, want %d", len(gotBytes), len(long))
	}
}

// Binary files with a group type: GotoGroup seeks to a group's first
// object and reports its width via the trailing sentinel entry.
func TestBinaryGroupIndex(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nO A 1 3 INT\nG G 1 3 INT\n")
	ft, _ := s.ForType("tst")
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "-", ft, true, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	// Two groups of sizes 2 and 3, each group line preceding its objects.
	sizes := []int64{2, 3}
	for _, n := range sizes {
		g, _ := w.NewRecord('G')
		g.SetInt(0, n)
		if err := w.WriteRecord(g); err != nil {
			t.Fatalf("WriteRecord G: %v", err)
		}
		for i := int64(0); i < n; i++ {
			a, _ := w.NewRecord('A')
			a.SetInt(0, i)
			if err := w.WriteRecord(a); err != nil {
				t.Fatalf("WriteRecord A: %v", err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if got := r.NumGroups(); got != 2 {
		t.Fatalf("NumGroups = %d, want 2", got)
	}
	if got := r.NumObjects(); got != 5 {
		t.Fatalf("NumObjects = %d, want 5", got)
	}

	width, err := r.GotoGroup(1)
	if err != nil {
		t.Fatalf("GotoGroup(1): %v", err)
	}
	if width != 3 {
		t.Fatalf("group 1 width = %d, want 3", width)
	}
	rec, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord after GotoGroup(1): %v", err)
	}
	v, _ := rec.Int(0)
	if rec.Char() != 'A' || v != 0 {
		t.Fatalf("first record of group 1 = %c %d, want A 0", rec.Char(), v)
	}

	if _, err := r.GotoGroup(2); err == nil {
		t.Fatalf("GotoGroup(2) = nil error, want out-of-range")
	}
}

// Boundary: provenance/reference/deferred metadata and InheritX round
// trip across a Writer built from a Reader's state.
func TestInheritHeaderMetadata(t *testing.T) {
	s := mustSchema(t, "P 3 tst\nO A 1 3 INT\n")
	ft, _ := s.ForType("tst")
	var buf bytes.Buffer
	src, err := NewWriter(&buf, "-", ft, false, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := src.AddProvenance(Provenance{Program: "onestat", Version: "1", Command: "convert", Date: "2026-07-31"}); err != nil {
		t.Fatalf("AddProvenance: %v", err)
	}
	if err := src.AddReference(Reference{Filename: "in.tst", Count: 2}); err != nil {
		t.Fatalf("AddReference: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(bytes.NewReader(buf.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	var out bytes.Buffer
	dst, err := NewWriter(&out, "-", ft, false, WriteConfig{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := dst.InheritProvenance(r); err != nil {
		t.Fatalf("InheritProvenance: %v", err)
	}
	if err := dst.InheritReference(r); err != nil {
		t.Fatalf("InheritReference: %v", err)
	}
	if err := dst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := OpenReader(bytes.NewReader(out.Bytes()), "-", s)
	if err != nil {
		t.Fatalf("OpenReader(out): %v", err)
	}
	if len(r2.Provenance()) != 1 || r2.Provenance()[0].Program != "onestat" {
		t.Fatalf("Provenance = %+v, want one onestat entry", r2.Provenance())
	}
	if len(r2.References()) != 1 || r2.References()[0].Filename != "in.tst" {
		t.Fatalf("References = %+v, want one in.tst entry", r2.References())
	}
}
