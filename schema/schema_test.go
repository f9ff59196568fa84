package schema

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseTextSimpleSchema(t *testing.T) {
	text := "P 3 tst\n" +
		"O A 1 3 INT\n" +
		"D B 1 6 STRING\n"
	s, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if len(s.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(s.Blocks))
	}
	ft := s.Blocks[0]
	if ft.Primary != "tst" {
		t.Fatalf("Primary = %q, want tst", ft.Primary)
	}
	if ft.ObjectCh != 'A' {
		t.Fatalf("ObjectCh = %q, want A", string(ft.ObjectCh))
	}
	a := ft.LineTypes['A']
	if len(a.Fields) != 1 || a.Fields[0] != Int {
		t.Fatalf("A fields = %v, want [INT]", a.Fields)
	}
	b := ft.LineTypes['B']
	if len(b.Fields) != 1 || b.Fields[0] != String {
		t.Fatalf("B fields = %v, want [STRING]", b.Fields)
	}
}

func TestParseTextSecondaryAndGroup(t *testing.T) {
	text := "P 4 seqs\n" +
		"S 3 seq\n" +
		"G I 1 3 INT\n" +
		"O S 1 3 DNA # a sequence record\n"
	s, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	ft := s.Blocks[0]
	if len(ft.Secondary) != 1 || ft.Secondary[0] != "seq" {
		t.Fatalf("Secondary = %v", ft.Secondary)
	}
	if ft.GroupCh != 'I' {
		t.Fatalf("GroupCh = %q", string(ft.GroupCh))
	}
	if ft.ObjectCh != 'S' {
		t.Fatalf("ObjectCh = %q", string(ft.ObjectCh))
	}
	obj := ft.LineTypes['S']
	if obj.Comment != "a sequence record" {
		t.Fatalf("Comment = %q", obj.Comment)
	}
}

func TestGroupTypeMustStartWithInt(t *testing.T) {
	text := "P 1 x\nG I 1 6 STRING\n"
	if _, err := ParseText(text); err == nil {
		t.Fatal("expected error for group type not starting with INT")
	}
}

func TestDuplicateLineTypeRejected(t *testing.T) {
	text := "P 1 x\nD A 1 3 INT\nD A 1 3 INT\n"
	if _, err := ParseText(text); err == nil {
		t.Fatal("expected error for duplicate line type")
	}
}

func TestNonAlphabeticUserLineTypeRejected(t *testing.T) {
	text := "P 1 x\nD 9 1 3 INT\n"
	if _, err := ParseText(text); err == nil {
		t.Fatal("expected error for non-alphabetic, non-reserved line type")
	}
}

func TestMoreThanOneListFieldRejected(t *testing.T) {
	text := "P 1 x\nD A 2 6 STRING 6 STRING\n"
	if _, err := ParseText(text); err == nil {
		t.Fatal("expected error for two list fields")
	}
}

func TestOpcodeAssignmentInjective(t *testing.T) {
	text := "P 1 x\nD A 1 3 INT\nD B 1 3 INT\nD Z 1 3 INT\n"
	s, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	ft := s.Blocks[0]
	seen := map[byte]bool{}
	for _, c := range []byte{'A', 'B', 'Z'} {
		op := ft.LineTypes[c].Opcode
		if op < 0x80 || op > 0xDF {
			t.Fatalf("opcode %#x out of range", op)
		}
		if seen[op] {
			t.Fatalf("opcode %#x assigned twice", op)
		}
		seen[op] = true
	}
}

func TestWriteRoundTrip(t *testing.T) {
	text := "P 3 tst\nS 3 alt\nO A 1 3 INT\nD B 1 6 STRING # bee\n"
	s, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s2, err := ParseText(buf.String())
	if err != nil {
		t.Fatalf("re-parse written schema: %v\n%s", err, buf.String())
	}
	ft2 := s2.Blocks[0]
	if ft2.Primary != "tst" || len(ft2.Secondary) != 1 || ft2.Secondary[0] != "alt" {
		t.Fatalf("round trip mismatch: %+v", ft2)
	}
	if ft2.LineTypes['B'].Comment != "bee" {
		t.Fatalf("comment lost on round trip: %+v", ft2.LineTypes['B'])
	}
}

func TestCompatible(t *testing.T) {
	have, err := ParseText("P 1 x\nD A 1 3 INT\nD B 1 6 STRING\n")
	if err != nil {
		t.Fatal(err)
	}
	want, err := ParseText("P 1 x\nD A 1 3 INT\n")
	if err != nil {
		t.Fatal(err)
	}
	ok, reason := Compatible(have.Blocks[0], want.Blocks[0])
	if !ok {
		t.Fatalf("expected compatible, got reason %q", reason)
	}

	wantBad, err := ParseText("P 1 x\nD A 1 6 STRING\n")
	if err != nil {
		t.Fatal(err)
	}
	ok, reason = Compatible(have.Blocks[0], wantBad.Blocks[0])
	if ok {
		t.Fatal("expected incompatible due to field kind mismatch")
	}
	if !strings.Contains(reason, "A") {
		t.Fatalf("reason %q should mention line type A", reason)
	}
}

func TestFromTypeHint(t *testing.T) {
	s := FromTypeHint("seqs", "seq")
	ft, ok := s.ForType("seq")
	if !ok {
		t.Fatal("ForType(seq) not found via secondary alias")
	}
	if ft.Primary != "seqs" {
		t.Fatalf("Primary = %q", ft.Primary)
	}
}

func TestBootstrapSchemaWellFormed(t *testing.T) {
	s := Bootstrap()
	ft := s.Blocks[0]
	for _, c := range []byte{'P', 'S', 'O', 'G', 'D'} {
		if _, ok := ft.LineTypes[c]; !ok {
			t.Fatalf("bootstrap schema missing line type %q", string(c))
		}
	}
}

func TestReservedLineTypeAccepted(t *testing.T) {
	text := "P 1 x\nD ! 1 3 INT\n"
	s, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	op, ok := ReservedOpcode('!')
	if !ok {
		t.Fatal("ReservedOpcode('!') not found")
	}
	if s.Blocks[0].LineTypes['!'].Opcode != op {
		t.Fatalf("reserved line type opcode not assigned")
	}
}
