package dna2

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	seq := "acgtacgtacg"
	packed := Pack([]byte(seq))
	if len(packed) != 3 {
		t.Fatalf("len(packed) = %d, want 3", len(packed))
	}
	got := Unpack(packed, len(seq))
	if string(got) != seq {
		t.Fatalf("Unpack = %q, want %q", got, seq)
	}
}

func TestUnrecognisedByteMapsToA(t *testing.T) {
	packed := Pack([]byte("acNt"))
	got := Unpack(packed, 4)
	if string(got) != "acat" {
		t.Fatalf("got %q, want %q", got, "acat")
	}
}

func TestReverseComplement(t *testing.T) {
	seq := "acgtacgtacg"
	packed := Pack([]byte(seq))
	rc := ReverseComplementPacked(packed, len(seq))
	got := Unpack(rc, len(seq))
	want := "cgtacgtacgt"
	if string(got) != want {
		t.Fatalf("ReverseComplement(%q) = %q, want %q", seq, got, want)
	}
}

func TestReverseComplementHelper(t *testing.T) {
	got := ReverseComplement([]byte("acgt"))
	if string(got) != "acgt" {
		t.Fatalf("got %q", got)
	}
}

func TestEmptySequence(t *testing.T) {
	if p := Pack(nil); len(p) != 0 {
		t.Fatalf("Pack(nil) = %v, want empty", p)
	}
	if u := Unpack(nil, 0); len(u) != 0 {
		t.Fatalf("Unpack(nil,0) = %v, want empty", u)
	}
}
