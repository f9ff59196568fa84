package huffman

import (
	"bytes"
	"testing"
)

func buildFromHistogram(t *testing.T, hist map[byte]uint64, partial bool) *Codec {
	t.Helper()
	c := New()
	for sym, count := range hist {
		data := bytes.Repeat([]byte{sym}, int(count))
		if err := c.AddSample(data); err != nil {
			t.Fatalf("AddSample: %v", err)
		}
	}
	if err := c.Build(partial); err != nil {
		t.Fatalf("Build(%v): %v", partial, err)
	}
	return c
}

func roundTrip(t *testing.T, c *Codec, input []byte) []byte {
	t.Helper()
	bits, nBits, err := c.Encode(input)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(bits, nBits, len(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestRoundTripCompleteHistogram(t *testing.T) {
	c := buildFromHistogram(t, map[byte]uint64{'a': 60, 'b': 30, 'c': 10}, false)
	got := roundTrip(t, c, []byte("abracadabra"))
	if string(got) != "abracadabra" {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeForUnseenSymbol(t *testing.T) {
	c := buildFromHistogram(t, map[byte]uint64{'a': 60, 'b': 30, 'c': 10}, true)
	got := roundTrip(t, c, []byte("abxy"))
	if string(got) != "abxy" {
		t.Fatalf("got %q", got)
	}
}

func TestMaxCodeLengthRespected(t *testing.T) {
	var hist [alphabetSize]uint64
	// A strongly skewed distribution that would need >12 bits per
	// symbol under an unbounded Huffman tree.
	weight := uint64(1)
	for s := 0; s < 200; s++ {
		hist[s] = weight
		weight *= 2
		if weight > 1<<40 {
			weight = 1 << 40
		}
	}
	c := New()
	if err := c.MergeHistogram(hist); err != nil {
		t.Fatalf("MergeHistogram: %v", err)
	}
	if err := c.Build(false); err != nil {
		t.Fatalf("Build(false): %v", err)
	}
	for sym := 0; sym < 200; sym++ {
		if l := c.CodeLength(byte(sym)); l == 0 || l > MaxCodeLen {
			t.Fatalf("symbol %d has length %d, want 1..%d", sym, l, MaxCodeLen)
		}
	}
}

func TestLiteralFallbackOnIncompressibleInput(t *testing.T) {
	hist := map[byte]uint64{'a': 1, 'b': 1}
	c := buildFromHistogram(t, hist, true)
	input := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	bits, nBits, err := c.Encode(input)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if nBits != 8*(len(input)+1) {
		t.Fatalf("nBits = %d, want literal-fallback size", nBits)
	}
	if bits[0] != literalMarker {
		t.Fatalf("bits[0] = %#x, want literal marker", bits[0])
	}
	out, err := c.Decode(bits, nBits, len(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("got %v want %v", out, input)
	}
}

func TestEmptyInputRoundTrips(t *testing.T) {
	c := buildFromHistogram(t, map[byte]uint64{'a': 5}, false)
	got := roundTrip(t, c, nil)
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	c := buildFromHistogram(t, map[byte]uint64{'a': 60, 'b': 30, 'c': 10}, true)
	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(data) > MaxSerializedSize {
		t.Fatalf("serialized size %d exceeds MaxSerializedSize %d", len(data), MaxSerializedSize)
	}
	c2, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	got := roundTrip(t, c2, []byte("abxycab"))
	if string(got) != "abxycab" {
		t.Fatalf("got %q", got)
	}
}

func TestAddSampleAfterCodedIsRejected(t *testing.T) {
	c := buildFromHistogram(t, map[byte]uint64{'a': 1, 'b': 1}, false)
	if err := c.AddSample([]byte("c")); err != ErrCoded {
		t.Fatalf("AddSample after Build: got %v, want ErrCoded", err)
	}
}

func TestBuildEmptyHistogramFails(t *testing.T) {
	c := New()
	if err := c.Build(false); err != ErrEmptyHistogram {
		t.Fatalf("Build on empty: got %v, want ErrEmptyHistogram", err)
	}
}

func TestMergeHistogram(t *testing.T) {
	a := New()
	if err := a.AddSample([]byte("aaa")); err != nil {
		t.Fatal(err)
	}
	b := New()
	if err := b.AddSample([]byte("bbb")); err != nil {
		t.Fatal(err)
	}
	if err := a.MergeHistogram(b.Histogram()); err != nil {
		t.Fatal(err)
	}
	if err := a.Build(false); err != nil {
		t.Fatal(err)
	}
	got := roundTrip(t, a, []byte("ababab"))
	if string(got) != "ababab" {
		t.Fatalf("got %q", got)
	}
}
