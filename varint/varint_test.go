package varint

import (
	"bufio"
	"bytes"
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []int64{
		0, 1, -1, 63, -64, 64, -65, 8191, -8192, 8192,
		math.MaxInt32, math.MinInt32,
		1 << 40, -(1 << 40),
		1 << 62, -((1 << 62) + 1),
		math.MaxInt64, math.MinInt64,
	}
	for _, x := range cases {
		enc := Encode(x)
		got, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%d): %v", x, err)
		}
		if got != x {
			t.Fatalf("Decode(Encode(%d)) = %d", x, got)
		}
		if n != len(enc) {
			t.Fatalf("Decode(%d) consumed %d, want %d", x, n, len(enc))
		}
	}
}

func TestMinimalWidth(t *testing.T) {
	tests := []struct {
		x    int64
		want int
	}{
		{0, 1}, {63, 1}, {-64, 1},
		{64, 2}, {-65, 3}, {8191, 2},
		{8192, 3}, {-8192, 3},
		{math.MaxInt64, 9}, {math.MinInt64, 9},
	}
	for _, tc := range tests {
		if n := len(Encode(tc.x)); n != tc.want {
			t.Errorf("len(Encode(%d)) = %d, want %d", tc.x, n, tc.want)
		}
	}
}

func TestReadFromStream(t *testing.T) {
	var buf bytes.Buffer
	values := []int64{0, -1, 63, -64, 8191, -8192, 1 << 40, math.MinInt64}
	for _, v := range values {
		buf.Write(Encode(v))
	}
	r := bufio.NewReader(&buf)
	for _, want := range values {
		got, err := Read(r)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got != want {
			t.Fatalf("Read() = %d, want %d", got, want)
		}
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	enc := Encode(1 << 40)
	if _, _, err := Decode(enc[:2]); err == nil {
		t.Fatal("expected error decoding truncated varint")
	}
}
