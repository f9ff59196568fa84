package huffman

import "errors"

// literalMarker is the sentinel first byte of a literal-fallback
// payload: the encoder emits it whenever the Huffman-coded form would
// be larger than the uncompressed input.
const literalMarker = 0xFF

// ErrTruncatedPayload is returned by Decode when nBits/nBytes disagree
// with the length of bits.
var ErrTruncatedPayload = errors.New("huffman: truncated compressed payload")

// Encode compresses data and returns the packed bit buffer and the
// number of significant bits within it. If the coded form would be
// larger than the input, Encode instead returns a literal-fallback
// buffer: a 0xFF marker byte followed by the input verbatim.
func (c *Codec) Encode(data []byte) (bits []byte, nBits int, err error) {
	if err := c.requireCoded(); err != nil {
		return nil, 0, err
	}

	bw := &bitWriter{}
	ok := true
	for _, b := range data {
		l := c.length[b]
		if l == 0 || int32(b) == c.escapeSym {
			if c.escapeSym < 0 {
				ok = false
				break
			}
			bw.writeBits(uint32(c.code[c.escapeSym]), int(c.length[c.escapeSym]))
			bw.writeBits(uint32(b), 8)
			continue
		}
		bw.writeBits(uint32(c.code[b]), int(l))
	}

	if ok && bw.nbitsTotal() <= 8*len(data) {
		return bw.bytes(), bw.nbitsTotal(), nil
	}

	out := make([]byte, 0, len(data)+1)
	out = append(out, literalMarker)
	out = append(out, data...)
	return out, 8 * len(out), nil
}

// Decode reverses Encode, given the exact (bits, nBits) pair Encode
// produced and the expected decompressed length nBytes (the container
// always knows this from the record's own list-length field).
func (c *Codec) Decode(bits []byte, nBits int, nBytes int) ([]byte, error) {
	if err := c.requireCoded(); err != nil {
		return nil, err
	}
	if nBytes == 0 {
		return nil, nil
	}
	if nBits == 8*(nBytes+1) {
		if len(bits) < nBytes+1 || bits[0] != literalMarker {
			return nil, ErrTruncatedPayload
		}
		out := make([]byte, nBytes)
		copy(out, bits[1:1+nBytes])
		return out, nil
	}

	table := c.decodeTable()
	br := newBitReader(bits)
	out := make([]byte, 0, nBytes)
	budget := nBits
	for len(out) < nBytes {
		if budget <= 0 {
			return nil, ErrTruncatedPayload
		}
		peekLen := MaxCodeLen
		if budget < peekLen {
			peekLen = budget
		}
		idx := br.peek(MaxCodeLen)
		e := table[idx]
		if e.length == 0 || int(e.length) > budget {
			return nil, ErrTruncatedPayload
		}
		br.skip(int(e.length))
		budget -= int(e.length)
		_ = peekLen
		if int32(e.symbol) == c.escapeSym {
			if budget < 8 {
				return nil, ErrTruncatedPayload
			}
			lit, err := br.readBits(8)
			if err != nil {
				return nil, ErrTruncatedPayload
			}
			budget -= 8
			out = append(out, byte(lit))
			continue
		}
		out = append(out, e.symbol)
	}
	return out, nil
}

type tableEntry struct {
	symbol byte
	length uint8
}

// decodeTable builds a full 2^MaxCodeLen lookup table mapping a
// MSB-aligned MaxCodeLen-bit window to the symbol whose code prefixes
// it, and that code's length.
func (c *Codec) decodeTable() []tableEntry {
	table := make([]tableEntry, 1<<MaxCodeLen)
	for sym := 0; sym < alphabetSize; sym++ {
		l := c.length[sym]
		if l == 0 {
			continue
		}
		shift := uint(MaxCodeLen) - uint(l)
		base := int(c.code[sym]) << shift
		span := 1 << shift
		for i := 0; i < span; i++ {
			table[base+i] = tableEntry{symbol: byte(sym), length: l}
		}
	}
	return table
}
