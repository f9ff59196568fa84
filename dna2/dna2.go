// Package dna2 implements the fixed 2-bit nucleotide codec: each of
// {a,c,g,t} packs into 2 bits, four bases per byte, least-significant
// pair first. Any other input byte packs as 'a' (code 0). This codec
// takes no training data and is never serialized; the container treats
// it as a distinguished, always-available listCodec for DNA-typed list
// fields.
package dna2

// code maps a base byte to its 2-bit value; unrecognised bytes map to 0
// ('a'), per the spec's "any other byte maps to 0" rule.
func code(b byte) byte {
	switch b {
	case 'a', 'A':
		return 0
	case 'c', 'C':
		return 1
	case 'g', 'G':
		return 2
	case 't', 'T':
		return 3
	default:
		return 0
	}
}

var baseLetter = [4]byte{'a', 'c', 'g', 't'}

// Pack encodes seq into ceil(len(seq)/4) bytes, four bases per byte,
// least significant 2 bits first.
func Pack(seq []byte) []byte {
	out := make([]byte, (len(seq)+3)/4)
	for i, b := range seq {
		out[i/4] |= code(b) << uint(2*(i%4))
	}
	return out
}

// Unpack decodes n bases from packed, returning lower-case letters.
func Unpack(packed []byte, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		v := (packed[i/4] >> uint(2*(i%4))) & 0x3
		out[i] = baseLetter[v]
	}
	return out
}

// complementCode maps a 2-bit base code to its complement: a<->t,
// c<->g. Both pairs are symmetric under XOR with 3 (0b11).
func complementCode(v byte) byte { return v ^ 0x3 }

// ReverseComplementPacked returns the packed form of the reverse
// complement of the n bases in packed, without materialising the
// unpacked byte sequence.
func ReverseComplementPacked(packed []byte, n int) []byte {
	out := make([]byte, (n+3)/4)
	for i := 0; i < n; i++ {
		v := (packed[i/4] >> uint(2*(i%4))) & 0x3
		rv := complementCode(v)
		j := n - 1 - i
		out[j/4] |= rv << uint(2*(j%4))
	}
	return out
}

// ReverseComplement returns the reverse complement of an unpacked base
// sequence, treating any non-acgt byte as 'a' exactly as Pack does.
func ReverseComplement(seq []byte) []byte {
	return Unpack(ReverseComplementPacked(Pack(seq), len(seq)), len(seq))
}
