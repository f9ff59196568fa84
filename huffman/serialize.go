package huffman

import (
	"encoding/binary"
)

// MaxSerializedSize bounds Serialize's output: 1 endian byte + two
// 32-bit integers + 256 * (1 length byte + up to 1 16-bit code).
const MaxSerializedSize = 1 + 4 + 4 + alphabetSize*(1+2)

// Serialize writes the codec's code table (not its histogram, which is
// discarded once Coded) in the on-disk format from the container spec:
// one endian flag byte, two 32-bit integers (escape symbol, escape
// length), then per symbol a length byte and, if that symbol has a
// code or is the escape symbol, a 16-bit code value.
func (c *Codec) Serialize() ([]byte, error) {
	if err := c.requireCoded(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, MaxSerializedSize)
	if c.bigEndian {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var tmp [4]byte
	order := byteOrder(c.bigEndian)
	order.PutUint32(tmp[:], uint32(c.escapeSym))
	buf = append(buf, tmp[:]...)
	order.PutUint32(tmp[:], uint32(c.escapeLen))
	buf = append(buf, tmp[:]...)

	for sym := 0; sym < alphabetSize; sym++ {
		buf = append(buf, c.length[sym])
		if c.length[sym] > 0 || int32(sym) == c.escapeSym {
			var tmp2 [2]byte
			order.PutUint16(tmp2[:], c.code[sym])
			buf = append(buf, tmp2[:]...)
		}
	}
	return buf, nil
}

// Deserialize reconstructs a Codec's code table from bytes written by
// Serialize. If the serialized endianness differs from this machine's,
// the multi-byte header fields and per-symbol code values are
// byte-flipped on load so the in-memory table is always host-native.
func Deserialize(data []byte) (*Codec, error) {
	if len(data) < 9 {
		return nil, ErrMalformedWire
	}
	srcBigEndian := data[0] != 0
	order := byteOrder(srcBigEndian)

	c := &Codec{state: Coded, bigEndian: nativeBigEndian()}
	escapeSym := int32(order.Uint32(data[1:5]))
	escapeLen := int32(order.Uint32(data[5:9]))
	c.escapeSym = escapeSym
	c.escapeLen = escapeLen

	off := 9
	for sym := 0; sym < alphabetSize; sym++ {
		if off >= len(data) {
			return nil, ErrMalformedWire
		}
		l := data[off]
		off++
		c.length[sym] = l
		if l > 0 || int32(sym) == escapeSym {
			if off+2 > len(data) {
				return nil, ErrMalformedWire
			}
			c.code[sym] = order.Uint16(data[off : off+2])
			off += 2
		}
	}
	return c, nil
}

// FlipPayload byte-flips each 64-bit word of a compressed list payload
// in place. Callers invoke this when a binary file's producer
// endianness (recorded in its `$` marker) differs from the reader's.
func FlipPayload(payload []byte) {
	n := len(payload) - len(payload)%8
	for i := 0; i < n; i += 8 {
		for j := 0; j < 4; j++ {
			payload[i+j], payload[i+7-j] = payload[i+7-j], payload[i+j]
		}
	}
}

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// BigEndian reports the endianness recorded for this codec (the
// machine that built it), for diagnostics.
func (c *Codec) BigEndian() bool { return c.bigEndian }
