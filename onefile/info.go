package onefile

import (
	"github.com/solidcoredata/one/dna2"
	"github.com/solidcoredata/one/huffman"
	"github.com/solidcoredata/one/schema"
)

// counts is the (count, max list length, total list length, group
// count, group total) tuple the spec tracks both as header-declared
// ("given") and as accumulated-while-processing ("accum") values.
type counts struct {
	count      int64
	max        int64
	total      int64
	groupCount int64
	groupTotal int64
}

// listCodec is satisfied by huffman.Codec (trained per line type) and
// by the fixed DNA 2-bit codec, letting onefile dispatch list
// compression without special-casing DNA.
type listCodec interface {
	Encode(data []byte) (payload []byte, nBits int, err error)
	Decode(payload []byte, nBits int, n int) ([]byte, error)
}

// dnaListCodec adapts dna2's pack/unpack functions to the listCodec
// interface. It needs no training and is never serialised; n is always
// the base count, not a byte count.
type dnaListCodec struct{}

func (dnaListCodec) Encode(data []byte) ([]byte, int, error) {
	return dna2.Pack(data), 2 * len(data), nil
}

func (dnaListCodec) Decode(payload []byte, nBits int, n int) ([]byte, error) {
	return dna2.Unpack(payload, n), nil
}

var dnaCodec listCodec = dnaListCodec{}

// lineInfo is the per-line-type state described in spec §3: the schema
// line type it belongs to, given/accum counters, group-start markers,
// a reusable record buffer, and (for compressible list fields) training
// and codec state.
type lineInfo struct {
	lt *schema.LineType

	given counts
	accum counts

	// groupStart is not set or read by any code path; group counts
	// are kept in accum.groupCount/accum.groupTotal.
	groupStart counts

	rec *Record

	// codec/useCodec are set for a DNA list field (the fixed 2-bit
	// codec) and for a STRING list field once its Huffman codec is
	// active; trainedBytes and huffman apply to STRING list fields only.
	codec        listCodec
	useCodec     bool
	trainedBytes int64
	huffman      *huffman.Codec // non-nil iff this line type trains a Huffman codec
}

func newLineInfo(lt *schema.LineType) *lineInfo {
	li := &lineInfo{lt: lt, rec: newRecord(lt)}
	idx := lt.ListFieldIndex()
	if idx >= 0 {
		switch lt.Fields[idx] {
		case schema.DNA:
			li.codec = dnaCodec
			li.useCodec = true
		case schema.String:
			li.huffman = huffman.New()
		}
	}
	return li
}

// isCompressibleByteList reports whether this line type's list field is
// a byte sequence eligible for Huffman training (STRING only; DNA uses
// its own fixed codec and never trains).
func (li *lineInfo) isCompressibleByteList() bool {
	return li.huffman != nil
}

// recordOne updates accum counters for one record of this line type
// with the given list length (0 for non-list line types). Group counts
// are not touched here.
func (li *lineInfo) recordOne(listLen int) {
	li.accum.count++
	if li.lt.ListFieldIndex() >= 0 {
		n := int64(listLen)
		li.accum.total += n
		if n > li.accum.max {
			li.accum.max = n
		}
	}
}
