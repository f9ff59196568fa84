// Package huffman implements a length-limited (<=12 bit) canonical
// Huffman codec over the 256-byte alphabet, with an optional escape
// symbol for bytes absent from the training histogram and a literal
// fallback for inputs that would not compress. Lengths are assigned with
// the package-merge (coin-collector) algorithm of Larmore & Hirschberg,
// the standard way to build an optimal prefix code under a hard length
// ceiling.
package huffman

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// MaxCodeLen is the hard ceiling on any assigned code length.
const MaxCodeLen = 12

// alphabetSize is the number of distinct byte values; the escape
// symbol, when there is one, is one of these byte values.
const alphabetSize = 256

// State is the lifecycle stage of a Codec, per the container spec:
// Empty (freshly constructed), Filled (samples added, no table yet),
// or Coded (a code table exists and the histogram is frozen).
type State int

const (
	Empty State = iota
	Filled
	Coded
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Filled:
		return "filled"
	case Coded:
		return "coded"
	default:
		return "invalid"
	}
}

var (
	// ErrCoded is returned when a histogram mutation is attempted on a
	// Codec that has already built its code table.
	ErrCoded = errors.New("huffman: histogram is frozen once coded")
	// ErrEmptyHistogram is returned by Build when no symbol has ever
	// been observed and partial is false (nothing to escape with).
	ErrEmptyHistogram = errors.New("huffman: cannot build code from empty histogram")
	// ErrNotCoded is returned by Encode/Decode/Serialize on a Codec with
	// no code table.
	ErrNotCoded = errors.New("huffman: codec has no code table")
	// ErrMalformedWire is returned by Deserialize on truncated or
	// internally inconsistent wire data.
	ErrMalformedWire = errors.New("huffman: malformed serialized codec")
)

// Codec is a length-limited Huffman codec for a 256-symbol alphabet.
type Codec struct {
	state State
	hist  [alphabetSize]uint64

	length [alphabetSize]uint8  // 0 = symbol has no assigned code
	code   [alphabetSize]uint16 // canonical code value, valid if length>0

	escapeSym int32 // -1 if no escape symbol in this codec
	escapeLen int32 // 0 if no escape symbol

	bigEndian bool // endianness of the machine that built this codec
}

// New returns an empty Codec with a zeroed histogram.
func New() *Codec {
	return &Codec{state: Empty, escapeSym: -1, bigEndian: nativeBigEndian()}
}

// State reports the codec's current lifecycle stage.
func (c *Codec) State() State { return c.state }

// AddSample folds the bytes in data into the histogram. It is a logic
// error to call this once the codec is Coded.
func (c *Codec) AddSample(data []byte) error {
	if c.state == Coded {
		return ErrCoded
	}
	for _, b := range data {
		c.hist[b]++
	}
	if c.state == Empty {
		c.state = Filled
	}
	return nil
}

// MergeHistogram adds another codec's (or a bare histogram's) counts
// into this one. It is a logic error to call this once the codec is
// Coded.
func (c *Codec) MergeHistogram(other [alphabetSize]uint64) error {
	if c.state == Coded {
		return ErrCoded
	}
	nonZero := false
	for i, v := range other {
		if v > 0 {
			c.hist[i] += v
			nonZero = true
		}
	}
	if nonZero && c.state == Empty {
		c.state = Filled
	}
	return nil
}

// Histogram returns a copy of the accumulated byte histogram.
func (c *Codec) Histogram() [alphabetSize]uint64 { return c.hist }

type leaf struct {
	weight uint64
	leaves []int // sorted, disjoint symbol indices contained in this node
}

// Build constructs the code table using the package-merge algorithm. If
// partial is true and at least one symbol has a zero count, one such
// symbol is reserved as an escape code: any symbol the table could not
// otherwise assign a length to is emitted as the escape code followed
// by the literal byte.
func (c *Codec) Build(partial bool) error {
	if c.state == Coded {
		return ErrCoded
	}

	var present []int
	for s := 0; s < alphabetSize; s++ {
		if c.hist[s] > 0 {
			present = append(present, s)
		}
	}

	escapeSym := -1
	if partial {
		for s := 0; s < alphabetSize; s++ {
			if c.hist[s] == 0 {
				escapeSym = s
				break
			}
		}
	}

	if len(present) == 0 && escapeSym < 0 {
		return ErrEmptyHistogram
	}

	leaves := make([]leaf, 0, len(present)+1)
	for _, s := range present {
		leaves = append(leaves, leaf{weight: c.hist[s], leaves: []int{s}})
	}
	if escapeSym >= 0 {
		// Escape code must be assignable even though it was never
		// observed; give it a nominal weight of 1.
		leaves = append(leaves, leaf{weight: 1, leaves: []int{escapeSym}})
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].weight < leaves[j].weight })

	lengths := packageMergeLengths(leaves, MaxCodeLen)

	var length [alphabetSize]uint8
	for sym, l := range lengths {
		length[sym] = uint8(l)
	}

	code := assignCanonicalCodes(length[:])

	c.length = length
	c.code = code
	c.escapeSym = int32(escapeSym)
	if escapeSym >= 0 {
		c.escapeLen = int32(length[escapeSym])
	} else {
		c.escapeLen = 0
	}
	c.state = Coded
	return nil
}

// packageMergeLengths runs the Larmore-Hirschberg package-merge
// algorithm over leaves (sorted ascending by weight, symbol sets
// disjoint and covering exactly the alphabet to be coded) and returns a
// map from symbol index to assigned code length, each <= maxLen.
func packageMergeLengths(leaves []leaf, maxLen int) map[int]int {
	n := len(leaves)
	lengths := make(map[int]int, n)
	if n == 0 {
		return lengths
	}
	if n == 1 {
		lengths[leaves[0].leaves[0]] = 1
		return lengths
	}

	// prev starts as Type(1) (the raw leaf list, zero merges done); each
	// iteration advances it to Type(level+1). maxLen-1 iterations are
	// needed to reach Type(maxLen), the list the final 2n-2 selection
	// must be drawn from — one fewer than the leaf count would suggest,
	// since a maxLen-th merge would overshoot to Type(maxLen+1) and can
	// assign a length one past the requested ceiling.
	items := leaves
	prev := items
	for level := 1; level < maxLen; level++ {
		packages := make([]leaf, 0, len(prev)/2)
		for i := 0; i+1 < len(prev); i += 2 {
			packages = append(packages, leaf{
				weight: prev[i].weight + prev[i+1].weight,
				leaves: unionLeaves(prev[i].leaves, prev[i+1].leaves),
			})
		}
		prev = mergeByWeight(items, packages)
	}

	// Selecting the first 2n-2 nodes of the final merged list and
	// tallying, per symbol, how many selected nodes contain it yields
	// the length-limited optimal code lengths.
	take := 2*n - 2
	if take > len(prev) {
		take = len(prev)
	}
	for _, node := range prev[:take] {
		for _, sym := range node.leaves {
			lengths[sym]++
		}
	}
	return lengths
}

func unionLeaves(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func mergeByWeight(a, b []leaf) []leaf {
	out := make([]leaf, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].weight <= b[j].weight {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// assignCanonicalCodes assigns canonical Huffman code values given a
// per-symbol length array (0 = unused), using the standard RFC
// 1951-style ascending-length pass.
func assignCanonicalCodes(length []uint8) [alphabetSize]uint16 {
	var counts [MaxCodeLen + 1]int
	for _, l := range length {
		if l > 0 {
			counts[l]++
		}
	}
	var nextCode [MaxCodeLen + 1]int
	code := 0
	for l := 1; l <= MaxCodeLen; l++ {
		code = (code + counts[l-1]) << 1
		nextCode[l] = code
	}
	var out [alphabetSize]uint16
	for sym, l := range length {
		if l > 0 {
			out[sym] = uint16(nextCode[l])
			nextCode[l]++
		}
	}
	return out
}

// CodeLength reports the assigned code length for sym, or 0 if none.
func (c *Codec) CodeLength(sym byte) int { return int(c.length[sym]) }

func nativeBigEndian() bool {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] == 0
}

// requireCoded confirms a codec is in a state where Encode, Decode and
// Serialize are legal.
func (c *Codec) requireCoded() error {
	if c.state != Coded {
		return fmt.Errorf("%w: state=%s", ErrNotCoded, c.state)
	}
	return nil
}
