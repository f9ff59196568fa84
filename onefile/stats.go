package onefile

import "github.com/solidcoredata/one/schema"

// LineStats summarises one line type's header-declared and
// while-open-accumulated counts, for callers (the reference CLI in
// particular) that report on a file without reaching into the
// container's internal per-line-type state.
type LineStats struct {
	Char       byte
	GivenCount int64
	Count      int64
	Max        int64
	Total      int64
	GroupCount int64
	GroupTotal int64
}

// Primary is the file's primary type name (the `1` header line's type).
func (b *base) Primary() string { return b.primary }

// Subtype is the file's optional `2` header line subtype, or "".
func (b *base) Subtype() string { return b.subtype }

// Major and Minor are the file's declared version.
func (b *base) Major() int { return b.ver.Major }
func (b *base) Minor() int { return b.ver.Minor }

// IsBinary reports whether this file is (or, for a writer, will be)
// encoded in binary form.
func (b *base) IsBinary() bool { return b.binary }

// BigEndian reports the producer endianness recorded in a binary
// file's `$` marker. Meaningless for ASCII files.
func (b *base) BigEndian() bool { return b.bigEndian }

// Provenance, References, Deferred and HeaderText return copies of the
// header metadata accumulated so far (read from the file, or queued by
// AddProvenance/AddReference/AddDeferred/SetHeaderText on a writer).
func (b *base) Provenance() []Provenance { return append([]Provenance(nil), b.provenance...) }
func (b *base) References() []Reference  { return append([]Reference(nil), b.references...) }
func (b *base) Deferred() []Deferred     { return append([]Deferred(nil), b.deferred...) }
func (b *base) HeaderText() string       { return string(b.headerText) }

// FileType is the schema file type this file's line types are drawn
// from, in canonical export order per schema.FileType.SortedChars.
func (b *base) FileType() *schema.FileType { return b.ft }

// Stats reports every known line type's counts, in canonical schema
// order (see FileType.SortedChars).
func (b *base) Stats() []LineStats {
	chars := b.ft.SortedChars()
	out := make([]LineStats, 0, len(chars))
	for _, c := range chars {
		li, ok := b.infos[c]
		if !ok {
			continue
		}
		out = append(out, LineStats{
			Char:       c,
			GivenCount: li.given.count,
			Count:      li.accum.count,
			Max:        li.accum.max,
			Total:      li.accum.total,
			GroupCount: li.accum.groupCount,
			GroupTotal: li.accum.groupTotal,
		})
	}
	return out
}
