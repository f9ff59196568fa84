package onefile

import "github.com/solidcoredata/one/schema"

// Provenance records one `!` line: a tool invocation that produced or
// touched this file.
type Provenance struct {
	Program string
	Version string
	Command string
	Date    string
}

// Reference records one `<` line: an input file this file's records
// were derived from.
type Reference struct {
	Filename string
	Count    int64
}

// Deferred records one `>` line: an output file promised but not yet
// produced when this file was written.
type Deferred struct {
	Filename string
}

// version is the major/minor pair in the mandatory `1` header line.
type version struct {
	Major int
	Minor int
}

// CurrentMinor is the highest minor version this implementation writes
// and the highest it accepts for VersionError checking.
const CurrentMinor = 0

// base holds the state common to an open reader and an open writer: the
// schema in force, the per-line-type info table cloned from it, header
// metadata, and binary/endianness flags.
type base struct {
	path string

	ft    *schema.FileType
	infos map[byte]*lineInfo

	primary string
	subtype string
	ver     version

	provenance []Provenance
	references []Reference
	deferred   []Deferred
	headerText []byte

	binary    bool
	bigEndian bool // producer endianness for binary files

	objectIndex []int64 // absolute byte offsets, one per object record
	groupIndex  []int64 // object ordinal at each group boundary, plus final sentinel
}

func newBase(ft *schema.FileType, primary, subtype string) *base {
	b := &base{
		ft:      ft,
		infos:   make(map[byte]*lineInfo, len(ft.LineTypes)),
		primary: primary,
		subtype: subtype,
		ver:     version{Major: 1, Minor: CurrentMinor},
	}
	for c, lt := range ft.LineTypes {
		b.infos[c] = newLineInfo(lt)
	}
	return b
}

func (b *base) infoFor(c byte) (*lineInfo, bool) {
	li, ok := b.infos[c]
	return li, ok
}

// learnLineType adds a line type discovered from an inline `~` schema
// block mid-header, keeping opcodes consistent.
func (b *base) learnLineType(lt *schema.LineType) error {
	if err := b.ft.AddLineType(lt); err != nil {
		return err
	}
	if err := b.ft.AssignOpcodes(); err != nil {
		return err
	}
	b.infos[lt.Char] = newLineInfo(lt)
	return nil
}
