// Package schema parses and represents the line-type grammar that
// governs one container file: which single-character line types are
// legal, the ordered, typed field signature each carries, and which
// line type (if any) is the file's object or group type.
//
// Schemas are parsed from a small text directive language (P/S/O/G/D,
// see ParseText) whose own grammar is bootstrapped from the container's
// own ASCII field encodings (CHAR, INT, STRING, STRING_LIST) — the
// schema-of-schemas described in the container spec. Once built, a
// Schema is an immutable value; FileType.Clone gives each opened
// container file its own independent, mutable line-type-info table to
// populate.
package schema

import (
	"fmt"
	"sort"
)

// FieldKind is one of the eight typed field kinds a line type's field
// signature may be built from.
type FieldKind int

const (
	Int FieldKind = iota
	Real
	Char
	String
	DNA
	IntList
	RealList
	StringList
)

var fieldKindNames = [...]string{
	Int: "INT", Real: "REAL", Char: "CHAR", String: "STRING", DNA: "DNA",
	IntList: "INT_LIST", RealList: "REAL_LIST", StringList: "STRING_LIST",
}

func (k FieldKind) String() string {
	if int(k) < 0 || int(k) >= len(fieldKindNames) {
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
	return fieldKindNames[k]
}

// ParseFieldKind looks up a FieldKind by its schema-text name.
func ParseFieldKind(name string) (FieldKind, bool) {
	for k, n := range fieldKindNames {
		if n == name {
			return FieldKind(k), true
		}
	}
	return 0, false
}

// IsList reports whether a field of this kind carries a variable-length
// list payload (at most one such field is allowed per line type).
func (k FieldKind) IsList() bool {
	switch k {
	case String, DNA, IntList, RealList, StringList:
		return true
	default:
		return false
	}
}

// MaxFields is the hard ceiling on a line type's field signature length.
const MaxFields = 32

// Role distinguishes the at-most-one object type and at-most-one group
// type a file type may designate among its line types.
type Role int

const (
	RoleNone Role = iota
	RoleObject
	RoleGroup
)

// LineType describes one record shape: its character key, ordered field
// signature, optional documentation comment, and role (plain/object/
// group). Alphabetic characters (A-Z, a-z) are user record types;
// everything else is a reserved meta-record type (see ReservedOpcode).
type LineType struct {
	Char    byte
	Fields  []FieldKind
	Comment string
	Role    Role

	// Opcode is the 1-byte binary-encoding opcode assigned to this line
	// type (high bit always set). For alphabetic types the low bit
	// toggles to signal a Huffman-compressed list; AssignOpcodes fills
	// this in for the base (uncompressed) form.
	Opcode byte
}

// ListFieldIndex returns the index of the line type's single list field,
// or -1 if it has none.
func (lt *LineType) ListFieldIndex() int {
	for i, f := range lt.Fields {
		if f.IsList() {
			return i
		}
	}
	return -1
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// FileType is one filetype block of a schema: a primary type name, its
// secondary aliases, the set of line types it declares, and which (if
// any) are the object/group types.
type FileType struct {
	Primary   string
	Secondary []string
	LineTypes map[byte]*LineType
	ObjectCh  byte // 0 if no object type
	GroupCh   byte // 0 if no group type
	MaxFields int  // max(len(lt.Fields)) across LineTypes, for buffer presizing
}

// newFileType returns an empty FileType for primary.
func newFileType(primary string) *FileType {
	return &FileType{Primary: primary, LineTypes: make(map[byte]*LineType)}
}

// Matches reports whether name is this block's primary name or one of
// its secondary aliases.
func (ft *FileType) Matches(name string) bool {
	if ft.Primary == name {
		return true
	}
	for _, s := range ft.Secondary {
		if s == name {
			return true
		}
	}
	return false
}

// AddLineType registers lt on ft, validating field-count, list-field,
// and role constraints. Used both while parsing schema text and when a
// reader learns a new line type from a file's inline `~` schema block.
func (ft *FileType) AddLineType(lt *LineType) error {
	return ft.addLineType(lt)
}

func (ft *FileType) addLineType(lt *LineType) error {
	if !isAlpha(lt.Char) {
		if _, ok := reservedOpcode[lt.Char]; !ok {
			return &Error{Msg: fmt.Sprintf("line type %q is not alphabetic and not a recognised reserved type", string(lt.Char))}
		}
	}
	if _, dup := ft.LineTypes[lt.Char]; dup {
		return &Error{Msg: fmt.Sprintf("duplicate line type %q", string(lt.Char))}
	}
	if len(lt.Fields) > MaxFields {
		return &Error{Msg: fmt.Sprintf("line type %q has %d fields, max is %d", string(lt.Char), len(lt.Fields), MaxFields)}
	}
	listCount := 0
	for _, f := range lt.Fields {
		if f.IsList() {
			listCount++
		}
	}
	if listCount > 1 {
		return &Error{Msg: fmt.Sprintf("line type %q has %d list fields, at most one is allowed", string(lt.Char), listCount)}
	}
	switch lt.Role {
	case RoleObject:
		if ft.ObjectCh != 0 {
			return &Error{Msg: "object type redefined"}
		}
		ft.ObjectCh = lt.Char
	case RoleGroup:
		if len(lt.Fields) == 0 || lt.Fields[0] != Int {
			return &Error{Msg: fmt.Sprintf("group type %q must have INT as its first field", string(lt.Char))}
		}
		if ft.GroupCh != 0 {
			return &Error{Msg: "group type redefined"}
		}
		ft.GroupCh = lt.Char
	}
	ft.LineTypes[lt.Char] = lt
	if len(lt.Fields) > ft.MaxFields {
		ft.MaxFields = len(lt.Fields)
	}
	return nil
}

// Clone returns a deep copy of ft, suitable for one open file's
// independent, mutable line-type-info table to be built on top of.
func (ft *FileType) Clone() *FileType {
	out := newFileType(ft.Primary)
	out.Secondary = append([]string(nil), ft.Secondary...)
	out.ObjectCh = ft.ObjectCh
	out.GroupCh = ft.GroupCh
	out.MaxFields = ft.MaxFields
	for c, lt := range ft.LineTypes {
		cp := *lt
		cp.Fields = append([]FieldKind(nil), lt.Fields...)
		out.LineTypes[c] = &cp
	}
	return out
}

// SortedChars returns the line-type characters of ft in canonical export
// order: group type, lower-case record types (sorted), object type,
// upper-case record types (sorted).
func (ft *FileType) SortedChars() []byte {
	var lower, upper []byte
	for c := range ft.LineTypes {
		if c == ft.ObjectCh || c == ft.GroupCh {
			continue
		}
		if c >= 'a' && c <= 'z' {
			lower = append(lower, c)
		} else if c >= 'A' && c <= 'Z' {
			upper = append(upper, c)
		}
	}
	sort.Slice(lower, func(i, j int) bool { return lower[i] < lower[j] })
	sort.Slice(upper, func(i, j int) bool { return upper[i] < upper[j] })

	out := make([]byte, 0, len(ft.LineTypes))
	if ft.GroupCh != 0 {
		out = append(out, ft.GroupCh)
	}
	out = append(out, lower...)
	if ft.ObjectCh != 0 {
		out = append(out, ft.ObjectCh)
	}
	out = append(out, upper...)
	return out
}

// Schema is a chained sequence of filetype blocks, as produced by
// parsing one schema text (possibly declaring several P blocks) or by
// FromTypeHint.
type Schema struct {
	Blocks []*FileType
}

// ForType returns the block whose primary name or secondary alias
// matches name.
func (s *Schema) ForType(name string) (*FileType, bool) {
	for _, b := range s.Blocks {
		if b.Matches(name) {
			return b, true
		}
	}
	return nil, false
}

// FromTypeHint returns a schema with a single block for (primary,
// subtype) and no user line types, used when a binary file's body must
// be interpreted purely from its own inline `~` schema lines.
func FromTypeHint(primary, subtype string) *Schema {
	ft := newFileType(primary)
	if subtype != "" {
		ft.Secondary = []string{subtype}
	}
	return &Schema{Blocks: []*FileType{ft}}
}

// Error is a malformed-schema error: duplicate line type, non-alphabetic
// user line type, object/group redefinition, or a parse failure, per the
// SchemaError category of the container error taxonomy.
type Error struct {
	Line int // 1-based; 0 if not line-specific
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema: line %d: %s", e.Line, e.Msg)
	}
	return "schema: " + e.Msg
}
