package onefile

import "fmt"

// The container's error taxonomy. Each category wraps a common
// positional context (file path, line number where applicable) so a
// caller or the reference CLI can report a precise diagnostic without
// re-deriving it.

// OpenError signals that a file could not be opened as a recognised
// container: missing, empty, or not beginning with a valid `1` line.
type OpenError struct {
	Path string
	Msg  string
}

func (e *OpenError) Error() string { return fmt.Sprintf("%s: open: %s", e.Path, e.Msg) }

// VersionError signals an incompatible major version or a minor version
// newer than this reader supports.
type VersionError struct {
	Path               string
	Major, Minor       int
	WantMajor, MaxMinor int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: version %d.%d incompatible with reader (major %d, max minor %d)",
		e.Path, e.Major, e.Minor, e.WantMajor, e.MaxMinor)
}

// EndianError signals a binary file whose producer endianness the
// reader cannot reconcile.
type EndianError struct {
	Path string
	Msg  string
}

func (e *EndianError) Error() string { return fmt.Sprintf("%s: endian: %s", e.Path, e.Msg) }

// SchemaMismatch signals that a caller-supplied schema is incompatible
// with the file's own schema.
type SchemaMismatch struct {
	Path   string
	Reason string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("%s: schema mismatch: %s", e.Path, e.Reason)
}

// ParseError signals a malformed ASCII record.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: parse error: %s", e.Path, e.Line, e.Msg)
}

// BinaryError signals a bad opcode, inconsistent list length, or
// truncated compressed payload in binary decoding.
type BinaryError struct {
	Path string
	Msg  string
}

func (e *BinaryError) Error() string { return fmt.Sprintf("%s: binary: %s", e.Path, e.Msg) }

// IndexError signals a goto on an unindexed file or an out-of-range
// index; recoverable, not fatal.
type IndexError struct {
	Msg string
}

func (e *IndexError) Error() string { return "index: " + e.Msg }

// WriteError signals a short write, a write after finalise, or
// provenance/reference additions attempted after the header was
// emitted.
type WriteError struct {
	Path string
	Msg  string
}

func (e *WriteError) Error() string { return fmt.Sprintf("%s: write: %s", e.Path, e.Msg) }

// LogicError signals a caller-side contract violation: an accessor
// invoked for the wrong field kind, or an operation invoked in the
// wrong reader/writer state.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string { return "logic error: " + e.Msg }
