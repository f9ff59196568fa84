package schema

import (
	"fmt"
	"io"
)

// Write emits s in canonical schema text form: each block as a P line,
// its secondary names as S lines, then its line types in SortedChars
// order (group, lower-case, object, upper-case) as O/G/D lines.
func (s *Schema) Write(w io.Writer) error {
	for _, ft := range s.Blocks {
		if err := ft.writeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (ft *FileType) writeTo(w io.Writer) error {
	if err := writeDirective(w, "P", ft.Primary); err != nil {
		return err
	}
	for _, s := range ft.Secondary {
		if err := writeDirective(w, "S", s); err != nil {
			return err
		}
	}
	for _, c := range ft.SortedChars() {
		lt := ft.LineTypes[c]
		directive := "D"
		switch c {
		case ft.ObjectCh:
			directive = "O"
		case ft.GroupCh:
			directive = "G"
		}
		if err := writeLineTypeDirective(w, directive, lt); err != nil {
			return err
		}
	}
	return nil
}

func writeDirective(w io.Writer, directive, name string) error {
	_, err := fmt.Fprintf(w, "%s %d %s\n", directive, len(name), name)
	return err
}

func writeLineTypeDirective(w io.Writer, directive string, lt *LineType) error {
	if _, err := fmt.Fprintf(w, "%s %c %d", directive, lt.Char, len(lt.Fields)); err != nil {
		return err
	}
	for _, k := range lt.Fields {
		name := k.String()
		if _, err := fmt.Fprintf(w, " %d %s", len(name), name); err != nil {
			return err
		}
	}
	if lt.Comment != "" {
		if _, err := fmt.Fprintf(w, " # %s", lt.Comment); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}
