package schema

import "fmt"

// Compatible reports whether a file already carrying schema `have` can
// be opened for append/validation against schema `want`: every line
// type `want` declares that `have` also declares must carry exactly the
// same field signature and role. `have` is allowed to declare
// additional line types `want` doesn't know about (forward
// compatibility with newer producers). On mismatch it returns false and
// a human-readable reason.
func Compatible(have, want *FileType) (bool, string) {
	for c, wlt := range want.LineTypes {
		hlt, ok := have.LineTypes[c]
		if !ok {
			continue
		}
		if len(hlt.Fields) != len(wlt.Fields) {
			return false, fmt.Sprintf("line type %q field count differs: %d vs %d", string(c), len(hlt.Fields), len(wlt.Fields))
		}
		for i := range hlt.Fields {
			if hlt.Fields[i] != wlt.Fields[i] {
				return false, fmt.Sprintf("line type %q field %d differs: %s vs %s", string(c), i, hlt.Fields[i], wlt.Fields[i])
			}
		}
		if wlt.Role != RoleNone && wlt.Role != hlt.Role {
			return false, fmt.Sprintf("line type %q role differs", string(c))
		}
	}
	if want.ObjectCh != 0 && have.ObjectCh != want.ObjectCh {
		return false, "object line type differs"
	}
	if want.GroupCh != 0 && have.GroupCh != want.GroupCh {
		return false, "group line type differs"
	}
	return true, ""
}
