package onefile

// GotoObject repositions the reader so the next ReadRecord call returns
// object i (0-based), using the footer's object index. Only binary
// files carry one; ASCII files and binary files written with no object
// type both report IndexError.
func (r *Reader) GotoObject(i int64) error {
	if !r.binary {
		return &IndexError{Msg: "ASCII files are not indexed"}
	}
	if r.ft.ObjectCh == 0 || r.objectIndex == nil {
		return &IndexError{Msg: "file has no object index"}
	}
	if i < 0 || i >= int64(len(r.objectIndex)) {
		return &IndexError{Msg: "object index out of range"}
	}
	if err := r.seekBody(r.objectIndex[i]); err != nil {
		return err
	}
	r.objectOrdinal = i
	return nil
}

// GotoGroup repositions the reader to the first object of group i
// (0-based) and returns the group's width (its object count), using the
// footer's group index: groupIndex[i] is the object ordinal group i
// starts at, and groupIndex[i+1] (the next group's start, or the
// trailing sentinel equal to the file's total object count for the
// last group) bounds it. A group with zero objects legally returns a
// width of 0.
func (r *Reader) GotoGroup(i int64) (int64, error) {
	if !r.binary {
		return 0, &IndexError{Msg: "ASCII files are not indexed"}
	}
	if r.ft.GroupCh == 0 || r.groupIndex == nil {
		return 0, &IndexError{Msg: "file has no group index"}
	}
	if i < 0 || i+1 >= int64(len(r.groupIndex)) {
		return 0, &IndexError{Msg: "group index out of range"}
	}
	start := r.groupIndex[i]
	width := r.groupIndex[i+1] - start
	if width > 0 {
		if err := r.GotoObject(start); err != nil {
			return 0, err
		}
	}
	return width, nil
}

// NumObjects returns the number of objects recorded in the file's
// object index, or 0 if the file carries none (ASCII files, or binary
// files with no object type).
func (r *Reader) NumObjects() int { return len(r.objectIndex) }

// NumGroups returns the number of groups recorded in the file's group
// index (the index carries one extra trailing sentinel entry, which
// this excludes), or 0 if the file carries none.
func (r *Reader) NumGroups() int {
	if len(r.groupIndex) == 0 {
		return 0
	}
	return len(r.groupIndex) - 1
}
