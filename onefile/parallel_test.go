package onefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solidcoredata/one/schema"
)

// S6: 4 sibling writers each emit 1000 object records of type A; the
// combined file has exactly 4000 objects, the object index is strictly
// increasing, and sequential read yields sibling 0's 1000 records, then
// sibling 1's, and so on.
func TestParallelWriterFanOut(t *testing.T) {
	s, err := schema.ParseText("P 3 tst\nO A 1 3 INT\n")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.tst")
	const nSiblings = 4
	const perSibling = 1000

	pw, err := CreateParallel(path, s, "tst", WriteConfig{NThreads: nSiblings})
	if err != nil {
		t.Fatalf("CreateParallel: %v", err)
	}
	if pw.NumSiblings() != nSiblings {
		t.Fatalf("NumSiblings = %d, want %d", pw.NumSiblings(), nSiblings)
	}

	errCh := make(chan error, nSiblings)
	for i := 0; i < nSiblings; i++ {
		i := i
		go func() {
			w := pw.Writer(i)
			for j := 0; j < perSibling; j++ {
				rec, err := w.NewRecord('A')
				if err != nil {
					errCh <- err
					return
				}
				if err := rec.SetInt(0, int64(i*perSibling+j)); err != nil {
					errCh <- err
					return
				}
				if err := w.WriteRecord(rec); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}()
	}
	for i := 0; i < nSiblings; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("sibling write: %v", err)
		}
	}

	if err := pw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}

	r, err := Open(path, s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.NumObjects() != nSiblings*perSibling {
		t.Fatalf("NumObjects = %d, want %d", r.NumObjects(), nSiblings*perSibling)
	}

	var prevOffset int64 = -1
	var want int64
	for i := 0; i < nSiblings; i++ {
		for j := 0; j < perSibling; j++ {
			rec, err := r.ReadRecord()
			if err != nil {
				t.Fatalf("ReadRecord(sibling %d, record %d): %v", i, j, err)
			}
			v, err := rec.Int(0)
			if err != nil {
				t.Fatalf("Int: %v", err)
			}
			if v != want {
				t.Fatalf("record value = %d, want %d (sequential read must preserve sibling order)", v, want)
			}
			want++
		}
	}

	for i := int64(0); i < int64(nSiblings*perSibling); i++ {
		off := r.objectIndex[i]
		if off <= prevOffset {
			t.Fatalf("object index not strictly increasing at %d: %d <= %d", i, off, prevOffset)
		}
		prevOffset = off
	}

	if err := r.GotoObject(int64(nSiblings*perSibling) - 1); err != nil {
		t.Fatalf("GotoObject(last): %v", err)
	}
	last, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("ReadRecord(last): %v", err)
	}
	v, _ := last.Int(0)
	if v != int64(nSiblings*perSibling-1) {
		t.Fatalf("last object value = %d, want %d", v, nSiblings*perSibling-1)
	}
}
