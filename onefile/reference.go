package onefile

import "sync"

var (
	globalRefMu   sync.RWMutex
	globalRefPath string
)

// SetGlobalReferencePath records a reference-file path for an external
// CRAM-ingest collaborator to pick up. The container itself never reads
// or dereferences this value; it is pure passthrough state for code
// outside this package's scope.
func SetGlobalReferencePath(path string) {
	globalRefMu.Lock()
	defer globalRefMu.Unlock()
	globalRefPath = path
}

// GlobalReferencePath returns the path last set by
// SetGlobalReferencePath, or "" if none has been set.
func GlobalReferencePath() string {
	globalRefMu.RLock()
	defer globalRefMu.RUnlock()
	return globalRefPath
}
