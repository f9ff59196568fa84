package onefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/solidcoredata/one/huffman"
	"github.com/solidcoredata/one/internal/start"
	"github.com/solidcoredata/one/schema"
)

// trainCoordinator folds one line type's list bytes into a shared
// training state, in place of a standalone writer's own lineInfo.train.
type trainCoordinator interface {
	train(ch byte, li *lineInfo, data []byte) error
}

// ParallelWriter coordinates n sibling Writer handles for binary
// output, per spec §5: each sibling writes its own binary body to an
// independent temporary file, sharing nothing mutable with the primary
// except the two coordination mutexes this type owns (field
// aggregation, codec training). At Close the primary reads each
// sibling's file back, concatenates them in sibling order, rebases
// their object/group index offsets by the header length plus the
// cumulative byte counts, and by the cumulative object counts, of the
// siblings before them, merges their accumulated counts,
// and writes one shared header and footer around the result.
//
// Parallel output is cooperative, not concurrent within one output
// stream: only the primary ever writes to path itself.
type ParallelWriter struct {
	path    string
	cfg     WriteConfig
	ft      *schema.FileType
	primary *Writer

	tmpDir   string
	siblings []*sibling

	fieldMu sync.Mutex // guards cross-sibling count aggregation at Close
	codecMu sync.Mutex // guards the build step of the codec broadcast below

	trainedBytes map[byte]int64 // cross-sibling accumulated training bytes, guarded by codecMu
	// codecPtr holds one lock-free broadcast slot per compressible line
	// type: nil until the primary builds the shared codec under
	// codecMu, after which every sibling's fast path in
	// parallelTrainCoordinator.train reads it without locking, mirroring
	// internal/start's atomic.Value-based signal-once idiom.
	codecPtr map[byte]*atomic.Pointer[huffman.Codec]

	closed bool
}

type sibling struct {
	w *Writer
}

// CreateParallel creates path and cfg.NThreads sibling temporary files
// backing it, each ready to accept WriteRecord calls through Writer(i).
// binary output is the only supported mode: the spec's parallel fan-out
// exists to let independent goroutines each produce a slice of one
// binary stream, concatenated by the primary at Close.
func CreateParallel(path string, s *schema.Schema, typeName string, cfg WriteConfig) (*ParallelWriter, error) {
	n := cfg.NThreads
	if n < 1 {
		n = 1
	}
	ft, ok := s.ForType(typeName)
	if !ok {
		return nil, &OpenError{Path: path, Msg: "schema has no block named " + typeName}
	}

	primary, err := Create(path, s, typeName, true, cfg)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(path), siblingDirPrefix(path))
	if err != nil {
		primary.Close()
		os.Remove(path)
		return nil, &WriteError{Path: path, Msg: err.Error()}
	}

	pw := &ParallelWriter{
		path:         path,
		cfg:          cfg,
		ft:           ft,
		primary:      primary,
		tmpDir:       tmpDir,
		trainedBytes: make(map[byte]int64),
		codecPtr:     make(map[byte]*atomic.Pointer[huffman.Codec]),
	}
	for c, li := range primary.infos {
		if li.huffman != nil {
			pw.codecPtr[c] = &atomic.Pointer[huffman.Codec]{}
		}
	}

	pid := os.Getpid()
	for i := 0; i < n; i++ {
		name := siblingFileName(tmpDir, pid, i)
		f, err := os.Create(name)
		if err != nil {
			pw.abort()
			return nil, &WriteError{Path: path, Msg: err.Error()}
		}
		w, err := newWriter(f, name, ft, true, cfg)
		if err != nil {
			f.Close()
			pw.abort()
			return nil, err
		}
		w.bodyOnly = true
		w.headerWritten = true
		w.coord = &parallelTrainCoordinator{pw: pw}
		pw.siblings = append(pw.siblings, &sibling{w: w})
	}
	return pw, nil
}

// siblingDirPrefix gives the prefix of the temporary directory, to
// which os.MkdirTemp appends a random suffix; siblingFileName derives
// each sibling's file name inside it from the process id and sibling
// index. The primary keeps each sibling's path on its Writer and reads
// it back from there.
func siblingDirPrefix(path string) string {
	return "." + filepath.Base(path) + ".parts-"
}

func siblingFileName(dir string, pid, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.%04d.part", pid, idx))
}

// NumSiblings is the number of sibling writer handles.
func (pw *ParallelWriter) NumSiblings() int { return len(pw.siblings) }

// Writer returns sibling i's handle. Callers write to distinct siblings
// from distinct goroutines; within one sibling, writes preserve program
// order, but there is no ordering guarantee across siblings (spec §5) —
// the primary's Close fixes their relative order as sibling 0, 1, ...
func (pw *ParallelWriter) Writer(i int) *Writer { return pw.siblings[i].w }

// AddProvenance, AddReference, AddDeferred, SetHeaderText and
// SetSubtype forward to the primary's header state; they follow the
// same before-first-write legality rule as a standalone Writer.
func (pw *ParallelWriter) AddProvenance(p Provenance) error { return pw.primary.AddProvenance(p) }
func (pw *ParallelWriter) AddReference(r Reference) error   { return pw.primary.AddReference(r) }
func (pw *ParallelWriter) AddDeferred(d Deferred) error     { return pw.primary.AddDeferred(d) }
func (pw *ParallelWriter) SetHeaderText(s string) error     { return pw.primary.SetHeaderText(s) }
func (pw *ParallelWriter) SetSubtype(s string) error        { return pw.primary.SetSubtype(s) }

// Close closes every sibling (concurrently — each writes a distinct
// file, so this is safe), reads their bodies back (again concurrently,
// read-only), then performs the single-threaded finalisation pass:
// header, sequential concatenation with index rebasing, merged counts,
// shared codecs, footer. Both fan-out phases go through
// internal/start.RunAll, the teacher's errgroup-based join helper.
func (pw *ParallelWriter) Close() error {
	if pw.closed {
		return nil
	}
	pw.closed = true

	closeFuncs := make([]func(context.Context) error, len(pw.siblings))
	for i, sib := range pw.siblings {
		sib := sib
		closeFuncs[i] = func(context.Context) error { return sib.w.Close() }
	}
	if err := start.RunAll(context.Background(), closeFuncs...); err != nil {
		pw.cleanupTmp()
		return &WriteError{Path: pw.path, Msg: err.Error()}
	}

	bodies := make([][]byte, len(pw.siblings))
	readFuncs := make([]func(context.Context) error, len(pw.siblings))
	for i, sib := range pw.siblings {
		i, sib := i, sib
		readFuncs[i] = func(context.Context) error {
			data, err := os.ReadFile(sib.w.path)
			if err != nil {
				return err
			}
			bodies[i] = data
			return nil
		}
	}
	if err := start.RunAll(context.Background(), readFuncs...); err != nil {
		pw.cleanupTmp()
		return &WriteError{Path: pw.path, Msg: err.Error()}
	}

	if err := pw.primary.emitHeader(false); err != nil {
		pw.cleanupTmp()
		return err
	}

	cumBytes := pw.primary.cw.n
	var cumObjects int64
	for i, sib := range pw.siblings {
		n, err := pw.primary.cw.Write(bodies[i])
		if err != nil {
			pw.cleanupTmp()
			return &WriteError{Path: pw.path, Msg: err.Error()}
		}

		for _, off := range sib.w.objectIndex {
			pw.primary.objectIndex = append(pw.primary.objectIndex, off+cumBytes)
		}
		for _, ord := range sib.w.groupIndex {
			pw.primary.groupIndex = append(pw.primary.groupIndex, ord+cumObjects)
		}
		pw.mergeCounts(sib.w, cumObjects)

		cumBytes += int64(n)
		cumObjects += sib.w.objectOrdinal
	}
	pw.primary.objectOrdinal = cumObjects
	if pw.ft.GroupCh != 0 && len(pw.primary.groupIndex) > 0 {
		pw.primary.groupIndex = append(pw.primary.groupIndex, cumObjects)
	}

	for c, ptr := range pw.codecPtr {
		codec := ptr.Load()
		if codec == nil {
			continue
		}
		li := pw.primary.infos[c]
		if li == nil {
			continue
		}
		li.huffman = codec
		li.codec = codec
		li.useCodec = true
	}

	footerStart, err := writeFooter(pw.primary.cw, pw.primary.base, pw.primary.cw.n)
	if err != nil {
		pw.cleanupTmp()
		return &WriteError{Path: pw.path, Msg: err.Error()}
	}
	var ptr [8]byte
	byteOrderFor(pw.primary.bigEndian).PutUint64(ptr[:], uint64(footerStart))
	if _, err := pw.primary.cw.Write(ptr[:]); err != nil {
		pw.cleanupTmp()
		return &WriteError{Path: pw.path, Msg: err.Error()}
	}

	if c, ok := pw.primary.out.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			pw.cleanupTmp()
			return &WriteError{Path: pw.path, Msg: err.Error()}
		}
	}

	return pw.cleanupTmp()
}

// mergeCounts folds one sibling's accumulated per-line-type counts into
// the primary's, under fieldMu. cumObjectsBefore is the total object
// count contributed by siblings already merged, needed to rebase a
// group line type's groupTotal (a running object-ordinal snapshot,
// local to the sibling that recorded it) onto the combined file.
func (pw *ParallelWriter) mergeCounts(w *Writer, cumObjectsBefore int64) {
	pw.fieldMu.Lock()
	defer pw.fieldMu.Unlock()
	for c, sli := range w.infos {
		li := pw.primary.infos[c]
		if li == nil {
			continue
		}
		li.accum.count += sli.accum.count
		if sli.accum.max > li.accum.max {
			li.accum.max = sli.accum.max
		}
		li.accum.total += sli.accum.total
		li.accum.groupCount += sli.accum.groupCount
		if sli.accum.groupCount > 0 {
			li.accum.groupTotal = cumObjectsBefore + sli.accum.groupTotal
		}
	}
}

// abort tears down a partially constructed ParallelWriter after a
// sibling failed to open.
func (pw *ParallelWriter) abort() {
	for _, sib := range pw.siblings {
		sib.w.Close()
	}
	pw.cleanupTmp()
	pw.primary.Close()
	os.Remove(pw.path)
}

func (pw *ParallelWriter) cleanupTmp() error {
	return os.RemoveAll(pw.tmpDir)
}

// parallelTrainCoordinator is the shared-histogram path spec §4.9
// describes: sibling writers forward their list bytes here instead of
// training independent codecs. The fast path reads a built codec
// lock-free off an atomic.Pointer; only the first sibling to cross the
// training threshold for a given line type pays for the merge-and-build
// step, under codecMu, with a double-checked reload in case another
// sibling raced it there.
type parallelTrainCoordinator struct {
	pw *ParallelWriter
}

func (tc *parallelTrainCoordinator) train(ch byte, li *lineInfo, data []byte) error {
	pw := tc.pw
	if ptr, ok := pw.codecPtr[ch]; ok {
		if codec := ptr.Load(); codec != nil {
			adopt(li, codec)
			return nil
		}
	}

	pw.codecMu.Lock()
	defer pw.codecMu.Unlock()

	if ptr, ok := pw.codecPtr[ch]; ok {
		if codec := ptr.Load(); codec != nil {
			adopt(li, codec)
			return nil
		}
	}

	if err := li.huffman.AddSample(data); err != nil {
		return err
	}
	pw.trainedBytes[ch] += int64(len(data))
	if pw.trainedBytes[ch] < pw.cfg.threshold() {
		return nil
	}

	merged := huffman.New()
	for _, sib := range pw.siblings {
		sli := sib.w.infos[ch]
		if sli == nil || sli.huffman == nil {
			continue
		}
		if err := merged.MergeHistogram(sli.huffman.Histogram()); err != nil {
			return err
		}
	}
	if err := merged.Build(true); err != nil {
		return err
	}
	if ptr, ok := pw.codecPtr[ch]; ok {
		ptr.Store(merged)
	}
	adopt(li, merged)
	return nil
}

func adopt(li *lineInfo, codec *huffman.Codec) {
	if li == nil {
		return
	}
	li.codec = codec
	li.huffman = codec
	li.useCodec = true
}
