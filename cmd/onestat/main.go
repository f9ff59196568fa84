// Command onestat is a reference CLI over the onefile container format:
// it opens one container file, and either reports on its header, dumps
// selected object records, writes out its schema text, or converts it
// between ASCII and binary, per spec.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/solidcoredata/one/internal/start"
	"github.com/solidcoredata/one/onefile"
	"github.com/solidcoredata/one/schema"
)

// indexSpecList implements flag.Value for -index, a comma-separated
// list of "T i" or "T i-j" object-index slices (the space after T is
// optional, so "T5-10" and "T 5-10" both parse).
type indexSpecList struct {
	ranges []indexRange
}

type indexRange struct {
	lo, hi int64
}

func (l *indexSpecList) String() string {
	if l == nil || len(l.ranges) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range l.ranges {
		if i > 0 {
			sb.WriteByte(',')
		}
		if r.lo == r.hi {
			fmt.Fprintf(&sb, "T%d", r.lo)
		} else {
			fmt.Fprintf(&sb, "T%d-%d", r.lo, r.hi)
		}
	}
	return sb.String()
}

func (l *indexSpecList) Set(s string) error {
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if tok[0] != 'T' && tok[0] != 't' {
			return fmt.Errorf("index spec %q: must start with T", tok)
		}
		tok = strings.TrimSpace(tok[1:])
		parts := strings.SplitN(tok, "-", 2)
		lo, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("index spec %q: %w", tok, err)
		}
		hi := lo
		if len(parts) == 2 {
			hi, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
			if err != nil {
				return fmt.Errorf("index spec %q: %w", tok, err)
			}
		}
		l.ranges = append(l.ranges, indexRange{lo: lo, hi: hi})
	}
	return nil
}

func main() {
	var (
		outPath     string
		binaryOut   bool
		headerOnly  bool
		writeSchema string
		noHeader    bool
		verbose     bool
		schemaPath  string
		typeHint    string
		indexSpec   indexSpecList
	)
	flag.StringVar(&outPath, "o", "", "output path (default: stdout)")
	flag.BoolVar(&binaryOut, "binary", false, "write binary instead of ASCII")
	flag.BoolVar(&headerOnly, "header-only", false, "print header info and exit")
	flag.StringVar(&writeSchema, "write-schema", "", "write the input file's schema text to this path and exit")
	flag.BoolVar(&noHeader, "no-header", false, "suppress ASCII header")
	flag.BoolVar(&verbose, "v", false, "verbose diagnostics on stderr")
	flag.Var(&indexSpec, "index", "comma-separated T<i> or T<i>-<j> object-index slices to print")
	flag.StringVar(&schemaPath, "schema", "", "externally supplied schema file")
	flag.StringVar(&typeHint, "type", "", "externally supplied type hint")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "onestat: expected exactly one input path")
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	err := start.Start(context.Background(), 5*time.Second, func(ctx context.Context) error {
		return run(ctx, runArgs{
			inputPath:   inputPath,
			outPath:     outPath,
			binaryOut:   binaryOut,
			headerOnly:  headerOnly,
			writeSchema: writeSchema,
			noHeader:    noHeader,
			verbose:     verbose,
			schemaPath:  schemaPath,
			typeHint:    typeHint,
			index:       indexSpec,
		})
	})
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

type runArgs struct {
	inputPath   string
	outPath     string
	binaryOut   bool
	headerOnly  bool
	writeSchema string
	noHeader    bool
	verbose     bool
	schemaPath  string
	typeHint    string
	index       indexSpecList
}

func run(ctx context.Context, a runArgs) error {
	want, err := loadWant(a.schemaPath, a.typeHint)
	if err != nil {
		return err
	}

	r, err := onefile.Open(a.inputPath, want)
	if err != nil {
		return err
	}
	defer r.Close()

	if a.verbose {
		fmt.Fprintf(os.Stderr, "onestat: %s: primary=%s subtype=%s version=%d.%d binary=%v\n",
			a.inputPath, r.Primary(), r.Subtype(), r.Major(), r.Minor(), r.IsBinary())
	}

	if a.writeSchema != "" {
		return writeSchemaFile(a.writeSchema, r.FileType())
	}

	if a.headerOnly {
		printHeader(os.Stdout, r)
		return nil
	}

	if len(a.index.ranges) > 0 {
		return printIndexed(os.Stdout, r, a.index)
	}

	return convert(ctx, r, a.outPath, a.binaryOut, a.noHeader, a.verbose)
}

func loadWant(schemaPath, typeHint string) (*schema.Schema, error) {
	switch {
	case schemaPath != "":
		return schema.FromFile(schemaPath)
	case typeHint != "":
		return schema.FromTypeHint(typeHint, ""), nil
	default:
		return nil, nil
	}
}

func writeSchemaFile(path string, ft *schema.FileType) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s := &schema.Schema{Blocks: []*schema.FileType{ft}}
	return s.Write(f)
}

func printHeader(w io.Writer, r *onefile.Reader) {
	fmt.Fprintf(w, "primary: %s\n", r.Primary())
	if st := r.Subtype(); st != "" {
		fmt.Fprintf(w, "subtype: %s\n", st)
	}
	fmt.Fprintf(w, "version: %d.%d\n", r.Major(), r.Minor())
	fmt.Fprintf(w, "binary: %v\n", r.IsBinary())
	if r.IsBinary() {
		fmt.Fprintf(w, "big-endian: %v\n", r.BigEndian())
	}
	for _, p := range r.Provenance() {
		fmt.Fprintf(w, "provenance: program=%s version=%s command=%q date=%s\n", p.Program, p.Version, p.Command, p.Date)
	}
	for _, ref := range r.References() {
		fmt.Fprintf(w, "reference: %s count=%d\n", ref.Filename, ref.Count)
	}
	for _, d := range r.Deferred() {
		fmt.Fprintf(w, "deferred: %s\n", d.Filename)
	}
	if ht := r.HeaderText(); ht != "" {
		fmt.Fprintf(w, "header-text:\n%s", ht)
	}
	for _, s := range r.Stats() {
		fmt.Fprintf(w, "type %c: count=%d max=%d total=%d", s.Char, s.Count, s.Max, s.Total)
		if s.GroupCount > 0 {
			fmt.Fprintf(w, " groups=%d group-total=%d", s.GroupCount, s.GroupTotal)
		}
		fmt.Fprintln(w)
	}
	if n := r.NumObjects(); n > 0 {
		fmt.Fprintf(w, "objects: %d\n", n)
	}
	if n := r.NumGroups(); n > 0 {
		fmt.Fprintf(w, "groups: %d\n", n)
	}
}

// printIndexed prints, in spec-order, the object records named by spec,
// using GotoObject to satisfy each range without a sequential scan.
func printIndexed(w io.Writer, r *onefile.Reader, spec indexSpecList) error {
	for _, rg := range spec.ranges {
		for i := rg.lo; i <= rg.hi; i++ {
			if err := r.GotoObject(i); err != nil {
				return err
			}
			rec, err := r.ReadRecord()
			if err != nil {
				return err
			}
			if err := rec.WriteASCII(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// convert streams every body record from r into a freshly created
// writer at outPath (stdout if empty), in binaryOut's encoding,
// inheriting r's provenance, references, deferred entries, subtype and
// header text. A Record read back from r carries its own field
// signature and is accepted as-is by Writer.WriteRecord, so no
// field-by-field copy is needed to cross the ASCII/binary boundary.
func convert(ctx context.Context, r *onefile.Reader, outPath string, binaryOut, noHeader, verbose bool) error {
	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		out = f
	}

	cfg := onefile.WriteConfig{NoASCIIHeader: noHeader}
	w, err := onefile.NewWriter(out, outPath, r.FileType(), binaryOut, cfg)
	if err != nil {
		return err
	}

	if err := w.InheritProvenance(r); err != nil {
		return err
	}
	if err := w.InheritReference(r); err != nil {
		return err
	}
	if err := w.InheritDeferred(r); err != nil {
		return err
	}
	if ht := r.HeaderText(); ht != "" {
		if err := w.SetHeaderText(ht); err != nil {
			return err
		}
	}
	if st := r.Subtype(); st != "" {
		if err := w.SetSubtype(st); err != nil {
			return err
		}
	}

	var n int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := w.WriteRecord(rec); err != nil {
			return err
		}
		n++
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "onestat: %s: wrote %d records\n", outPath, n)
	}
	return w.Close()
}
