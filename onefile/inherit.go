package onefile

// provenanceSource is satisfied by both *Reader and *Writer, letting
// Inherit* copy header metadata from either kind of open file.
type provenanceSource interface {
	Provenance() []Provenance
	References() []Reference
	Deferred() []Deferred
}

// InheritProvenance copies every provenance record from src onto w.
// Legal only before w's header is emitted, same as AddProvenance.
func (w *Writer) InheritProvenance(src provenanceSource) error {
	for _, p := range src.Provenance() {
		if err := w.AddProvenance(p); err != nil {
			return err
		}
	}
	return nil
}

// InheritReference copies every reference record from src onto w.
func (w *Writer) InheritReference(src provenanceSource) error {
	for _, r := range src.References() {
		if err := w.AddReference(r); err != nil {
			return err
		}
	}
	return nil
}

// InheritDeferred copies every deferred-reference record from src onto
// w.
func (w *Writer) InheritDeferred(src provenanceSource) error {
	for _, d := range src.Deferred() {
		if err := w.AddDeferred(d); err != nil {
			return err
		}
	}
	return nil
}
