package engine

import (
	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/mapping"
)

// offsetGap separates the character offsets of consecutive values.
const offsetGap = 1

// Writer indexes the values of one text field, including the postings of
// its auxiliary sub-fields.
type Writer struct {
	sink     DocumentSink
	m        *mapping.TextFieldMapping
	analyzer analysis.Analyzer
	prefix   *mapping.AuxiliarySubfield
	phrase   *mapping.AuxiliarySubfield
}

func NewWriter(sink DocumentSink, m *mapping.TextFieldMapping) *Writer {
	w := &Writer{sink: sink, m: m, analyzer: m.Chain().Index.Analyzer}
	for _, aux := range mapping.Derive(m) {
		switch aux.Kind {
		case mapping.PrefixSubfield:
			w.prefix = &aux
		case mapping.PhraseSubfield:
			w.phrase = &aux
		}
	}
	return w
}

// Index writes values as the successive values of the field in docID.
// Positions continue across values with position_increment_gap added
// between them.
func (w *Writer) Index(docID uint32, values ...string) error {
	field := w.m.Name()
	if len(values) == 0 {
		return nil
	}
	if err := w.sink.MarkPresent(field, docID); err != nil {
		return err
	}
	if w.m.Stored() {
		for _, v := range values {
			if err := w.sink.StoreValue(field, docID, v); err != nil {
				return err
			}
		}
	}
	if !w.m.Indexed() || w.analyzer == nil {
		return nil
	}

	opts := w.m.IndexOptions()
	pos := -1
	offsetBase := 0
	length := 0
	for i, v := range values {
		if i > 0 {
			pos += w.m.PositionIncrementGap()
			offsetBase += len(values[i-1]) + offsetGap
		}
		var positioned []analysis.Position
		var err error
		pos, length, positioned, err = w.indexValue(docID, v, pos, offsetBase, length, opts)
		if err != nil {
			return err
		}
		if w.phrase != nil {
			if err := w.writeShingles(docID, positioned, offsetBase); err != nil {
				return err
			}
		}
	}
	if w.m.Norms() {
		return w.sink.SetNorm(field, docID, length)
	}
	return nil
}

func (w *Writer) indexValue(docID uint32, value string, pos, offsetBase, length int, opts mapping.IndexOptions) (int, int, []analysis.Position, error) {
	field := w.m.Name()
	var positioned []analysis.Position
	for _, tok := range w.analyzer.Analyze(value) {
		pos += tok.PositionIncrement
		if pos < 0 {
			pos = 0
		}
		if tok.PositionIncrement > 0 {
			length++
		}
		if n := len(positioned); n > 0 && positioned[n-1].Pos == pos {
			positioned[n-1].Tokens = append(positioned[n-1].Tokens, tok)
		} else {
			positioned = append(positioned, analysis.Position{Pos: pos, Tokens: []analysis.Token{tok}})
		}

		off := &Offsets{Start: offsetBase + tok.Start, End: offsetBase + tok.End}
		if err := w.sink.WritePosting(field, tok.Term, docID, positionFor(opts, pos), offsetsFor(opts, off)); err != nil {
			return pos, length, nil, err
		}
		if w.prefix != nil {
			for _, p := range w.prefix.PrefixTerms(tok.Term) {
				if err := w.sink.WritePosting(w.prefix.Name, p, docID, positionFor(w.prefix.IndexOptions, pos), offsetsFor(w.prefix.IndexOptions, off)); err != nil {
					return pos, length, nil, err
				}
			}
		}
	}
	return pos, length, positioned, nil
}

// writeShingles indexes each pair of adjacent positions of one value as a
// single term at the left position. Positions separated by a removed token
// are not paired. A shingle spans from the start of its left token to the
// end of its right token.
func (w *Writer) writeShingles(docID uint32, positioned []analysis.Position, offsetBase int) error {
	opts := w.phrase.IndexOptions
	for i := 0; i+1 < len(positioned); i++ {
		left, right := positioned[i], positioned[i+1]
		if right.Pos-left.Pos != 1 {
			continue
		}
		for _, l := range left.Tokens {
			for _, r := range right.Tokens {
				off := &Offsets{Start: offsetBase + l.Start, End: offsetBase + r.End}
				if err := w.sink.WritePosting(w.phrase.Name, mapping.Shingle(l.Term, r.Term), docID, positionFor(opts, left.Pos), offsetsFor(opts, off)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func positionFor(opts mapping.IndexOptions, pos int) int {
	if !opts.HasPositions() {
		return -1
	}
	return pos
}

func offsetsFor(opts mapping.IndexOptions, off *Offsets) *Offsets {
	if !opts.HasOffsets() {
		return nil
	}
	return off
}
