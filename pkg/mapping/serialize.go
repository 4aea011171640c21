package mapping

import (
	"bytes"
	"encoding/json"

	"SearchMapper/pkg/analysis"
)

// MarshalJSON writes the mapping with non-default parameters only.
func (m *TextFieldMapping) MarshalJSON() ([]byte, error) {
	return Serialize(m, false)
}

// Serialize writes the mapping as a JSON object. Keys appear in a fixed
// order and nested objects keep their declaration order. With
// includeDefaults every parameter is written, including the resolved
// analyzer names.
func Serialize(m *TextFieldMapping, includeDefaults bool) ([]byte, error) {
	w := &objectWriter{}
	if err := writeMapping(w, m, includeDefaults); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

func writeMapping(w *objectWriter, m *TextFieldMapping, all bool) error {
	c := m.cfg
	w.open()
	w.field(paramType, TypeName)
	if all || c.Store {
		w.field(paramStore, c.Store)
	}
	if all || !c.Index {
		w.field(paramIndex, c.Index)
	}
	if all || !c.Norms {
		w.field(paramNorms, c.Norms)
	}
	if all || c.Similarity != "" {
		w.field(paramSimilarity, c.Similarity)
	}

	eff := c.refs().Effective()
	if all || eff.Index != analysis.DefaultName {
		w.field(paramAnalyzer, eff.Index)
	}
	if all || c.SearchAnalyzer != "" {
		w.field(paramSearchAnalyzer, eff.Search)
	}
	if all || c.SearchQuoteAnalyzer != "" {
		w.field(paramSearchQuoteAnalyzer, eff.SearchQuote)
	}

	if all || c.TermVector != TermVectorNo {
		w.field(paramTermVector, c.TermVector.String())
	}
	if all || c.PositionIncrementGap != DefaultPositionIncrementGap {
		w.field(paramPositionIncrementGap, c.PositionIncrementGap)
	}
	if all || c.Fielddata {
		w.field(paramFielddata, c.Fielddata)
	}
	if ff := c.FielddataFrequencyFilter; all || !ff.IsDefault() {
		w.key(paramFielddataFrequencyFilter)
		w.open()
		w.field("min", ff.Min)
		w.field("max", ff.Max)
		w.field("min_segment_size", ff.MinSegmentSize)
		w.close()
	}
	if all || c.EagerGlobalOrdinals {
		w.field(paramEagerGlobalOrdinals, c.EagerGlobalOrdinals)
	}
	if all || c.IndexPhrases {
		w.field(paramIndexPhrases, c.IndexPhrases)
	}
	if p := c.IndexPrefixes; p != nil {
		w.key(paramIndexPrefixes)
		w.open()
		w.field("min_chars", p.MinChars)
		w.field("max_chars", p.MaxChars)
		w.close()
	} else if all {
		w.field(paramIndexPrefixes, nil)
	}
	if all || c.IndexOptions != IndexPositions {
		w.field(paramIndexOptions, c.IndexOptions.String())
	}

	if len(m.fields) > 0 {
		w.key(paramFields)
		w.open()
		for _, name := range m.FieldNames() {
			w.key(name)
			if err := writeMapping(w, m.fields[name], all); err != nil {
				return err
			}
		}
		w.close()
	}
	if all || len(c.CopyTo) > 0 {
		targets := c.CopyTo
		if targets == nil {
			targets = []string{}
		}
		w.field(paramCopyTo, targets)
	}
	if all || len(c.Meta) > 0 {
		w.key(paramMeta)
		w.open()
		for _, k := range sortedKeys(c.Meta) {
			w.field(k, c.Meta[k])
		}
		w.close()
	}
	if all || c.Boost != DefaultBoost {
		w.field(paramBoost, c.Boost)
	}
	w.close()
	return w.err
}

// objectWriter emits JSON objects with keys in call order. Scalar values go
// through encoding/json.
type objectWriter struct {
	buf   bytes.Buffer
	first []bool
	err   error
}

func (w *objectWriter) open() {
	w.buf.WriteByte('{')
	w.first = append(w.first, true)
}

func (w *objectWriter) close() {
	w.buf.WriteByte('}')
	w.first = w.first[:len(w.first)-1]
}

func (w *objectWriter) key(k string) {
	top := len(w.first) - 1
	if !w.first[top] {
		w.buf.WriteByte(',')
	}
	w.first[top] = false
	w.value(k)
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v interface{}) {
	w.key(k)
	w.value(v)
}

func (w *objectWriter) value(v interface{}) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(b)
}

func (w *objectWriter) bytes() []byte { return w.buf.Bytes() }
