package fielddata

import (
	"sort"

	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/mapping"

	"github.com/RoaringBitmap/roaring/v2"
)

// Source exposes the postings of one segment.
type Source interface {
	// Terms returns the distinct terms of field in ascending order.
	Terms(field string) []string
	// Docs returns the documents that contain term in field.
	Docs(field, term string) *roaring.Bitmap
	// DocCount is the number of documents in the segment.
	DocCount() int
}

// Ordinals maps the accepted terms of one field in one segment to dense
// ordinals, in term order.
type Ordinals struct {
	field   string
	terms   []string
	ords    map[string]int
	docOrds map[uint32][]int
}

func (o *Ordinals) Field() string    { return o.field }
func (o *Ordinals) Cardinality() int { return len(o.terms) }

// Term returns the term behind ord.
func (o *Ordinals) Term(ord int) string { return o.terms[ord] }

func (o *Ordinals) Ord(term string) (int, bool) {
	ord, ok := o.ords[term]
	return ord, ok
}

// DocOrds returns the ordinals of the terms in doc, ascending.
func (o *Ordinals) DocOrds(doc uint32) []int {
	return o.docOrds[doc]
}

// Load builds the ordinals of m from src. It refuses fields that did not
// opt into fielddata.
func Load(m *mapping.TextFieldMapping, src Source) (*Ordinals, error) {
	if err := CanEnable(m); err != nil {
		return nil, err
	}
	if !m.Fielddata() {
		return nil, mserrors.Validation(m.Name(),
			"Text fields are not optimised for operations that require per-document field data like aggregations and sorting, "+
				"so these operations are disabled by default. Please use a keyword field instead. "+
				"Alternatively, set fielddata=true on [%s] in order to load field data by uninverting the inverted index.", m.Name())
	}
	return Build(m.Name(), BuildFilter(m), src), nil
}

// Build scans the postings of field and keeps the terms f accepts.
func Build(field string, f Filter, src Source) *Ordinals {
	o := &Ordinals{
		field:   field,
		ords:    make(map[string]int),
		docOrds: make(map[uint32][]int),
	}
	terms := append([]string(nil), src.Terms(field)...)
	sort.Strings(terms)

	segmentDocs := src.DocCount()
	for _, term := range terms {
		docs := src.Docs(field, term)
		if docs == nil || docs.IsEmpty() {
			continue
		}
		if !f.Accept(int(docs.GetCardinality()), segmentDocs) {
			continue
		}
		ord := len(o.terms)
		o.terms = append(o.terms, term)
		o.ords[term] = ord
		it := docs.Iterator()
		for it.HasNext() {
			doc := it.Next()
			o.docOrds[doc] = append(o.docOrds[doc], ord)
		}
	}
	return o
}
