// Package engine is the index-engine side of text fields: a narrow
// read/write interface, an in-memory implementation and the document writer
// that materializes auxiliary sub-fields.
package engine

import (
	"errors"
	"sort"
	"sync"

	"SearchMapper/pkg/analysis"

	"github.com/RoaringBitmap/roaring/v2"
)

var ErrClosed = errors.New("index engine closed")

// Offsets are the character offsets of a token in its field value.
type Offsets struct {
	Start int
	End   int
}

// Posting is one document entry of a postings list. Positions and Offsets
// are empty when the field does not record them.
type Posting struct {
	DocID     uint32
	Positions []int
	Offsets   []Offsets
}

// Engine is what the mapping layer needs from an inverted index.
type Engine interface {
	Analyze(analyzer, text string) (analysis.TokenStream, error)
	// WritePosting records term at position for docID. A negative
	// position records the document only.
	WritePosting(field, term string, docID uint32, position int, offsets *Offsets) error
	ReadPostings(field, term string) ([]Posting, error)
	StoredFieldValue(field string, docID uint32) (string, bool)
	Close() error
}

// DocumentSink is an Engine that also keeps the per-document side channels
// written alongside postings.
type DocumentSink interface {
	Engine
	StoreValue(field string, docID uint32, value string) error
	SetNorm(field string, docID uint32, length int) error
	MarkPresent(field string, docID uint32) error
}

type postingList struct {
	docs      *roaring.Bitmap
	positions map[uint32][]int
	offsets   map[uint32][]Offsets
}

func newPostingList() *postingList {
	return &postingList{
		docs:      roaring.New(),
		positions: make(map[uint32][]int),
		offsets:   make(map[uint32][]Offsets),
	}
}

// Memory is a single-segment in-memory index. It is safe for concurrent use.
type Memory struct {
	analyzers *analysis.Registry

	mu       sync.RWMutex
	closed   bool
	gen      uint64
	docs     *roaring.Bitmap
	postings map[string]map[string]*postingList
	stored   map[string]map[uint32][]string
	norms    map[string]map[uint32]int
	present  map[string]*roaring.Bitmap
}

var _ DocumentSink = (*Memory)(nil)

func NewMemory(analyzers *analysis.Registry) *Memory {
	return &Memory{
		analyzers: analyzers,
		docs:      roaring.New(),
		postings:  make(map[string]map[string]*postingList),
		stored:    make(map[string]map[uint32][]string),
		norms:     make(map[string]map[uint32]int),
		present:   make(map[string]*roaring.Bitmap),
	}
}

func (e *Memory) Analyze(analyzer, text string) (analysis.TokenStream, error) {
	if e.analyzers == nil {
		return nil, errors.New("no analyzer registry configured")
	}
	return e.analyzers.Analyze(analyzer, text)
}

func (e *Memory) WritePosting(field, term string, docID uint32, position int, offsets *Offsets) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	terms, ok := e.postings[field]
	if !ok {
		terms = make(map[string]*postingList)
		e.postings[field] = terms
	}
	pl, ok := terms[term]
	if !ok {
		pl = newPostingList()
		terms[term] = pl
	}
	pl.docs.Add(docID)
	if position >= 0 {
		pl.positions[docID] = append(pl.positions[docID], position)
	}
	if offsets != nil {
		pl.offsets[docID] = append(pl.offsets[docID], *offsets)
	}
	e.touch(docID)
	return nil
}

func (e *Memory) ReadPostings(field, term string) ([]Posting, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	pl, ok := e.postings[field][term]
	if !ok {
		return nil, nil
	}
	out := make([]Posting, 0, pl.docs.GetCardinality())
	it := pl.docs.Iterator()
	for it.HasNext() {
		doc := it.Next()
		out = append(out, Posting{
			DocID:     doc,
			Positions: append([]int(nil), pl.positions[doc]...),
			Offsets:   append([]Offsets(nil), pl.offsets[doc]...),
		})
	}
	return out, nil
}

// StoredFieldValue returns the first stored value of field in docID.
func (e *Memory) StoredFieldValue(field string, docID uint32) (string, bool) {
	vals := e.StoredFieldValues(field, docID)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// StoredFieldValues returns every stored value of field in docID.
func (e *Memory) StoredFieldValues(field string, docID uint32) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.stored[field][docID]...)
}

func (e *Memory) StoreValue(field string, docID uint32, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	docs, ok := e.stored[field]
	if !ok {
		docs = make(map[uint32][]string)
		e.stored[field] = docs
	}
	docs[docID] = append(docs[docID], value)
	e.touch(docID)
	return nil
}

func (e *Memory) SetNorm(field string, docID uint32, length int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	docs, ok := e.norms[field]
	if !ok {
		docs = make(map[uint32]int)
		e.norms[field] = docs
	}
	docs[docID] = length
	e.touch(docID)
	return nil
}

// Norm returns the field length recorded for docID.
func (e *Memory) Norm(field string, docID uint32) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.norms[field][docID]
	return n, ok
}

func (e *Memory) MarkPresent(field string, docID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	bm, ok := e.present[field]
	if !ok {
		bm = roaring.New()
		e.present[field] = bm
	}
	bm.Add(docID)
	e.touch(docID)
	return nil
}

// touch records a write. Callers hold the write lock.
func (e *Memory) touch(docID uint32) {
	e.docs.Add(docID)
	e.gen++
}

// Terms returns the terms of field in ascending order.
func (e *Memory) Terms(field string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	terms := make([]string, 0, len(e.postings[field]))
	for t := range e.postings[field] {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Docs returns a copy of the documents containing term in field.
func (e *Memory) Docs(field, term string) *roaring.Bitmap {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if pl, ok := e.postings[field][term]; ok {
		return pl.docs.Clone()
	}
	return roaring.New()
}

func (e *Memory) DocCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return int(e.docs.GetCardinality())
}

// Generation changes on every write, so it identifies a snapshot for caches.
func (e *Memory) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gen
}

func (e *Memory) normDocs(field string) *roaring.Bitmap {
	e.mu.RLock()
	defer e.mu.RUnlock()
	bm := roaring.New()
	for doc := range e.norms[field] {
		bm.Add(doc)
	}
	return bm
}

func (e *Memory) presentDocs(field string) *roaring.Bitmap {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if bm, ok := e.present[field]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

func (e *Memory) positions(field, term string) map[uint32][]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pl, ok := e.postings[field][term]
	if !ok {
		return nil
	}
	out := make(map[uint32][]int, len(pl.positions))
	for doc, ps := range pl.positions {
		out[doc] = append([]int(nil), ps...)
	}
	return out
}

func (e *Memory) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	return nil
}
