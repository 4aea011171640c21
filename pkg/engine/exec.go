package engine

import (
	"fmt"
	"sort"
	"strings"

	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/query"

	"github.com/RoaringBitmap/roaring/v2"
)

// MaxExpansions bounds the terms a prefix expands to.
const MaxExpansions = 50

// Execute evaluates q and returns the matching documents.
func (e *Memory) Execute(q query.Query) (*roaring.Bitmap, error) {
	switch v := q.(type) {
	case query.Term:
		return e.Docs(v.Field, v.Term), nil
	case query.Prefix:
		out := roaring.New()
		for _, t := range e.expand(v.Field, v.Prefix) {
			out.Or(e.Docs(v.Field, t))
		}
		return out, nil
	case query.Phrase:
		alts := make([][]string, len(v.Terms))
		for i, t := range v.Terms {
			alts[i] = []string{t}
		}
		return e.phrase(v.Field, alts, v.Positions, v.Slop), nil
	case query.MultiPhrase:
		return e.phrase(v.Field, v.Terms, v.Positions, v.Slop), nil
	case query.PhrasePrefix:
		if len(v.Terms) == 0 {
			return roaring.New(), nil
		}
		alts := append([][]string(nil), v.Terms...)
		last := len(alts) - 1
		var expanded []string
		for _, p := range alts[last] {
			expanded = append(expanded, e.expand(v.Field, p)...)
		}
		alts[last] = expanded
		return e.phrase(v.Field, alts, v.Positions, v.Slop), nil
	case query.SpanTerm, query.SpanOr, query.SpanNear, query.FieldMaskingSpan:
		sp, err := e.spans(q)
		if err != nil {
			return nil, err
		}
		out := roaring.New()
		for doc, s := range sp {
			if len(s) > 0 {
				out.Add(doc)
			}
		}
		return out, nil
	case query.BooleanOr:
		out := roaring.New()
		for _, c := range v.Clauses {
			bm, err := e.Execute(c)
			if err != nil {
				return nil, err
			}
			out.Or(bm)
		}
		return out, nil
	case query.BooleanAnd:
		var out *roaring.Bitmap
		for _, c := range v.Clauses {
			bm, err := e.Execute(c)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = bm
			} else {
				out.And(bm)
			}
		}
		if out == nil {
			out = roaring.New()
		}
		return out, nil
	case query.Exists:
		if v.Channel == query.NormsChannel {
			return e.normDocs(v.Field), nil
		}
		return e.presentDocs(v.Field), nil
	case query.MatchNone:
		return roaring.New(), nil
	default:
		return nil, mserrors.Internal("cannot execute %s", query.Kind(q))
	}
}

func (e *Memory) expand(field, prefix string) []string {
	terms := e.Terms(field)
	i := sort.SearchStrings(terms, prefix)
	var out []string
	for ; i < len(terms) && strings.HasPrefix(terms[i], prefix) && len(out) < MaxExpansions; i++ {
		out = append(out, terms[i])
	}
	return out
}

// phrase matches alternatives at relative positions. A document matches
// when one occurrence per position can be picked so that the spread of
// (position - relative position) is at most slop.
func (e *Memory) phrase(field string, alts [][]string, rel []int, slop int) *roaring.Bitmap {
	out := roaring.New()
	if len(alts) == 0 {
		return out
	}
	occ := make([]map[uint32][]int, len(alts))
	var candidates *roaring.Bitmap
	for i, terms := range alts {
		docs := roaring.New()
		occ[i] = make(map[uint32][]int)
		for _, t := range terms {
			docs.Or(e.Docs(field, t))
			for doc, ps := range e.positions(field, t) {
				occ[i][doc] = append(occ[i][doc], ps...)
			}
		}
		if candidates == nil {
			candidates = docs
		} else {
			candidates.And(docs)
		}
	}

	it := candidates.Iterator()
	for it.HasNext() {
		doc := it.Next()
		lists := make([][]int, len(alts))
		for i := range alts {
			lists[i] = occ[i][doc]
		}
		if matchPositions(lists, rel, slop) {
			out.Add(doc)
		}
	}
	return out
}

func matchPositions(lists [][]int, rel []int, slop int) bool {
	var walk func(i, lo, hi int) bool
	walk = func(i, lo, hi int) bool {
		if i == len(lists) {
			return true
		}
		for _, p := range lists[i] {
			off := p - rel[i]
			nlo, nhi := lo, hi
			if i == 0 || off < nlo {
				nlo = off
			}
			if i == 0 || off > nhi {
				nhi = off
			}
			if nhi-nlo > slop {
				continue
			}
			if walk(i+1, nlo, nhi) {
				return true
			}
		}
		return false
	}
	return walk(0, 0, 0)
}

type span struct{ start, end int }

// spans evaluates span queries to per-document position intervals. A
// masked span keeps its positions; only the reported field changes.
func (e *Memory) spans(q query.Query) (map[uint32][]span, error) {
	switch v := q.(type) {
	case query.SpanTerm:
		out := make(map[uint32][]span)
		for doc, ps := range e.positions(v.Field, v.Term) {
			for _, p := range ps {
				out[doc] = append(out[doc], span{p, p + 1})
			}
		}
		return out, nil
	case query.FieldMaskingSpan:
		return e.spans(v.Query)
	case query.SpanOr:
		out := make(map[uint32][]span)
		for _, c := range v.Clauses {
			sp, err := e.spans(c)
			if err != nil {
				return nil, err
			}
			for doc, s := range sp {
				out[doc] = append(out[doc], s...)
			}
		}
		return out, nil
	case query.SpanNear:
		return e.spanNear(v)
	default:
		return nil, mserrors.Internal("%s is not a span query", query.Kind(q))
	}
}

// spanNear matches clauses in order. Gap clauses widen the expected
// distance; slop is the total extra distance allowed.
func (e *Memory) spanNear(v query.SpanNear) (map[uint32][]span, error) {
	type step struct {
		gap   int
		spans map[uint32][]span
	}
	var steps []step
	pending := 0
	for _, c := range v.Clauses {
		if g, ok := c.(query.SpanGap); ok {
			pending += g.Width
			continue
		}
		sp, err := e.spans(c)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{gap: pending, spans: sp})
		pending = 0
	}
	out := make(map[uint32][]span)
	if len(steps) == 0 {
		return out, nil
	}

	for doc, first := range steps[0].spans {
		var walk func(i, end, slack int) (int, bool)
		walk = func(i, end, slack int) (int, bool) {
			if i == len(steps) {
				return end, true
			}
			for _, s := range steps[i].spans[doc] {
				extra := s.start - (end + steps[i].gap)
				if extra < 0 || extra > slack {
					continue
				}
				if last, ok := walk(i+1, s.end, slack-extra); ok {
					return last, true
				}
			}
			return 0, false
		}
		for _, s := range first {
			if end, ok := walk(1, s.end, v.Slop); ok {
				out[doc] = append(out[doc], span{s.start, end})
			}
		}
	}
	return out, nil
}

// Explain renders the documents matching q, for debugging.
func (e *Memory) Explain(q query.Query) string {
	bm, err := e.Execute(q)
	if err != nil {
		return fmt.Sprintf("%s => error: %v", query.Format(q), err)
	}
	return fmt.Sprintf("%s => %v", query.Format(q), bm.ToArray())
}
