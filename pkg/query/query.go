// Package query holds the engine-agnostic query tree produced by the
// planner. Variants are plain data; the index engine interprets them.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Query is one node of a query tree. The set of variants is closed.
type Query interface {
	isQuery()
}

// Term matches documents containing Term in Field.
type Term struct {
	Field string
	Term  string
}

// Prefix matches any term of Field starting with Prefix.
type Prefix struct {
	Field  string
	Prefix string
}

// Phrase matches Terms at the given relative Positions, within Slop moves.
type Phrase struct {
	Field     string
	Terms     []string
	Positions []int
	Slop      int
}

// MultiPhrase is a phrase with alternatives at each position.
type MultiPhrase struct {
	Field     string
	Terms     [][]string
	Positions []int
	Slop      int
}

// PhrasePrefix is a multi-phrase whose last position holds prefixes.
type PhrasePrefix struct {
	Field     string
	Terms     [][]string
	Positions []int
	Slop      int
}

type SpanTerm struct {
	Field string
	Term  string
}

// SpanGap skips Width positions inside an ordered SpanNear.
type SpanGap struct {
	Field string
	Width int
}

type SpanNear struct {
	Field   string
	Clauses []Query
	Slop    int
	InOrder bool
}

type SpanOr struct {
	Clauses []Query
}

// FieldMaskingSpan reports the matches of Query as if they were on Field.
type FieldMaskingSpan struct {
	Query Query
	Field string
}

type BooleanOr struct {
	Clauses []Query
}

type BooleanAnd struct {
	Clauses []Query
}

// ExistsChannel names the structure an Exists query reads.
type ExistsChannel int

const (
	// NormsChannel reads the per-document length norms.
	NormsChannel ExistsChannel = iota
	// FieldNamesChannel reads the stored field-presence marker.
	FieldNamesChannel
)

func (c ExistsChannel) String() string {
	if c == NormsChannel {
		return "norms"
	}
	return "field_names"
}

type Exists struct {
	Field   string
	Channel ExistsChannel
}

type MatchNone struct {
	Reason string
}

func (Term) isQuery()             {}
func (Prefix) isQuery()           {}
func (Phrase) isQuery()           {}
func (MultiPhrase) isQuery()      {}
func (PhrasePrefix) isQuery()     {}
func (SpanTerm) isQuery()         {}
func (SpanGap) isQuery()          {}
func (SpanNear) isQuery()         {}
func (SpanOr) isQuery()           {}
func (FieldMaskingSpan) isQuery() {}
func (BooleanOr) isQuery()        {}
func (BooleanAnd) isQuery()       {}
func (Exists) isQuery()           {}
func (MatchNone) isQuery()        {}

// Kind names the variant of q.
func Kind(q Query) string {
	switch q.(type) {
	case Term:
		return "term"
	case Prefix:
		return "prefix"
	case Phrase:
		return "phrase"
	case MultiPhrase:
		return "multi_phrase"
	case PhrasePrefix:
		return "phrase_prefix"
	case SpanTerm:
		return "span_term"
	case SpanGap:
		return "span_gap"
	case SpanNear:
		return "span_near"
	case SpanOr:
		return "span_or"
	case FieldMaskingSpan:
		return "field_masking_span"
	case BooleanOr:
		return "bool_or"
	case BooleanAnd:
		return "bool_and"
	case Exists:
		return "exists"
	case MatchNone:
		return "match_none"
	default:
		return "unknown"
	}
}

// Format renders q in a compact Lucene-like syntax.
func Format(q Query) string {
	var b strings.Builder
	format(&b, q)
	return b.String()
}

func format(b *strings.Builder, q Query) {
	switch v := q.(type) {
	case Term:
		fmt.Fprintf(b, "%s:%s", v.Field, v.Term)
	case Prefix:
		fmt.Fprintf(b, "%s:%s*", v.Field, v.Prefix)
	case Phrase:
		alts := make([][]string, len(v.Terms))
		for i, t := range v.Terms {
			alts[i] = []string{t}
		}
		formatPhrase(b, v.Field, alts, v.Positions, v.Slop, false)
	case MultiPhrase:
		formatPhrase(b, v.Field, v.Terms, v.Positions, v.Slop, false)
	case PhrasePrefix:
		formatPhrase(b, v.Field, v.Terms, v.Positions, v.Slop, true)
	case SpanTerm:
		fmt.Fprintf(b, "%s:%s", v.Field, v.Term)
	case SpanGap:
		fmt.Fprintf(b, "SpanGap(%s:%d)", v.Field, v.Width)
	case SpanNear:
		b.WriteString("spanNear([")
		formatList(b, v.Clauses, ", ")
		fmt.Fprintf(b, "], %d, %t)", v.Slop, v.InOrder)
	case SpanOr:
		b.WriteString("spanOr([")
		formatList(b, v.Clauses, ", ")
		b.WriteString("])")
	case FieldMaskingSpan:
		b.WriteString("mask(")
		format(b, v.Query)
		fmt.Fprintf(b, ") as %s", v.Field)
	case BooleanOr:
		b.WriteByte('(')
		formatList(b, v.Clauses, " ")
		b.WriteByte(')')
	case BooleanAnd:
		b.WriteByte('(')
		for i, c := range v.Clauses {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte('+')
			format(b, c)
		}
		b.WriteByte(')')
	case Exists:
		fmt.Fprintf(b, "exists(%s, %s)", v.Field, v.Channel)
	case MatchNone:
		fmt.Fprintf(b, "MatchNoDocsQuery(%s)", strconv.Quote(v.Reason))
	default:
		fmt.Fprintf(b, "%T", q)
	}
}

func formatList(b *strings.Builder, qs []Query, sep string) {
	for i, c := range qs {
		if i > 0 {
			b.WriteString(sep)
		}
		format(b, c)
	}
}

// formatPhrase writes field:"a b" with ? for skipped positions and
// parenthesized alternatives.
func formatPhrase(b *strings.Builder, field string, terms [][]string, positions []int, slop int, prefix bool) {
	fmt.Fprintf(b, "%s:\"", field)
	last := -1
	for i, alts := range terms {
		pos := i
		if i < len(positions) {
			pos = positions[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		for skip := last + 1; i > 0 && skip < pos; skip++ {
			b.WriteString("? ")
		}
		last = pos
		if len(alts) > 1 {
			b.WriteByte('(')
		}
		for j, t := range alts {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
			if prefix && i == len(terms)-1 {
				b.WriteByte('*')
			}
		}
		if len(alts) > 1 {
			b.WriteByte(')')
		}
	}
	b.WriteByte('"')
	if slop > 0 {
		fmt.Fprintf(b, "~%d", slop)
	}
}
