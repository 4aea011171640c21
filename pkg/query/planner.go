package query

import (
	"fmt"
	"unicode/utf8"

	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/logger"
	"SearchMapper/pkg/mapping"

	"go.uber.org/zap"
)

// DefaultPathLimit caps the number of paths expanded from a graph token
// stream before the planner gives up on per-path plans.
const DefaultPathLimit = 64

// Planner builds phrase, phrase-prefix, prefix and exists queries for one
// validated mapping. It holds no mutable state and may be shared.
type Planner struct {
	m         *mapping.TextFieldMapping
	quote     analysis.Analyzer
	prefix    mapping.AuxiliarySubfield
	hasPrefix bool
	phrase    bool
	positions bool
	pathLimit int
}

// Option tunes a Planner.
type Option func(*Planner)

// WithPathLimit sets the graph path limit.
func WithPathLimit(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.pathLimit = n
		}
	}
}

// NewPlanner plans against m, analyzing query text with its search_quote
// analyzer.
func NewPlanner(m *mapping.TextFieldMapping, opts ...Option) *Planner {
	p := &Planner{
		m:         m,
		quote:     m.Chain().SearchQuote.Analyzer,
		phrase:    m.IndexPhrases(),
		positions: m.IndexOptions().HasPositions(),
		pathLimit: DefaultPathLimit,
	}
	p.prefix, p.hasPrefix = mapping.Prefix(m)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) field() string { return p.m.Name() }

func (p *Planner) analyze(text string) analysis.TokenStream {
	if p.quote == nil {
		return nil
	}
	return p.quote.Analyze(text)
}

// PlanPhrase analyzes text and plans a phrase query with the given slop.
func (p *Planner) PlanPhrase(text string, slop int) Query {
	return p.PlanPhraseTokens(p.analyze(text), slop)
}

// PlanPhraseTokens plans a phrase query over an analyzed stream.
func (p *Planner) PlanPhraseTokens(ts analysis.TokenStream, slop int) Query {
	if len(ts) == 0 {
		return MatchNone{Reason: "phrase analyzed to no tokens"}
	}
	if !p.positions && len(ts.Positions()) > 1 {
		return p.noPositions("phrase")
	}
	if ts.IsGraph() {
		paths, complete := ts.Paths(p.pathLimit)
		if complete {
			clauses := make([]Query, 0, len(paths))
			for _, path := range paths {
				clauses = append(clauses, p.phrase1(path.Positions(), slop))
			}
			if len(clauses) == 1 {
				return clauses[0]
			}
			return BooleanOr{Clauses: clauses}
		}
		logger.Debug("graph phrase exceeds path limit, planning positions only",
			zap.String("field", p.field()), zap.Int("limit", p.pathLimit))
		return p.basePhrase(ts.Positions(), slop)
	}
	return p.phrase1(ts.Positions(), slop)
}

// phrase1 plans a stream without multi-position tokens.
func (p *Planner) phrase1(positions []analysis.Position, slop int) Query {
	if len(positions) == 1 {
		return p.single(positions[0])
	}
	if slop == 0 && p.phrase && !hasGaps(positions) {
		return p.shingles(positions)
	}
	return p.basePhrase(positions, slop)
}

// single matches one position on the base field.
func (p *Planner) single(pos analysis.Position) Query {
	terms := pos.Terms()
	if len(terms) == 1 {
		return Term{Field: p.field(), Term: terms[0]}
	}
	clauses := make([]Query, len(terms))
	for i, t := range terms {
		clauses[i] = Term{Field: p.field(), Term: t}
	}
	return BooleanOr{Clauses: clauses}
}

// shingles matches adjacent pairs as single terms on the phrase sub-field.
// Alternatives at a position multiply into alternative shingles.
func (p *Planner) shingles(positions []analysis.Position) Query {
	field := mapping.PhraseFieldName(p.field())
	alts := make([][]string, 0, len(positions)-1)
	stacked := false
	for i := 0; i+1 < len(positions); i++ {
		var pair []string
		for _, left := range positions[i].Terms() {
			for _, right := range positions[i+1].Terms() {
				pair = append(pair, mapping.Shingle(left, right))
			}
		}
		stacked = stacked || len(pair) > 1
		alts = append(alts, pair)
	}
	rel := make([]int, len(alts))
	for i := range rel {
		rel[i] = i
	}
	if stacked {
		return MultiPhrase{Field: field, Terms: alts, Positions: rel}
	}
	terms := make([]string, len(alts))
	for i, a := range alts {
		terms[i] = a[0]
	}
	return Phrase{Field: field, Terms: terms, Positions: rel}
}

// basePhrase is an ordered or sloppy phrase on the base field.
func (p *Planner) basePhrase(positions []analysis.Position, slop int) Query {
	rel := relative(positions)
	alts := make([][]string, len(positions))
	stacked := false
	for i, pos := range positions {
		alts[i] = pos.Terms()
		stacked = stacked || len(alts[i]) > 1
	}
	if stacked {
		return MultiPhrase{Field: p.field(), Terms: alts, Positions: rel, Slop: slop}
	}
	terms := make([]string, len(alts))
	for i, a := range alts {
		terms[i] = a[0]
	}
	return Phrase{Field: p.field(), Terms: terms, Positions: rel, Slop: slop}
}

// noPositions rejects a positional query on a field indexed without
// positions, where it could never match.
func (p *Planner) noPositions(kind string) Query {
	logger.Debug("positional query on field without positions",
		zap.String("field", p.field()), zap.String("query", kind))
	return MatchNone{Reason: fmt.Sprintf("field [%s] was indexed without position data; cannot run %s query", p.field(), kind)}
}

// PlanPhrasePrefix analyzes text and plans a phrase-prefix query.
func (p *Planner) PlanPhrasePrefix(text string, slop int) Query {
	return p.PlanPhrasePrefixTokens(p.analyze(text), slop)
}

// PlanPhrasePrefixTokens plans a phrase-prefix query over an analyzed
// stream. The prefix sub-field is used only for multi-position, zero-slop
// phrases whose last terms fit the sub-field's length bounds.
func (p *Planner) PlanPhrasePrefixTokens(ts analysis.TokenStream, slop int) Query {
	positions := ts.Positions()
	if len(positions) == 0 {
		return MatchNone{Reason: "phrase prefix analyzed to no tokens"}
	}
	if !p.positions && len(positions) > 1 {
		return p.noPositions("phrase prefix")
	}
	if len(positions) > 1 && slop == 0 && p.hasPrefix && p.prefixFits(positions[len(positions)-1]) {
		return p.spanPrefix(positions)
	}
	alts := make([][]string, len(positions))
	for i, pos := range positions {
		alts[i] = pos.Terms()
	}
	return PhrasePrefix{Field: p.field(), Terms: alts, Positions: relative(positions), Slop: slop}
}

func (p *Planner) prefixFits(last analysis.Position) bool {
	for _, t := range last.Tokens {
		if !p.prefix.AcceptsLength(t.Len()) {
			return false
		}
	}
	return true
}

// spanPrefix matches every position but the last exactly on the base field
// and the last one on the prefix sub-field, masked into the base field.
func (p *Planner) spanPrefix(positions []analysis.Position) Query {
	field := p.field()
	clauses := make([]Query, 0, 2*len(positions))
	for i, pos := range positions {
		if i > 0 {
			if gap := pos.Pos - positions[i-1].Pos - 1; gap > 0 {
				clauses = append(clauses, SpanGap{Field: field, Width: gap})
			}
		}
		if i == len(positions)-1 {
			clauses = append(clauses, p.maskedPrefix(pos))
			break
		}
		terms := pos.Terms()
		if len(terms) == 1 {
			clauses = append(clauses, SpanTerm{Field: field, Term: terms[0]})
			continue
		}
		or := SpanOr{Clauses: make([]Query, len(terms))}
		for j, t := range terms {
			or.Clauses[j] = SpanTerm{Field: field, Term: t}
		}
		clauses = append(clauses, or)
	}
	return SpanNear{Field: field, Clauses: clauses, Slop: 0, InOrder: true}
}

func (p *Planner) maskedPrefix(pos analysis.Position) Query {
	terms := pos.Terms()
	masked := make([]Query, len(terms))
	for i, t := range terms {
		masked[i] = FieldMaskingSpan{Query: SpanTerm{Field: p.prefix.Name, Term: t}, Field: p.field()}
	}
	if len(masked) == 1 {
		return masked[0]
	}
	return SpanOr{Clauses: masked}
}

// PlanPrefix plans a prefix query. Prefixes within the sub-field's bounds
// become a single term lookup on it.
func (p *Planner) PlanPrefix(prefix string) Query {
	if p.hasPrefix && p.prefix.AcceptsLength(utf8.RuneCountInString(prefix)) {
		return Term{Field: p.prefix.Name, Term: prefix}
	}
	return Prefix{Field: p.field(), Prefix: prefix}
}

// PlanExists plans an existence check. It reads norms when they are
// written and the field-presence marker otherwise; postings are never
// consulted.
func (p *Planner) PlanExists() Query {
	if p.m.Norms() {
		return Exists{Field: p.field(), Channel: NormsChannel}
	}
	return Exists{Field: p.field(), Channel: FieldNamesChannel}
}

func hasGaps(positions []analysis.Position) bool {
	for i := 1; i < len(positions); i++ {
		if positions[i].Pos-positions[i-1].Pos > 1 {
			return true
		}
	}
	return false
}

func relative(positions []analysis.Position) []int {
	rel := make([]int, len(positions))
	for i, pos := range positions {
		rel[i] = pos.Pos - positions[0].Pos
	}
	return rel
}
