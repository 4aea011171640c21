package analysis

import "unicode/utf8"

// Token is one analyzed term. PositionIncrement is relative to the previous
// token; zero means the token is stacked on the previous position (a
// synonym). PositionLength > 1 marks a graph token spanning several
// positions.
type Token struct {
	Term              string
	Start             int
	End               int
	PositionIncrement int
	PositionLength    int
}

// Stacked reports whether the token shares its position with the previous one.
func (t Token) Stacked() bool { return t.PositionIncrement == 0 }

// Len is the term length in runes.
func (t Token) Len() int { return utf8.RuneCountInString(t.Term) }

func (t Token) span() int {
	if t.PositionLength < 1 {
		return 1
	}
	return t.PositionLength
}

// TokenStream is the finite output of one analysis run.
type TokenStream []Token

// Position groups the tokens that occupy one absolute position.
type Position struct {
	Pos    int
	Tokens []Token
}

// Terms returns the alternatives at the position in stream order.
func (p Position) Terms() []string {
	out := make([]string, len(p.Tokens))
	for i, t := range p.Tokens {
		out[i] = t.Term
	}
	return out
}

// Positions resolves increments into absolute positions, starting at 0.
func (ts TokenStream) Positions() []Position {
	var out []Position
	pos := -1
	for _, t := range ts {
		pos += t.PositionIncrement
		if pos < 0 {
			pos = 0
		}
		if n := len(out); n > 0 && out[n-1].Pos == pos {
			out[n-1].Tokens = append(out[n-1].Tokens, t)
			continue
		}
		out = append(out, Position{Pos: pos, Tokens: []Token{t}})
	}
	return out
}

// IsGraph reports whether any token spans more than one position.
func (ts TokenStream) IsGraph() bool {
	for _, t := range ts {
		if t.PositionLength > 1 {
			return true
		}
	}
	return false
}

// HasStacked reports whether any position carries alternatives.
func (ts TokenStream) HasStacked() bool {
	for i, t := range ts {
		if i > 0 && t.Stacked() {
			return true
		}
	}
	return false
}

// Paths enumerates the finite token sequences of a graph stream. Each path is
// returned as a stream without stacking; gaps left by removed tokens are kept
// as position increments. The second result is false if limit was reached
// before every path was produced.
func (ts TokenStream) Paths(limit int) ([]TokenStream, bool) {
	positions := ts.Positions()
	if len(positions) == 0 {
		return nil, true
	}

	var out []TokenStream
	complete := true

	next := func(from, end int) int {
		for j := from + 1; j < len(positions); j++ {
			if positions[j].Pos >= end {
				return j
			}
		}
		return len(positions)
	}

	var walk func(idx, expected int, path TokenStream)
	walk = func(idx, expected int, path TokenStream) {
		if len(out) >= limit {
			complete = false
			return
		}
		if idx >= len(positions) {
			out = append(out, path)
			return
		}
		p := positions[idx]
		for _, tok := range p.Tokens {
			t := tok
			t.PositionIncrement = 1 + p.Pos - expected
			t.PositionLength = 1
			end := p.Pos + tok.span()
			walk(next(idx, end), end, append(path[:len(path):len(path)], t))
		}
	}
	walk(0, positions[0].Pos, nil)
	return out, complete
}
