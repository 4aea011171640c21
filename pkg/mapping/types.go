package mapping

import (
	"fmt"
	"math"
)

const (
	// TypeName is the only mapping type this package handles.
	TypeName = "text"

	DefaultPositionIncrementGap = 100
	DefaultMinChars             = 2
	DefaultMaxChars             = 5
	// MaxChars is the exclusive upper bound for index_prefixes.max_chars.
	MaxChars = 20

	DefaultBoost = 1.0
)

// IndexOptions controls how much is written to the postings of a field.
// Each level includes the ones below it.
type IndexOptions int

const (
	IndexDocs IndexOptions = iota
	IndexFreqs
	IndexPositions
	IndexOffsets
)

var indexOptionNames = [...]string{"docs", "freqs", "positions", "offsets"}

func (o IndexOptions) String() string {
	if o < IndexDocs || o > IndexOffsets {
		return fmt.Sprintf("IndexOptions(%d)", int(o))
	}
	return indexOptionNames[o]
}

func (o IndexOptions) HasFreqs() bool     { return o >= IndexFreqs }
func (o IndexOptions) HasPositions() bool { return o >= IndexPositions }
func (o IndexOptions) HasOffsets() bool   { return o >= IndexOffsets }

// ParseIndexOptions accepts the serialized names docs, freqs, positions and offsets.
func ParseIndexOptions(s string) (IndexOptions, error) {
	for i, n := range indexOptionNames {
		if n == s {
			return IndexOptions(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value [%s] for index_options", s)
}

// TermVector selects what is kept in per-document term vectors.
type TermVector int

const (
	TermVectorNo TermVector = iota
	TermVectorYes
	TermVectorWithOffsets
	TermVectorWithPositions
	TermVectorWithPositionsOffsets
	TermVectorWithPositionsOffsetsPayloads
)

var termVectorNames = [...]string{
	"no",
	"yes",
	"with_offsets",
	"with_positions",
	"with_positions_offsets",
	"with_positions_offsets_payloads",
}

func (tv TermVector) String() string {
	if tv < TermVectorNo || tv > TermVectorWithPositionsOffsetsPayloads {
		return fmt.Sprintf("TermVector(%d)", int(tv))
	}
	return termVectorNames[tv]
}

func (tv TermVector) Stored() bool { return tv != TermVectorNo }

func (tv TermVector) Positions() bool {
	return tv == TermVectorWithPositions || tv == TermVectorWithPositionsOffsets || tv == TermVectorWithPositionsOffsetsPayloads
}

func (tv TermVector) Offsets() bool {
	return tv == TermVectorWithOffsets || tv == TermVectorWithPositionsOffsets || tv == TermVectorWithPositionsOffsetsPayloads
}

func (tv TermVector) Payloads() bool { return tv == TermVectorWithPositionsOffsetsPayloads }

func ParseTermVector(s string) (TermVector, error) {
	for i, n := range termVectorNames {
		if n == s {
			return TermVector(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value [%s] for term_vector", s)
}

// FrequencyFilter bounds the document frequency of terms loaded into
// fielddata. Bounds above 1 are absolute document counts, bounds at or below
// 1 are ratios of the segment's document count.
type FrequencyFilter struct {
	Min            float64
	Max            float64
	MinSegmentSize int
}

// DefaultFrequencyFilter accepts every term.
var DefaultFrequencyFilter = FrequencyFilter{Min: 0, Max: math.MaxInt32, MinSegmentSize: 0}

func (f FrequencyFilter) IsDefault() bool { return f == DefaultFrequencyFilter }

// PrefixConfig is the index_prefixes setting.
type PrefixConfig struct {
	MinChars int
	MaxChars int
}

func DefaultPrefixConfig() PrefixConfig {
	return PrefixConfig{MinChars: DefaultMinChars, MaxChars: DefaultMaxChars}
}

func (p PrefixConfig) String() string {
	return fmt.Sprintf("{min_chars=%d, max_chars=%d}", p.MinChars, p.MaxChars)
}

func prefixString(p *PrefixConfig) string {
	if p == nil {
		return "null"
	}
	return p.String()
}
