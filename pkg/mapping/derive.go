package mapping

import "unicode/utf8"

// SubfieldKind tells the two auxiliary sub-fields apart.
type SubfieldKind int

const (
	PrefixSubfield SubfieldKind = iota
	PhraseSubfield
)

func (k SubfieldKind) String() string {
	if k == PhraseSubfield {
		return "phrase"
	}
	return "prefix"
}

const (
	PrefixSuffix = "._index_prefix"
	PhraseSuffix = "._index_phrase"
)

func PrefixFieldName(field string) string { return field + PrefixSuffix }
func PhraseFieldName(field string) string { return field + PhraseSuffix }

// AuxiliarySubfield is a hidden index structure derived from a text field.
// MinChars and MaxChars are only set for prefix sub-fields.
type AuxiliarySubfield struct {
	Kind         SubfieldKind
	Name         string
	Parent       string
	MinChars     int
	MaxChars     int
	IndexOptions IndexOptions
	TermVector   TermVector
}

// Derive lists the auxiliary sub-fields of m: a prefix sub-field when
// index_prefixes is set, then a phrase sub-field when index_phrases is on.
func Derive(m *TextFieldMapping) []AuxiliarySubfield {
	return deriveFromConfig(m.cfg)
}

// Prefix returns the prefix sub-field of m, if any.
func Prefix(m *TextFieldMapping) (AuxiliarySubfield, bool) {
	for _, a := range Derive(m) {
		if a.Kind == PrefixSubfield {
			return a, true
		}
	}
	return AuxiliarySubfield{}, false
}

func deriveFromConfig(c *Config) []AuxiliarySubfield {
	var out []AuxiliarySubfield
	if p := c.IndexPrefixes; p != nil {
		out = append(out, AuxiliarySubfield{
			Kind:         PrefixSubfield,
			Name:         PrefixFieldName(c.Name),
			Parent:       c.Name,
			MinChars:     p.MinChars,
			MaxChars:     p.MaxChars,
			IndexOptions: prefixIndexOptions(c.IndexOptions),
			TermVector:   prefixTermVector(c.TermVector),
		})
	}
	if c.IndexPhrases {
		out = append(out, AuxiliarySubfield{
			Kind:         PhraseSubfield,
			Name:         PhraseFieldName(c.Name),
			Parent:       c.Name,
			IndexOptions: c.IndexOptions,
			TermVector:   TermVectorNo,
		})
	}
	return out
}

func prefixIndexOptions(parent IndexOptions) IndexOptions {
	switch {
	case parent.HasOffsets():
		return IndexOffsets
	case !parent.HasPositions():
		return IndexDocs
	default:
		return IndexPositions
	}
}

func prefixTermVector(parent TermVector) TermVector {
	if !parent.Positions() {
		return TermVectorNo
	}
	if parent.Offsets() {
		return TermVectorWithPositionsOffsets
	}
	return TermVectorWithPositions
}

// AcceptsLength reports whether a prefix of n runes is indexed.
func (a AuxiliarySubfield) AcceptsLength(n int) bool {
	return a.Kind == PrefixSubfield && n >= a.MinChars && n <= a.MaxChars
}

// PrefixTerms returns the prefixes of term written to the prefix sub-field:
// lengths MinChars through min(len(term), MaxChars), counted in runes.
func (a AuxiliarySubfield) PrefixTerms(term string) []string {
	n := utf8.RuneCountInString(term)
	if a.Kind != PrefixSubfield || n < a.MinChars {
		return nil
	}
	upper := a.MaxChars
	if n < upper {
		upper = n
	}
	out := make([]string, 0, upper-a.MinChars+1)
	count := 0
	for i := range term {
		if count >= a.MinChars && count <= upper {
			out = append(out, term[:i])
		}
		count++
	}
	if n <= upper {
		out = append(out, term)
	}
	return out
}

// Shingle joins two adjacent terms into one phrase sub-field term.
func Shingle(left, right string) string { return left + " " + right }
