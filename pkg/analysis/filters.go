package analysis

import (
	"fmt"
	"strings"

	blevea "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	SynonymFilterName = "synonym"
	FoldFilterName    = "nfkc_casefold"
)

func init() {
	if err := registry.RegisterTokenFilter(SynonymFilterName, SynonymFilterConstructor); err != nil {
		panic(err)
	}
	if err := registry.RegisterTokenFilter(FoldFilterName, FoldFilterConstructor); err != nil {
		panic(err)
	}
}

// SynonymFilter stacks the synonyms of a term on the term's own position.
// Only single-term synonyms are supported, so the output never spans
// multiple positions.
type SynonymFilter struct {
	synonyms map[string][]string
}

// NewSynonymFilter builds a filter from equivalence groups such as
// "dogs, dog": every member gets the other members stacked on it.
func NewSynonymFilter(groups []string) *SynonymFilter {
	f := &SynonymFilter{synonyms: make(map[string][]string)}
	for _, g := range groups {
		var members []string
		for _, m := range strings.Split(g, ",") {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}
		for _, m := range members {
			for _, other := range members {
				if other != m {
					f.synonyms[m] = append(f.synonyms[m], other)
				}
			}
		}
	}
	return f
}

func (f *SynonymFilter) Filter(input blevea.TokenStream) blevea.TokenStream {
	out := make(blevea.TokenStream, 0, len(input))
	for _, tok := range input {
		out = append(out, tok)
		for _, syn := range f.synonyms[string(tok.Term)] {
			out = append(out, &blevea.Token{
				Term:     []byte(syn),
				Start:    tok.Start,
				End:      tok.End,
				Position: tok.Position,
				Type:     tok.Type,
			})
		}
	}
	return out
}

// SynonymFilterConstructor reads {"synonyms": ["a, b", ...]}.
func SynonymFilterConstructor(config map[string]interface{}, cache *registry.Cache) (blevea.TokenFilter, error) {
	raw, ok := config["synonyms"]
	if !ok {
		return nil, fmt.Errorf("synonym filter requires [synonyms]")
	}
	groups, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("synonym filter: %w", err)
	}
	return NewSynonymFilter(groups), nil
}

// FoldFilter applies NFKC normalization followed by Unicode case folding.
type FoldFilter struct{}

func (FoldFilter) Filter(input blevea.TokenStream) blevea.TokenStream {
	// a Caser is stateful, so each call gets its own
	caser := cases.Fold()
	for _, tok := range input {
		tok.Term = []byte(caser.String(norm.NFKC.String(string(tok.Term))))
	}
	return input
}

func FoldFilterConstructor(config map[string]interface{}, cache *registry.Cache) (blevea.TokenFilter, error) {
	return FoldFilter{}, nil
}
