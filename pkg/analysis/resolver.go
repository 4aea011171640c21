package analysis

import (
	mserrors "SearchMapper/pkg/errors"
)

// Refs names the analyzers a field refers to. Empty means unset.
type Refs struct {
	Field       string
	Index       string
	Search      string
	SearchQuote string
}

// Chain is the resolved analyzer set of one field.
type Chain struct {
	Index       Named
	Search      Named
	SearchQuote Named
}

// Effective applies the defaulting rules: search falls back to index and
// search_quote falls back to search.
func (r Refs) Effective() Refs {
	out := r
	if out.Index == "" {
		out.Index = DefaultName
	}
	if out.Search == "" {
		out.Search = out.Index
	}
	if out.SearchQuote == "" {
		out.SearchQuote = out.Search
	}
	return out
}

// Resolve resolves all three analyzer roles of refs.
func (r *Registry) Resolve(refs Refs) (Chain, error) {
	eff := refs.Effective()
	var chain Chain
	roles := []struct {
		role string
		name string
		dst  *Named
	}{
		{"analyzer", eff.Index, &chain.Index},
		{"search_analyzer", eff.Search, &chain.Search},
		{"search_quote_analyzer", eff.SearchQuote, &chain.SearchQuote},
	}
	for _, role := range roles {
		a, err := r.Get(role.name)
		if err != nil {
			return Chain{}, mserrors.UnknownAnalyzer(refs.Field, role.role, role.name)
		}
		*role.dst = a
	}
	return chain, nil
}
