package mapping

import (
	mserrors "SearchMapper/pkg/errors"

	"go.uber.org/multierr"
)

// Merge applies incoming on top of current. Fixed parameters must be equal,
// except that norms may be switched off. Updatable parameters are taken from
// incoming. Sub-mappings are unioned; a sub-mapping present on both sides is
// merged recursively. Every conflict is reported and current stays in effect.
func Merge(current, incoming *TextFieldMapping) (*TextFieldMapping, error) {
	if current == nil {
		return incoming, nil
	}
	if incoming == nil {
		return current, nil
	}

	err := checkFixed(current.cfg, incoming.cfg)

	merged := &TextFieldMapping{
		cfg:   incoming.cfg.Clone(),
		chain: incoming.chain,
	}
	if len(current.fields)+len(incoming.fields) > 0 {
		merged.fields = make(map[string]*TextFieldMapping, len(current.fields)+len(incoming.fields))
		merged.cfg.Fields = make(map[string]*Config, len(current.fields)+len(incoming.fields))
	}
	for name, f := range current.fields {
		merged.fields[name] = f
	}
	for name, f := range incoming.fields {
		if cur, ok := current.fields[name]; ok {
			sub, subErr := Merge(cur, f)
			if subErr != nil {
				err = multierr.Append(err, subErr)
				continue
			}
			f = sub
		}
		merged.fields[name] = f
	}
	if err != nil {
		return nil, err
	}
	for name, f := range merged.fields {
		merged.cfg.Fields[name] = f.cfg.Clone()
	}
	return merged, nil
}

func checkFixed(cur, in *Config) error {
	var err error
	conflict := func(param string, from, to interface{}) {
		err = multierr.Append(err, mserrors.MergeConflict(cur.Name, param, from, to))
	}

	if cur.Index != in.Index {
		conflict(paramIndex, cur.Index, in.Index)
	}
	if cur.Store != in.Store {
		conflict(paramStore, cur.Store, in.Store)
	}
	if !cur.Norms && in.Norms {
		conflict(paramNorms, cur.Norms, in.Norms)
	}
	if cur.Similarity != in.Similarity {
		conflict(paramSimilarity, cur.Similarity, in.Similarity)
	}
	if cur.Analyzer != in.Analyzer {
		conflict(paramAnalyzer, cur.Analyzer, in.Analyzer)
	}
	if cur.TermVector != in.TermVector {
		conflict(paramTermVector, cur.TermVector, in.TermVector)
	}
	if cur.PositionIncrementGap != in.PositionIncrementGap {
		conflict(paramPositionIncrementGap, cur.PositionIncrementGap, in.PositionIncrementGap)
	}
	if cur.IndexOptions != in.IndexOptions {
		conflict(paramIndexOptions, cur.IndexOptions, in.IndexOptions)
	}
	if !samePrefixes(cur.IndexPrefixes, in.IndexPrefixes) {
		conflict(paramIndexPrefixes, prefixString(cur.IndexPrefixes), prefixString(in.IndexPrefixes))
	}
	if cur.IndexPhrases != in.IndexPhrases {
		conflict(paramIndexPhrases, cur.IndexPhrases, in.IndexPhrases)
	}
	return err
}

func samePrefixes(a, b *PrefixConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
