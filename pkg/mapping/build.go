package mapping

import (
	"fmt"
	"math"
	"sort"

	"SearchMapper/pkg/analysis"
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/logger"

	"go.uber.org/zap"
)

// Resolver resolves analyzer references. *analysis.Registry implements it.
type Resolver interface {
	Resolve(refs analysis.Refs) (analysis.Chain, error)
}

// Build validates cfg and produces an immutable mapping. It reports the first
// violated rule; nothing of cfg is retained on failure.
func Build(cfg *Config, resolver Resolver) (*TextFieldMapping, error) {
	c := cfg.Clone()
	c.canonicalize()

	if err := validate(c); err != nil {
		return nil, err
	}
	chain, err := resolver.Resolve(c.refs())
	if err != nil {
		return nil, err
	}

	m := &TextFieldMapping{cfg: c, chain: chain}
	if len(c.Fields) > 0 {
		m.fields = make(map[string]*TextFieldMapping, len(c.Fields))
		for _, name := range sortedKeys(c.Fields) {
			sub := c.Fields[name]
			sub.Name = c.Name + "." + name
			built, err := Build(sub, resolver)
			if err != nil {
				return nil, err
			}
			// keep the canonical form so Equal compares like with like
			c.Fields[name] = built.cfg
			m.fields[name] = built
		}
	}

	if c.Boost != DefaultBoost {
		logger.Warn(fmt.Sprintf("Parameter [%s] on field [%s] is deprecated and will be removed in 3.0", paramBoost, c.Name),
			zap.String("field", c.Name), zap.Float64("boost", c.Boost))
	}
	return m, nil
}

func validate(c *Config) error {
	name := c.Name

	if c.PositionIncrementGap < 0 {
		return mserrors.Validation(name, "[%s] for field [%s] cannot be negative, got [%d]",
			paramPositionIncrementGap, name, c.PositionIncrementGap).WithContext("parameter", paramPositionIncrementGap)
	}
	if c.PositionIncrementGap != DefaultPositionIncrementGap {
		if !c.Index {
			return mserrors.Validation(name, "Cannot set position_increment_gap on field [%s] without indexing enabled", name).
				WithContext("parameter", paramPositionIncrementGap)
		}
		if !c.IndexOptions.HasPositions() {
			return mserrors.Validation(name, "Cannot set position_increment_gap on field [%s] without positions enabled", name).
				WithContext("parameter", paramPositionIncrementGap)
		}
	}

	if c.Fielddata && !c.Index {
		return mserrors.FielddataDisabled(name)
	}
	if !finite(c.Boost) {
		return mserrors.Validation(name, "[%s] on field [%s] must be a finite number, got [%v]", paramBoost, name, c.Boost).
			WithContext("parameter", paramBoost)
	}
	ff := c.FielddataFrequencyFilter
	if !finite(ff.Min) || !finite(ff.Max) {
		return mserrors.Validation(name, "[%s] bounds on field [%s] must be finite numbers, got min [%v] max [%v]",
			paramFielddataFrequencyFilter, name, ff.Min, ff.Max).WithContext("parameter", paramFielddataFrequencyFilter)
	}
	if ff.Min < 0 || ff.Max < 0 || ff.MinSegmentSize < 0 {
		return mserrors.Validation(name, "[%s] bounds on field [%s] must not be negative", paramFielddataFrequencyFilter, name).
			WithContext("parameter", paramFielddataFrequencyFilter)
	}

	if p := c.IndexPrefixes; p != nil {
		if !c.Index {
			return mserrors.Validation(name, "Cannot set index_prefixes on unindexed field [%s]", name).
				WithContext("parameter", paramIndexPrefixes)
		}
		if p.MinChars < 1 {
			return mserrors.Validation(name, "min_chars [%d] must be greater than zero", p.MinChars).
				WithContext("parameter", paramIndexPrefixes)
		}
		if p.MinChars >= p.MaxChars {
			return mserrors.Validation(name, "min_chars [%d] must be less than max_chars [%d]", p.MinChars, p.MaxChars).
				WithContext("parameter", paramIndexPrefixes)
		}
		if p.MaxChars >= MaxChars {
			return mserrors.Validation(name, "max_chars [%d] must be less than %d", p.MaxChars, MaxChars).
				WithContext("parameter", paramIndexPrefixes)
		}
	}

	if c.IndexPhrases {
		if !c.Index {
			return mserrors.Validation(name, "Cannot set index_phrases on unindexed field [%s]", name).
				WithContext("parameter", paramIndexPhrases)
		}
		if !c.IndexOptions.HasPositions() {
			return mserrors.Validation(name, "Cannot set index_phrases on field [%s] if positions are not enabled", name).
				WithContext("parameter", paramIndexPhrases)
		}
	}

	for _, target := range c.CopyTo {
		if target == "" || target == name {
			return mserrors.Validation(name, "Invalid copy_to target [%s] on field [%s]", target, name).
				WithContext("parameter", paramCopyTo)
		}
	}

	return checkSubfieldNames(c)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// checkSubfieldNames is a flat uniqueness check over the declared and derived
// sub-field names of c.
func checkSubfieldNames(c *Config) error {
	seen := make(map[string]struct{}, len(c.Fields)+2)
	add := func(full string) error {
		if _, dup := seen[full]; dup {
			return mserrors.Validation(c.Name, "Field [%s] is defined more than once", full).
				WithContext("subfield", full)
		}
		seen[full] = struct{}{}
		return nil
	}
	for _, aux := range deriveFromConfig(c) {
		if err := add(aux.Name); err != nil {
			return err
		}
	}
	for _, local := range sortedKeys(c.Fields) {
		if err := add(c.Name + "." + local); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
