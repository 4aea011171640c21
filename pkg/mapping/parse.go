package mapping

import (
	"encoding/json"
	"fmt"
	"sort"

	mserrors "SearchMapper/pkg/errors"

	"github.com/spf13/cast"
)

// parameter names as they appear in the serialized mapping
const (
	paramType                     = "type"
	paramStore                    = "store"
	paramIndex                    = "index"
	paramNorms                    = "norms"
	paramSimilarity               = "similarity"
	paramAnalyzer                 = "analyzer"
	paramSearchAnalyzer           = "search_analyzer"
	paramSearchQuoteAnalyzer      = "search_quote_analyzer"
	paramTermVector               = "term_vector"
	paramPositionIncrementGap     = "position_increment_gap"
	paramFielddata                = "fielddata"
	paramFielddataFrequencyFilter = "fielddata_frequency_filter"
	paramEagerGlobalOrdinals      = "eager_global_ordinals"
	paramIndexPhrases             = "index_phrases"
	paramIndexPrefixes            = "index_prefixes"
	paramIndexOptions             = "index_options"
	paramFields                   = "fields"
	paramCopyTo                   = "copy_to"
	paramMeta                     = "meta"
	paramBoost                    = "boost"
)

type paramParser func(c *Config, v interface{}) error

var paramParsers = map[string]paramParser{
	paramType: func(c *Config, v interface{}) error {
		t, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		if t != TypeName {
			return fmt.Errorf("no handler for type [%s] declared on field [%s]", t, c.Name)
		}
		return nil
	},
	paramStore:               boolParam(func(c *Config) *bool { return &c.Store }),
	paramIndex:               boolParam(func(c *Config) *bool { return &c.Index }),
	paramNorms:               boolParam(func(c *Config) *bool { return &c.Norms }),
	paramFielddata:           boolParam(func(c *Config) *bool { return &c.Fielddata }),
	paramEagerGlobalOrdinals: boolParam(func(c *Config) *bool { return &c.EagerGlobalOrdinals }),
	paramIndexPhrases:        boolParam(func(c *Config) *bool { return &c.IndexPhrases }),

	paramSimilarity:          stringParam(func(c *Config) *string { return &c.Similarity }),
	paramAnalyzer:            stringParam(func(c *Config) *string { return &c.Analyzer }),
	paramSearchAnalyzer:      stringParam(func(c *Config) *string { return &c.SearchAnalyzer }),
	paramSearchQuoteAnalyzer: stringParam(func(c *Config) *string { return &c.SearchQuoteAnalyzer }),

	paramTermVector: func(c *Config, v interface{}) error {
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		c.TermVector, err = ParseTermVector(s)
		return err
	},
	paramIndexOptions: func(c *Config, v interface{}) error {
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		c.IndexOptions, err = ParseIndexOptions(s)
		return err
	},
	paramPositionIncrementGap: func(c *Config, v interface{}) (err error) {
		c.PositionIncrementGap, err = cast.ToIntE(v)
		return err
	},
	paramBoost: func(c *Config, v interface{}) (err error) {
		c.Boost, err = cast.ToFloat64E(v)
		return err
	},
	paramFielddataFrequencyFilter: parseFrequencyFilter,
	paramIndexPrefixes:            parseIndexPrefixes,
	paramCopyTo: func(c *Config, v interface{}) error {
		if s, ok := v.(string); ok {
			c.CopyTo = []string{s}
			return nil
		}
		targets, err := cast.ToStringSliceE(v)
		if err != nil {
			return err
		}
		c.CopyTo = targets
		return nil
	},
	paramMeta: func(c *Config, v interface{}) error {
		meta, err := cast.ToStringMapStringE(v)
		if err != nil {
			return err
		}
		c.Meta = meta
		return nil
	},
}

func init() {
	// fields recurse through Parse, which reads paramParsers
	paramParsers[paramFields] = parseFields
}

func boolParam(dst func(*Config) *bool) paramParser {
	return func(c *Config, v interface{}) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func stringParam(dst func(*Config) *string) paramParser {
	return func(c *Config, v interface{}) error {
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		*dst(c) = s
		return nil
	}
}

func parseFrequencyFilter(c *Config, v interface{}) error {
	raw, err := cast.ToStringMapE(v)
	if err != nil {
		return err
	}
	f := DefaultFrequencyFilter
	for k, val := range raw {
		switch k {
		case "min":
			f.Min, err = cast.ToFloat64E(val)
		case "max":
			f.Max, err = cast.ToFloat64E(val)
		case "min_segment_size":
			f.MinSegmentSize, err = cast.ToIntE(val)
		default:
			err = fmt.Errorf("unknown parameter [%s] in [%s]", k, paramFielddataFrequencyFilter)
		}
		if err != nil {
			return err
		}
	}
	c.FielddataFrequencyFilter = f
	return nil
}

func parseIndexPrefixes(c *Config, v interface{}) error {
	if v == nil {
		c.IndexPrefixes = nil
		return nil
	}
	raw, err := cast.ToStringMapE(v)
	if err != nil {
		return err
	}
	p := DefaultPrefixConfig()
	for k, val := range raw {
		switch k {
		case "min_chars":
			p.MinChars, err = cast.ToIntE(val)
		case "max_chars":
			p.MaxChars, err = cast.ToIntE(val)
		default:
			err = fmt.Errorf("unknown parameter [%s] in [%s]", k, paramIndexPrefixes)
		}
		if err != nil {
			return err
		}
	}
	c.IndexPrefixes = &p
	return nil
}

func parseFields(c *Config, v interface{}) error {
	raw, err := cast.ToStringMapE(v)
	if err != nil {
		return err
	}
	fields := make(map[string]*Config, len(raw))
	for name, sub := range raw {
		subRaw, err := cast.ToStringMapE(sub)
		if err != nil {
			return fmt.Errorf("sub-field [%s]: %w", name, err)
		}
		sc, err := Parse(c.Name+"."+name, subRaw)
		if err != nil {
			return err
		}
		fields[name] = sc
	}
	c.Fields = fields
	return nil
}

// Parse turns a raw mapping definition, as decoded from JSON, into a Config.
// Scalar values are coerced, so "true" and "3" are accepted for booleans and
// numbers. Only index_prefixes accepts null.
func Parse(name string, raw map[string]interface{}) (*Config, error) {
	c := NewConfig(name)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		parse, ok := paramParsers[k]
		if !ok {
			return nil, mserrors.Validation(name, "unknown parameter [%s] on mapper [%s] of type [%s]", k, name, TypeName).
				WithContext("parameter", k)
		}
		if v == nil && k != paramIndexPrefixes {
			return nil, mserrors.Validation(name, "[%s] on mapper [%s] of type [%s] must not have a [null] value", k, name, TypeName).
				WithContext("parameter", k)
		}
		if err := parse(c, v); err != nil {
			if mserrors.GetCode(err) != 0 {
				return nil, err
			}
			return nil, mserrors.Validation(name, "failed to parse [%s] on mapper [%s]: %v", k, name, err).
				WithContext("parameter", k)
		}
	}
	return c, nil
}

// ParseJSON decodes a serialized mapping and parses it.
func ParseJSON(name string, data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, mserrors.Validation(name, "malformed mapping for [%s]: %v", name, err)
	}
	return Parse(name, raw)
}
