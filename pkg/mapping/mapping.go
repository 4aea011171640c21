package mapping

import (
	"reflect"
	"sort"

	"SearchMapper/pkg/analysis"
)

// Config is the typed, unvalidated form of a text field mapping. Parse fills
// it from raw JSON-like input; Build validates it into a TextFieldMapping.
type Config struct {
	Name string

	Index        bool
	Store        bool
	Norms        bool
	IndexOptions IndexOptions
	TermVector   TermVector

	// Analyzer references; empty means unset.
	Analyzer            string
	SearchAnalyzer      string
	SearchQuoteAnalyzer string

	PositionIncrementGap int
	EagerGlobalOrdinals  bool

	Fielddata                bool
	FielddataFrequencyFilter FrequencyFilter

	IndexPrefixes *PrefixConfig
	IndexPhrases  bool

	CopyTo     []string
	Similarity string
	Boost      float64
	Meta       map[string]string

	// Fields holds the declared sub-mappings keyed by their local name.
	Fields map[string]*Config
}

// NewConfig returns a config carrying every default.
func NewConfig(name string) *Config {
	return &Config{
		Name:                     name,
		Index:                    true,
		Norms:                    true,
		IndexOptions:             IndexPositions,
		TermVector:               TermVectorNo,
		Analyzer:                 analysis.DefaultName,
		PositionIncrementGap:     DefaultPositionIncrementGap,
		FielddataFrequencyFilter: DefaultFrequencyFilter,
		Boost:                    DefaultBoost,
	}
}

// Clone deep-copies c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.IndexPrefixes != nil {
		p := *c.IndexPrefixes
		out.IndexPrefixes = &p
	}
	if len(c.CopyTo) > 0 {
		out.CopyTo = append([]string(nil), c.CopyTo...)
	}
	if len(c.Meta) > 0 {
		out.Meta = make(map[string]string, len(c.Meta))
		for k, v := range c.Meta {
			out.Meta[k] = v
		}
	}
	if len(c.Fields) > 0 {
		out.Fields = make(map[string]*Config, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v.Clone()
		}
	}
	return &out
}

// canonicalize brings equivalent configs to one representation so that
// equality survives a serialize/parse round trip.
func (c *Config) canonicalize() {
	if c.Analyzer == "" {
		c.Analyzer = analysis.DefaultName
	}
	if c.SearchAnalyzer == c.Analyzer {
		c.SearchAnalyzer = ""
	}
	search := c.SearchAnalyzer
	if search == "" {
		search = c.Analyzer
	}
	if c.SearchQuoteAnalyzer == search {
		c.SearchQuoteAnalyzer = ""
	}
	if len(c.CopyTo) == 0 {
		c.CopyTo = nil
	}
	if len(c.Meta) == 0 {
		c.Meta = nil
	}
	if len(c.Fields) == 0 {
		c.Fields = nil
	}
}

func (c *Config) refs() analysis.Refs {
	return analysis.Refs{
		Field:       c.Name,
		Index:       c.Analyzer,
		Search:      c.SearchAnalyzer,
		SearchQuote: c.SearchQuoteAnalyzer,
	}
}

// TextFieldMapping is a validated, immutable text field mapping. Values are
// shared freely between goroutines; a change produces a new value.
type TextFieldMapping struct {
	cfg    *Config
	chain  analysis.Chain
	fields map[string]*TextFieldMapping
}

func (m *TextFieldMapping) Name() string                     { return m.cfg.Name }
func (m *TextFieldMapping) Indexed() bool                    { return m.cfg.Index }
func (m *TextFieldMapping) Stored() bool                     { return m.cfg.Store }
func (m *TextFieldMapping) IndexOptions() IndexOptions       { return m.cfg.IndexOptions }
func (m *TextFieldMapping) TermVector() TermVector           { return m.cfg.TermVector }
func (m *TextFieldMapping) PositionIncrementGap() int        { return m.cfg.PositionIncrementGap }
func (m *TextFieldMapping) EagerGlobalOrdinals() bool        { return m.cfg.EagerGlobalOrdinals }
func (m *TextFieldMapping) Fielddata() bool                  { return m.cfg.Fielddata }
func (m *TextFieldMapping) FrequencyFilter() FrequencyFilter { return m.cfg.FielddataFrequencyFilter }
func (m *TextFieldMapping) IndexPhrases() bool               { return m.cfg.IndexPhrases }
func (m *TextFieldMapping) Similarity() string               { return m.cfg.Similarity }
func (m *TextFieldMapping) Boost() float64                   { return m.cfg.Boost }

// Norms reports whether length norms are written. Norms need an indexed field.
func (m *TextFieldMapping) Norms() bool { return m.cfg.Norms && m.cfg.Index }

// IndexPrefixes returns the prefix configuration, if any.
func (m *TextFieldMapping) IndexPrefixes() (PrefixConfig, bool) {
	if m.cfg.IndexPrefixes == nil {
		return PrefixConfig{}, false
	}
	return *m.cfg.IndexPrefixes, true
}

// Analyzers returns the analyzer references as configured.
func (m *TextFieldMapping) Analyzers() analysis.Refs { return m.cfg.refs() }

// Chain returns the resolved analyzers.
func (m *TextFieldMapping) Chain() analysis.Chain { return m.chain }

func (m *TextFieldMapping) CopyTo() []string {
	return append([]string(nil), m.cfg.CopyTo...)
}

func (m *TextFieldMapping) Meta() map[string]string {
	out := make(map[string]string, len(m.cfg.Meta))
	for k, v := range m.cfg.Meta {
		out[k] = v
	}
	return out
}

// FieldNames returns the local names of the declared sub-mappings, sorted.
func (m *TextFieldMapping) FieldNames() []string {
	names := make([]string, 0, len(m.fields))
	for n := range m.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Field returns the sub-mapping declared under the local name.
func (m *TextFieldMapping) Field(name string) (*TextFieldMapping, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// Config returns a copy of the configuration the mapping was built from.
func (m *TextFieldMapping) Config() *Config { return m.cfg.Clone() }

// Equal reports whether two mappings carry the same configuration.
func (m *TextFieldMapping) Equal(other *TextFieldMapping) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.DeepEqual(m.cfg, other.cfg)
}
