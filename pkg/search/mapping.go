// Package search exports text field mappings to a bleve index mapping so
// documents can be indexed with the same analysis and auxiliary sub-fields.
package search

import (
	"sort"

	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/mapping"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/shingle"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/letter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	blevemapping "github.com/blevesearch/bleve/v2/mapping"
	"github.com/spf13/cast"
)

// components is a tokenizer plus token filters, the shape of a bleve custom
// analyzer.
type components struct {
	tokenizer string
	filters   []string
}

// builtins describes bleve's stock analyzers as components so the auxiliary
// analyzers can extend them.
var builtins = map[string]components{
	standard.Name: {tokenizer: unicode.Name, filters: []string{lowercase.Name, en.StopName}},
	simple.Name:   {tokenizer: letter.Name, filters: []string{lowercase.Name}},
	keyword.Name:  {tokenizer: single.Name},
}

type exporter struct {
	reg *analysis.Registry
	idx *blevemapping.IndexMappingImpl
}

// BuildIndexMapping returns a bleve index mapping with one property per
// field. Each property indexes the base field plus its derived prefix and
// phrase sub-fields and any multi-fields.
func BuildIndexMapping(reg *analysis.Registry, fields ...*mapping.TextFieldMapping) (*blevemapping.IndexMappingImpl, error) {
	idx := blevemapping.NewIndexMapping()
	idx.DefaultAnalyzer = reg.DefaultAnalyzer()

	filters := reg.CustomTokenFilters()
	for _, name := range sortedNames(filters) {
		if err := idx.AddCustomTokenFilter(name, filters[name]); err != nil {
			return nil, err
		}
	}
	analyzers := reg.CustomAnalyzers()
	for _, name := range sortedNames(analyzers) {
		if err := idx.AddCustomAnalyzer(name, analyzers[name]); err != nil {
			return nil, err
		}
	}

	e := &exporter{reg: reg, idx: idx}
	doc := blevemapping.NewDocumentMapping()
	doc.Dynamic = false
	for _, m := range fields {
		fms, err := e.fieldMappings(m)
		if err != nil {
			return nil, err
		}
		doc.AddFieldMappingsAt(m.Name(), fms...)
	}
	idx.DefaultMapping = doc

	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *exporter) fieldMappings(m *mapping.TextFieldMapping) ([]*blevemapping.FieldMapping, error) {
	analyzer := e.analyzerName(m.Chain().Index.Name)

	base := blevemapping.NewTextFieldMapping()
	base.Name = m.Name()
	base.Analyzer = analyzer
	base.Index = m.Indexed()
	base.Store = m.Stored()
	base.IncludeInAll = false
	base.IncludeTermVectors = m.Indexed() && m.IndexOptions().HasPositions()
	base.DocValues = m.Fielddata()
	out := []*blevemapping.FieldMapping{base}

	for _, aux := range mapping.Derive(m) {
		name, err := e.auxAnalyzer(analyzer, aux)
		if err != nil {
			return nil, err
		}
		fm := blevemapping.NewTextFieldMapping()
		fm.Name = aux.Name
		fm.Analyzer = name
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = aux.IndexOptions.HasPositions()
		fm.DocValues = false
		out = append(out, fm)
	}

	for _, n := range m.FieldNames() {
		sub, _ := m.Field(n)
		fms, err := e.fieldMappings(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, fms...)
	}
	return out, nil
}

func (e *exporter) analyzerName(name string) string {
	if name == "" || name == analysis.DefaultName {
		return e.reg.DefaultAnalyzer()
	}
	return name
}

// auxAnalyzer defines the analyzer of a derived sub-field: the parent's
// tokenizer and filters followed by edge n-grams or shingles.
func (e *exporter) auxAnalyzer(parent string, aux mapping.AuxiliarySubfield) (string, error) {
	if _, ok := e.idx.CustomAnalysis.Analyzers[aux.Name]; ok {
		return aux.Name, nil
	}

	var filter map[string]interface{}
	switch aux.Kind {
	case mapping.PrefixSubfield:
		filter = map[string]interface{}{
			"type": edgengram.Name,
			"back": false,
			"min":  float64(aux.MinChars),
			"max":  float64(aux.MaxChars),
		}
	default:
		filter = map[string]interface{}{
			"type":            shingle.Name,
			"min":             float64(2),
			"max":             float64(2),
			"output_original": false,
			"separator":       " ",
			"filler":          "",
		}
	}
	filterName := aux.Name + "_filter"
	if err := e.idx.AddCustomTokenFilter(filterName, filter); err != nil {
		return "", err
	}

	c := e.componentsOf(parent)
	filters := make([]interface{}, 0, len(c.filters)+1)
	for _, f := range c.filters {
		filters = append(filters, f)
	}
	filters = append(filters, filterName)
	err := e.idx.AddCustomAnalyzer(aux.Name, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     c.tokenizer,
		"token_filters": filters,
	})
	if err != nil {
		return "", err
	}
	return aux.Name, nil
}

func (e *exporter) componentsOf(name string) components {
	if def, ok := e.reg.CustomAnalyzers()[name]; ok {
		if tok := cast.ToString(def["tokenizer"]); tok != "" {
			return components{tokenizer: tok, filters: cast.ToStringSlice(def["token_filters"])}
		}
	}
	if c, ok := builtins[name]; ok {
		return c
	}
	return components{tokenizer: unicode.Name, filters: []string{lowercase.Name}}
}

func sortedNames(m map[string]map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
