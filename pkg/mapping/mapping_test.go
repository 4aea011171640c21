package mapping

import (
	"fmt"
	"testing"

	"SearchMapper/pkg/analysis"
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testRegistry(t *testing.T) *analysis.Registry {
	t.Helper()
	r, err := analysis.NewRegistry()
	require.NoError(t, err)
	return r
}

func build(t *testing.T, raw map[string]interface{}) (*TextFieldMapping, error) {
	t.Helper()
	cfg, err := Parse("field", raw)
	if err != nil {
		return nil, err
	}
	return Build(cfg, testRegistry(t))
}

func mustBuild(t *testing.T, raw map[string]interface{}) *TextFieldMapping {
	t.Helper()
	m, err := build(t, raw)
	require.NoError(t, err)
	return m
}

func TestDefaults(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{"type": "text"})

	assert.True(t, m.Indexed())
	assert.False(t, m.Stored())
	assert.True(t, m.Norms())
	assert.Equal(t, IndexPositions, m.IndexOptions())
	assert.Equal(t, TermVectorNo, m.TermVector())
	assert.Equal(t, DefaultPositionIncrementGap, m.PositionIncrementGap())
	assert.False(t, m.Fielddata())
	assert.True(t, m.FrequencyFilter().IsDefault())
	assert.False(t, m.IndexPhrases())
	_, ok := m.IndexPrefixes()
	assert.False(t, ok)
	assert.Empty(t, Derive(m))

	refs := m.Analyzers().Effective()
	assert.Equal(t, analysis.DefaultName, refs.Index)
	assert.Equal(t, analysis.DefaultName, refs.Search)
	assert.Equal(t, analysis.DefaultName, refs.SearchQuote)

	out, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text"}`, string(out))
}

func TestCoercion(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{
		"eager_global_ordinals":  "true",
		"index_prefixes":         map[string]interface{}{"min_chars": "3"},
		"position_increment_gap": "7",
	})
	assert.True(t, m.EagerGlobalOrdinals())
	p, ok := m.IndexPrefixes()
	require.True(t, ok)
	assert.Equal(t, PrefixConfig{MinChars: 3, MaxChars: DefaultMaxChars}, p)
	assert.Equal(t, 7, m.PositionIncrementGap())
}

func TestIndexPrefixesDefaultsAndNull(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{"index_prefixes": map[string]interface{}{}})
	p, ok := m.IndexPrefixes()
	require.True(t, ok)
	assert.Equal(t, DefaultPrefixConfig(), p)

	aux := Derive(m)
	require.Len(t, aux, 1)
	assert.Equal(t, PrefixSubfield, aux[0].Kind)
	assert.Equal(t, "field._index_prefix", aux[0].Name)
	assert.Equal(t, 2, aux[0].MinChars)
	assert.Equal(t, 5, aux[0].MaxChars)

	m = mustBuild(t, map[string]interface{}{"index_prefixes": nil})
	_, ok = m.IndexPrefixes()
	assert.False(t, ok)
}

func TestPrefixBounds(t *testing.T) {
	for min := -1; min <= 21; min++ {
		for max := -1; max <= 21; max++ {
			_, err := build(t, map[string]interface{}{
				"index_prefixes": map[string]interface{}{"min_chars": min, "max_chars": max},
			})
			valid := min >= 1 && min < max && max < MaxChars
			if valid {
				assert.NoError(t, err, "min=%d max=%d", min, max)
			} else {
				assert.ErrorIs(t, err, mserrors.ErrValidation, "min=%d max=%d", min, max)
			}
		}
	}
}

func TestValidationMessages(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
		msg  string
	}{
		{
			name: "min_chars above max_chars",
			raw:  map[string]interface{}{"index_prefixes": map[string]interface{}{"min_chars": 11, "max_chars": 10}},
			msg:  "min_chars [11] must be less than max_chars [10]",
		},
		{
			name: "zero min_chars",
			raw:  map[string]interface{}{"index_prefixes": map[string]interface{}{"min_chars": 0, "max_chars": 10}},
			msg:  "min_chars [0] must be greater than zero",
		},
		{
			name: "max_chars too large",
			raw:  map[string]interface{}{"index_prefixes": map[string]interface{}{"min_chars": 1, "max_chars": 25}},
			msg:  "max_chars [25] must be less than 20",
		},
		{
			name: "prefixes on unindexed field",
			raw:  map[string]interface{}{"index": false, "index_prefixes": map[string]interface{}{}},
			msg:  "Cannot set index_prefixes on unindexed field [field]",
		},
		{
			name: "phrases on unindexed field",
			raw:  map[string]interface{}{"index": false, "index_phrases": true},
			msg:  "Cannot set index_phrases on unindexed field [field]",
		},
		{
			name: "phrases without positions",
			raw:  map[string]interface{}{"index_options": "freqs", "index_phrases": true},
			msg:  "Cannot set index_phrases on field [field] if positions are not enabled",
		},
		{
			name: "gap on unindexed field",
			raw:  map[string]interface{}{"index": false, "position_increment_gap": 10},
			msg:  "Cannot set position_increment_gap on field [field] without indexing enabled",
		},
		{
			name: "gap without positions",
			raw:  map[string]interface{}{"index_options": "docs", "position_increment_gap": 10},
			msg:  "Cannot set position_increment_gap on field [field] without positions enabled",
		},
		{
			name: "null analyzer",
			raw:  map[string]interface{}{"analyzer": nil},
			msg:  "[analyzer] on mapper [field] of type [text] must not have a [null] value",
		},
		{
			name: "null search_quote_analyzer",
			raw:  map[string]interface{}{"search_quote_analyzer": nil},
			msg:  "[search_quote_analyzer] on mapper [field] of type [text] must not have a [null] value",
		},
		{
			name: "unknown parameter",
			raw:  map[string]interface{}{"analyser": "standard"},
			msg:  "unknown parameter [analyser] on mapper [field] of type [text]",
		},
		{
			name: "reserved prefix name",
			raw: map[string]interface{}{
				"index_prefixes": map[string]interface{}{},
				"fields":         map[string]interface{}{"_index_prefix": map[string]interface{}{"type": "text"}},
			},
			msg: "Field [field._index_prefix] is defined more than once",
		},
		{
			name: "reserved phrase name",
			raw: map[string]interface{}{
				"index_phrases": true,
				"fields":        map[string]interface{}{"_index_phrase": map[string]interface{}{"type": "text"}},
			},
			msg: "Field [field._index_phrase] is defined more than once",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := build(t, tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, mserrors.ErrValidation)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestGapDefaultAllowedOnUnindexedField(t *testing.T) {
	_, err := build(t, map[string]interface{}{"index": false, "position_increment_gap": DefaultPositionIncrementGap})
	assert.NoError(t, err)
}

func TestFielddataOnUnindexedField(t *testing.T) {
	_, err := build(t, map[string]interface{}{"index": false, "fielddata": true})
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrFielddataDisabledOnUnindexedField)
	assert.Contains(t, err.Error(), "Cannot enable fielddata on a [text] field that is not indexed")
}

func TestUnknownAnalyzer(t *testing.T) {
	_, err := build(t, map[string]interface{}{"search_analyzer": "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrUnknownAnalyzer)
	assert.ErrorIs(t, err, mserrors.ErrValidation)
}

func TestSubfields(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{
		"fields": map[string]interface{}{
			"raw": map[string]interface{}{"type": "text", "analyzer": "keyword"},
		},
	})
	assert.Equal(t, []string{"raw"}, m.FieldNames())
	raw, ok := m.Field("raw")
	require.True(t, ok)
	assert.Equal(t, "field.raw", raw.Name())
	assert.Equal(t, "keyword", raw.Chain().Index.Name)

	_, err := build(t, map[string]interface{}{
		"fields": map[string]interface{}{"num": map[string]interface{}{"type": "long"}},
	})
	assert.ErrorIs(t, err, mserrors.ErrValidation)
}

func TestPrefixSubfieldIndexOptions(t *testing.T) {
	cases := []struct {
		raw  map[string]interface{}
		opts IndexOptions
		tv   TermVector
	}{
		{map[string]interface{}{"index_options": "offsets"}, IndexOffsets, TermVectorNo},
		{map[string]interface{}{"index_options": "freqs"}, IndexDocs, TermVectorNo},
		{map[string]interface{}{"index_options": "docs"}, IndexDocs, TermVectorNo},
		{map[string]interface{}{"index_options": "positions"}, IndexPositions, TermVectorNo},
		{map[string]interface{}{"term_vector": "with_positions_offsets"}, IndexPositions, TermVectorWithPositionsOffsets},
		{map[string]interface{}{"term_vector": "with_positions"}, IndexPositions, TermVectorWithPositions},
		{map[string]interface{}{"term_vector": "with_offsets"}, IndexPositions, TermVectorNo},
		{map[string]interface{}{"term_vector": "with_positions_offsets_payloads"}, IndexPositions, TermVectorWithPositionsOffsets},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.raw), func(t *testing.T) {
			tc.raw["analyzer"] = "standard"
			tc.raw["index_prefixes"] = map[string]interface{}{}
			m := mustBuild(t, tc.raw)
			p, ok := Prefix(m)
			require.True(t, ok)
			assert.Equal(t, tc.opts, p.IndexOptions)
			assert.Equal(t, tc.tv, p.TermVector)
		})
	}
}

func TestDeriveBoth(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{
		"index_options":  "offsets",
		"index_phrases":  true,
		"index_prefixes": map[string]interface{}{"min_chars": 1, "max_chars": 10},
		"term_vector":    "with_positions_offsets",
	})
	aux := Derive(m)
	require.Len(t, aux, 2)
	assert.Equal(t, "field._index_prefix", aux[0].Name)
	assert.Equal(t, PhraseSubfield, aux[1].Kind)
	assert.Equal(t, "field._index_phrase", aux[1].Name)
	assert.Equal(t, IndexOffsets, aux[1].IndexOptions)
	assert.Equal(t, TermVectorNo, aux[1].TermVector)
	assert.Equal(t, "field", aux[1].Parent)
}

func TestPrefixTerms(t *testing.T) {
	p := AuxiliarySubfield{Kind: PrefixSubfield, MinChars: 2, MaxChars: 4}
	assert.Equal(t, []string{"wo", "wor", "word"}, p.PrefixTerms("words"))
	assert.Equal(t, []string{"tw", "two"}, p.PrefixTerms("two"))
	assert.Nil(t, p.PrefixTerms("a"))
	assert.Equal(t, []string{"éc", "éco"}, p.PrefixTerms("éco"))
	assert.True(t, p.AcceptsLength(2))
	assert.True(t, p.AcceptsLength(4))
	assert.False(t, p.AcceptsLength(5))
	assert.False(t, p.AcceptsLength(1))
	assert.Equal(t, "two words", Shingle("two", "words"))
}

func TestSerializeOrder(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{
		"meta":           map[string]interface{}{"b": "2", "a": "1"},
		"copy_to":        "other",
		"index_prefixes": map[string]interface{}{"min_chars": 1, "max_chars": 10},
		"index_phrases":  true,
		"analyzer":       "whitespace",
		"store":          true,
	})
	out, err := Serialize(m, false)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"text","store":true,"analyzer":"whitespace","index_phrases":true,`+
			`"index_prefixes":{"min_chars":1,"max_chars":10},"copy_to":["other"],"meta":{"a":"1","b":"2"}}`,
		string(out))
}

func TestSerializeIncludeDefaults(t *testing.T) {
	m := mustBuild(t, map[string]interface{}{"analyzer": "whitespace"})
	out, err := Serialize(m, true)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"analyzer":"whitespace"`)
	assert.Contains(t, s, `"search_analyzer":"whitespace"`)
	assert.Contains(t, s, `"search_quote_analyzer":"whitespace"`)
	assert.Contains(t, s, `"index_prefixes":null`)
	assert.Contains(t, s, `"position_increment_gap":100`)

	cfg, err := ParseJSON("field", out)
	require.NoError(t, err)
	again, err := Build(cfg, testRegistry(t))
	require.NoError(t, err)
	assert.True(t, m.Equal(again))
}

func TestMergeIdempotence(t *testing.T) {
	configs := []map[string]interface{}{
		{},
		{"store": true, "norms": false, "similarity": "BM25"},
		{"analyzer": "whitespace", "search_analyzer": "standard", "search_quote_analyzer": "keyword"},
		{"index_prefixes": map[string]interface{}{"min_chars": 1, "max_chars": 10}, "index_phrases": true},
		{"term_vector": "with_positions_offsets", "index_options": "offsets", "position_increment_gap": 0},
		{"fielddata": true, "fielddata_frequency_filter": map[string]interface{}{"min": 0.01, "max": 0.5, "min_segment_size": 50}},
		{"eager_global_ordinals": true, "copy_to": []interface{}{"a", "b"}, "meta": map[string]interface{}{"unit": "words"}},
		{"index": false, "norms": false},
		{"fields": map[string]interface{}{"raw": map[string]interface{}{"type": "text", "analyzer": "keyword"}}},
	}
	for i, raw := range configs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			m := mustBuild(t, raw)
			data, err := m.MarshalJSON()
			require.NoError(t, err)

			cfg, err := ParseJSON("field", data)
			require.NoError(t, err)
			again, err := Build(cfg, testRegistry(t))
			require.NoError(t, err)

			merged, err := Merge(m, again)
			require.NoError(t, err)
			assert.True(t, merged.Equal(m), "round trip of %s", data)
		})
	}
}

func TestMergeFixedParameters(t *testing.T) {
	base := map[string]interface{}{"store": false}
	cases := []struct {
		param string
		raw   map[string]interface{}
	}{
		{"index", map[string]interface{}{"index": false}},
		{"store", map[string]interface{}{"store": true}},
		{"similarity", map[string]interface{}{"similarity": "boolean"}},
		{"analyzer", map[string]interface{}{"analyzer": "whitespace"}},
		{"term_vector", map[string]interface{}{"term_vector": "yes"}},
		{"position_increment_gap", map[string]interface{}{"position_increment_gap": 10}},
		{"index_options", map[string]interface{}{"index_options": "offsets"}},
		{"index_prefixes", map[string]interface{}{"index_prefixes": map[string]interface{}{}}},
		{"index_phrases", map[string]interface{}{"index_phrases": true}},
	}
	current := mustBuild(t, base)
	for _, tc := range cases {
		t.Run(tc.param, func(t *testing.T) {
			incoming := mustBuild(t, tc.raw)
			_, err := Merge(current, incoming)
			require.Error(t, err)
			assert.ErrorIs(t, err, mserrors.ErrMergeConflict)
			assert.Contains(t, err.Error(), fmt.Sprintf("Cannot update parameter [%s]", tc.param))

			var e *mserrors.Error
			require.True(t, mserrors.As(err, &e))
			param, _ := e.Lookup("parameter")
			assert.Equal(t, tc.param, param)
		})
	}
}

func TestMergeIndexPrefixesMessage(t *testing.T) {
	current := mustBuild(t, map[string]interface{}{"index_prefixes": map[string]interface{}{}})
	incoming := mustBuild(t, map[string]interface{}{"index_prefixes": map[string]interface{}{"min_chars": 3}})
	_, err := Merge(current, incoming)
	require.Error(t, err)
	assert.Equal(t,
		"Cannot update parameter [index_prefixes] from [{min_chars=2, max_chars=5}] to [{min_chars=3, max_chars=5}]",
		err.Error())
}

func TestMergeNorms(t *testing.T) {
	on := mustBuild(t, map[string]interface{}{})
	off := mustBuild(t, map[string]interface{}{"norms": false})

	merged, err := Merge(on, off)
	require.NoError(t, err)
	assert.False(t, merged.Norms())

	_, err = Merge(off, on)
	assert.ErrorIs(t, err, mserrors.ErrMergeConflict)
	assert.Contains(t, err.Error(), "Cannot update parameter [norms]")
}

func TestMergeUpdatable(t *testing.T) {
	current := mustBuild(t, map[string]interface{}{"analyzer": "standard"})
	incoming := mustBuild(t, map[string]interface{}{
		"analyzer":              "standard",
		"search_analyzer":       "whitespace",
		"search_quote_analyzer": "keyword",
		"fielddata":             true,
		"eager_global_ordinals": true,
		"boost":                 2.0,
		"meta":                  map[string]interface{}{"k": "v"},
		"copy_to":               []interface{}{"all"},
	})
	merged, err := Merge(current, incoming)
	require.NoError(t, err)
	assert.True(t, merged.Fielddata())
	assert.True(t, merged.EagerGlobalOrdinals())
	assert.Equal(t, 2.0, merged.Boost())
	assert.Equal(t, map[string]string{"k": "v"}, merged.Meta())
	assert.Equal(t, []string{"all"}, merged.CopyTo())
	assert.Equal(t, "whitespace", merged.Chain().Search.Name)
	assert.Equal(t, "keyword", merged.Chain().SearchQuote.Name)

	// current is untouched
	assert.False(t, current.Fielddata())
	assert.Equal(t, "standard", current.Chain().Search.Name)
}

func TestMergeCollectsConflicts(t *testing.T) {
	current := mustBuild(t, map[string]interface{}{
		"fields": map[string]interface{}{"raw": map[string]interface{}{"analyzer": "keyword"}},
	})
	incoming := mustBuild(t, map[string]interface{}{
		"store":  true,
		"fields": map[string]interface{}{"raw": map[string]interface{}{"analyzer": "whitespace"}},
	})
	_, err := Merge(current, incoming)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "[store]")
	assert.Contains(t, errs[1].Error(), "[analyzer]")

	var e *mserrors.Error
	require.True(t, mserrors.As(errs[1], &e))
	field, _ := e.Lookup("field")
	assert.Equal(t, "field.raw", field)
}

func TestMergeUnionsFields(t *testing.T) {
	current := mustBuild(t, map[string]interface{}{
		"fields": map[string]interface{}{"raw": map[string]interface{}{"analyzer": "keyword"}},
	})
	incoming := mustBuild(t, map[string]interface{}{
		"fields": map[string]interface{}{"ws": map[string]interface{}{"analyzer": "whitespace"}},
	})
	merged, err := Merge(current, incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"raw", "ws"}, merged.FieldNames())

	again, err := Merge(merged, merged)
	require.NoError(t, err)
	assert.True(t, again.Equal(merged))
}

func TestBoostDeprecationWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	mustBuild(t, map[string]interface{}{"boost": 2})
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Parameter [boost] on field [field] is deprecated and will be removed in 3.0", entry.Message)
	assert.Equal(t, "field", entry.ContextMap()["field"])

	mustBuild(t, map[string]interface{}{})
	assert.Equal(t, 1, logs.Len())
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		param string
	}{
		{"boost NaN", map[string]interface{}{"boost": "NaN"}, "boost"},
		{"boost Inf", map[string]interface{}{"boost": "Inf"}, "boost"},
		{"filter min NaN", map[string]interface{}{"fielddata_frequency_filter": map[string]interface{}{"min": "NaN"}}, "fielddata_frequency_filter"},
		{"filter max Inf", map[string]interface{}{"fielddata_frequency_filter": map[string]interface{}{"max": "+Inf"}}, "fielddata_frequency_filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, mserrors.ErrValidation)
			assert.Contains(t, err.Error(), "finite")

			var e *mserrors.Error
			require.True(t, mserrors.As(err, &e))
			param, _ := e.Lookup("parameter")
			assert.Equal(t, tt.param, param)
		})
	}

	// finite values still round-trip through serialization
	m := mustBuild(t, map[string]interface{}{
		"boost":                      "1.5",
		"fielddata_frequency_filter": map[string]interface{}{"min": "0.1", "max": "0.9"},
	})
	out, err := Serialize(m, false)
	require.NoError(t, err)
	cfg, err := ParseJSON("field", out)
	require.NoError(t, err)
	again, err := Build(cfg, testRegistry(t))
	require.NoError(t, err)
	merged, err := Merge(m, again)
	require.NoError(t, err)
	assert.True(t, merged.Equal(m))
}
