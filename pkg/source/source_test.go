package source

import (
	"fmt"
	"testing"

	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/engine"
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMapping(t *testing.T, raw map[string]interface{}) *mapping.TextFieldMapping {
	t.Helper()
	reg, err := analysis.NewRegistry()
	require.NoError(t, err)
	cfg, err := mapping.Parse("title", raw)
	require.NoError(t, err)
	m, err := mapping.Build(cfg, reg)
	require.NoError(t, err)
	return m
}

type values map[uint32][]string

func (v values) StoredFieldValues(field string, doc uint32) []string {
	return v[doc]
}

func TestDeriveGating(t *testing.T) {
	stored := "  The Quick  Brown fox "
	for _, store := range []bool{true, false} {
		for _, copyTo := range [][]interface{}{nil, {"all"}} {
			raw := map[string]interface{}{"store": store}
			if copyTo != nil {
				raw["copy_to"] = copyTo
			}
			t.Run(fmt.Sprint(raw), func(t *testing.T) {
				m := buildMapping(t, raw)
				got, err := Derive(m, &stored)
				if store && copyTo == nil {
					assert.True(t, CanDerive(m))
					require.NoError(t, err)
					assert.Equal(t, stored, got)
					return
				}
				assert.False(t, CanDerive(m))
				assert.ErrorIs(t, err, mserrors.ErrUnsupportedDerivation)
			})
		}
	}
}

func TestDeriveDocument(t *testing.T) {
	m := buildMapping(t, map[string]interface{}{"store": true})
	vals := values{1: {"hello world"}, 3: {}}

	v, ok, err := DeriveDocument(m, vals, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"hello world"}, v)

	_, ok, err = DeriveDocument(m, vals, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = DeriveDocument(m, vals, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = DeriveDocument(buildMapping(t, map[string]interface{}{}), vals, 1)
	assert.ErrorIs(t, err, mserrors.ErrUnsupportedDerivation)
}

func TestDeriveDocumentMultiValued(t *testing.T) {
	reg, err := analysis.NewRegistry()
	require.NoError(t, err)
	cfg, err := mapping.Parse("title", map[string]interface{}{"store": true, "analyzer": analysis.WhitespaceName})
	require.NoError(t, err)
	m, err := mapping.Build(cfg, reg)
	require.NoError(t, err)

	mem := engine.NewMemory(reg)
	require.NoError(t, engine.NewWriter(mem, m).Index(1, "a", "b 12"))

	v, ok, err := DeriveDocument(m, mem, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b 12"}, v)
}

func TestDeriveMissingValue(t *testing.T) {
	_, err := Derive(buildMapping(t, map[string]interface{}{"store": true}), nil)
	assert.ErrorIs(t, err, mserrors.ErrInternal)
}
