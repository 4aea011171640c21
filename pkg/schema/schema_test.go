package schema

import (
	"context"
	"sync"
	"testing"

	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/cache"
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/metrics"
	"SearchMapper/pkg/query"
	"SearchMapper/pkg/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *analysis.Registry {
	t.Helper()
	reg, err := analysis.NewRegistry()
	require.NoError(t, err)
	return reg
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newResolver(t))

	_, ok := r.Get("title")
	assert.False(t, ok)

	m, err := r.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName})
	require.NoError(t, err)
	got, ok := r.Get("title")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, []string{"title"}, r.Names())
}

func TestPutMerges(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newResolver(t))

	_, err := r.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName})
	require.NoError(t, err)

	// updatable
	m, err := r.Put(ctx, "title", map[string]interface{}{
		"analyzer":              analysis.WhitespaceName,
		"eager_global_ordinals": "true",
		"norms":                 false,
	})
	require.NoError(t, err)
	assert.True(t, m.EagerGlobalOrdinals())
	assert.False(t, m.Norms())

	// fixed
	before, _ := r.Get("title")
	_, err = r.Put(ctx, "title", map[string]interface{}{
		"analyzer":      analysis.WhitespaceName,
		"index_phrases": true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrMergeConflict)
	after, _ := r.Get("title")
	assert.Same(t, before, after)
}

func TestPutRejectsInvalid(t *testing.T) {
	r := NewRegistry(newResolver(t))
	_, err := r.Put(context.Background(), "title", map[string]interface{}{"index": false, "index_phrases": true})
	assert.ErrorIs(t, err, mserrors.ErrValidation)
	_, ok := r.Get("title")
	assert.False(t, ok)
}

func TestPlansAreCachedPerGeneration(t *testing.T) {
	ctx := context.Background()
	plans, err := cache.NewCache(cache.DefaultConfig())
	require.NoError(t, err)
	mt := metrics.NewMetrics(prometheus.NewRegistry())
	r := NewRegistry(newResolver(t), WithPlanCache(plans), WithMetrics(mt))

	_, err = r.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName, "index_prefixes": map[string]interface{}{}})
	require.NoError(t, err)

	q1, err := r.PlanPhrase(ctx, "title", "two words", 0)
	require.NoError(t, err)
	q2, err := r.PlanPhrase(ctx, "title", "two words", 0)
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
	assert.Equal(t, `title:"two words"`, query.Format(q1))

	// merge with norms off publishes a new mapping and drops cached plans
	_, err = r.Put(ctx, "title", map[string]interface{}{
		"analyzer":       analysis.WhitespaceName,
		"index_prefixes": map[string]interface{}{},
		"norms":          false,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, plans.Len())

	q, err := r.PlanExists(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, query.Exists{Field: "title", Channel: query.FieldNamesChannel}, q)

	q, err = r.PlanPrefix(ctx, "title", "wor")
	require.NoError(t, err)
	assert.Equal(t, query.Term{Field: "title._index_prefix", Term: "wor"}, q)

	_, err = r.PlanPhrasePrefix(ctx, "missing", "x", 0)
	assert.ErrorIs(t, err, mserrors.ErrValidation)
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open("sqlite", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r := NewRegistry(newResolver(t), WithStore(s))
	raw := map[string]interface{}{"analyzer": analysis.WhitespaceName, "index_phrases": true, "store": true}
	_, err = r.Put(ctx, "body", raw)
	require.NoError(t, err)
	_, err = r.Put(ctx, "body", raw)
	require.NoError(t, err)

	hist, err := s.History(ctx, "body")
	require.NoError(t, err)
	assert.Len(t, hist, 1, "an identical put is not a new revision")

	restored := NewRegistry(newResolver(t), WithStore(s))
	require.NoError(t, restored.Restore(ctx))
	orig, _ := r.Get("body")
	got, ok := restored.Get("body")
	require.True(t, ok)
	assert.True(t, orig.Equal(got))
}

func TestConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newResolver(t))
	_, err := r.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m, ok := r.Get("title")
				if assert.True(t, ok) {
					_ = m.Norms()
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		_, err := r.Put(ctx, "title", map[string]interface{}{
			"analyzer":              analysis.WhitespaceName,
			"eager_global_ordinals": j%2 == 0,
		})
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestMergeConflictMetrics(t *testing.T) {
	ctx := context.Background()
	promReg := prometheus.NewRegistry()
	r := NewRegistry(newResolver(t), WithMetrics(metrics.NewMetrics(promReg)))
	_, err := r.Put(ctx, "f", map[string]interface{}{"analyzer": analysis.WhitespaceName})
	require.NoError(t, err)
	_, err = r.Put(ctx, "f", map[string]interface{}{"analyzer": analysis.WhitespaceName, "store": true, "index_phrases": true})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(promReg, "mapper_merge_conflicts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per conflicting parameter")
}

func TestRestoreKeepsUnchangedFields(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open("sqlite", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	writer := NewRegistry(newResolver(t), WithStore(s))
	reader := NewRegistry(newResolver(t), WithStore(s))

	_, err = writer.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName})
	require.NoError(t, err)
	require.NoError(t, reader.Restore(ctx))
	first, ok := reader.Get("title")
	require.True(t, ok)

	require.NoError(t, reader.Restore(ctx))
	again, _ := reader.Get("title")
	assert.Same(t, first, again)

	_, err = writer.Put(ctx, "title", map[string]interface{}{"analyzer": analysis.WhitespaceName, "eager_global_ordinals": true})
	require.NoError(t, err)
	require.NoError(t, reader.Restore(ctx))
	updated, _ := reader.Get("title")
	assert.True(t, updated.EagerGlobalOrdinals())
}
