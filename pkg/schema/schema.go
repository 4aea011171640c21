// Package schema keeps the published text field mappings of an index. Readers
// see an immutable snapshot; updates are merged by a single writer and
// published atomically.
package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"SearchMapper/pkg/cache"
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/logger"
	"SearchMapper/pkg/mapping"
	"SearchMapper/pkg/metrics"
	"SearchMapper/pkg/query"
	"SearchMapper/pkg/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const planCacheType = "plan"

// entry is one published field. gen changes on every publication so plans
// cached against an older mapping are never served.
type entry struct {
	mapping *mapping.TextFieldMapping
	planner *query.Planner
	gen     uint64
}

type snapshot map[string]*entry

// Registry holds the current mapping of every text field.
type Registry struct {
	resolver  mapping.Resolver
	store     *store.Store
	plans     cache.Cache
	metrics   *metrics.Metrics
	pathLimit int

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[snapshot]
	gen     uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore persists every published mapping.
func WithStore(s *store.Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithPlanCache caches planned queries.
func WithPlanCache(c cache.Cache) Option {
	return func(r *Registry) { r.plans = c }
}

// WithMetrics records build, merge and plan metrics. Without it the global
// metrics instance is used when set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithPathLimit is passed on to every planner.
func WithPathLimit(n int) Option {
	return func(r *Registry) { r.pathLimit = n }
}

// NewRegistry creates an empty registry resolving analyzers with resolver.
func NewRegistry(resolver mapping.Resolver, opts ...Option) *Registry {
	r := &Registry{resolver: resolver}
	for _, opt := range opts {
		opt(r)
	}
	if r.plans == nil {
		r.plans, _ = cache.NewCache(cache.Config{Type: "none"})
	}
	empty := snapshot{}
	r.current.Store(&empty)
	return r
}

func (r *Registry) m() *metrics.Metrics {
	if r.metrics != nil {
		return r.metrics
	}
	return metrics.Global()
}

func (r *Registry) load() snapshot { return *r.current.Load() }

// Get returns the published mapping of name.
func (r *Registry) Get(name string) (*mapping.TextFieldMapping, bool) {
	e, ok := r.load()[name]
	if !ok {
		return nil, false
	}
	return e.mapping, true
}

// Names lists the published fields in lexical order.
func (r *Registry) Names() []string {
	s := r.load()
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Put parses raw, builds it and merges it into the current mapping of name.
// On any error the published mapping is left untouched.
func (r *Registry) Put(ctx context.Context, name string, raw map[string]interface{}) (*mapping.TextFieldMapping, error) {
	cfg, err := mapping.Parse(name, raw)
	if err != nil {
		r.recordBuild(err)
		return nil, err
	}
	return r.PutConfig(ctx, cfg)
}

// PutJSON is Put for a serialized mapping.
func (r *Registry) PutJSON(ctx context.Context, name string, data []byte) (*mapping.TextFieldMapping, error) {
	cfg, err := mapping.ParseJSON(name, data)
	if err != nil {
		r.recordBuild(err)
		return nil, err
	}
	return r.PutConfig(ctx, cfg)
}

// PutConfig builds cfg and merges it into the current mapping of cfg.Name.
func (r *Registry) PutConfig(ctx context.Context, cfg *mapping.Config) (*mapping.TextFieldMapping, error) {
	incoming, err := mapping.Build(cfg, r.resolver)
	r.recordBuild(err)
	if err != nil {
		logger.Warn("mapping rejected", zap.String("field", cfg.Name), zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := incoming.Name()
	cur := r.load()[name]
	next := incoming
	if cur != nil {
		next, err = mapping.Merge(cur.mapping, incoming)
		r.recordMerge(err)
		if err != nil {
			logger.Warn("mapping merge rejected", zap.String("field", name), zap.Error(err))
			return nil, err
		}
		if next.Equal(cur.mapping) {
			return cur.mapping, nil
		}
	}

	if r.store != nil {
		src, err := next.MarshalJSON()
		if err != nil {
			return nil, mserrors.Wrapf(err, "serialize mapping [%s]", name)
		}
		if _, err := r.store.SaveRevision(ctx, name, src); err != nil {
			return nil, err
		}
	}

	r.publish(ctx, next)
	logger.Info("mapping published", zap.String("field", name), zap.Bool("update", cur != nil))
	return next, nil
}

// publish installs m. Callers hold r.mu.
func (r *Registry) publish(ctx context.Context, m *mapping.TextFieldMapping) {
	r.gen++
	var opts []query.Option
	if r.pathLimit > 0 {
		opts = append(opts, query.WithPathLimit(r.pathLimit))
	}

	old := r.load()
	next := make(snapshot, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[m.Name()] = &entry{mapping: m, planner: query.NewPlanner(m, opts...), gen: r.gen}
	r.current.Store(&next)

	if err := r.plans.DeletePrefix(ctx, m.Name()+"\x00"); err != nil {
		logger.Warn("plan cache invalidation failed", zap.String("field", m.Name()), zap.Error(err))
	}
	if mt := r.m(); mt != nil {
		mt.SetFieldsActive(len(next))
		mt.SetCacheSize(planCacheType, r.plans.Len())
	}
}

// Restore publishes the latest persisted revision of every stored field.
// Fields whose mapping is unchanged keep their planners and cached plans, so
// it can run periodically to pick up revisions written elsewhere.
func (r *Registry) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	names, err := r.store.Fields(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	for _, name := range names {
		rev, err := r.store.Latest(ctx, name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		cfg, err := mapping.ParseJSON(name, []byte(rev.Source))
		if err == nil {
			var m *mapping.TextFieldMapping
			if m, err = mapping.Build(cfg, r.resolver); err == nil {
				if cur, ok := r.load()[name]; !ok || !cur.mapping.Equal(m) {
					r.publish(ctx, m)
				}
				continue
			}
		}
		errs = multierr.Append(errs, mserrors.Wrapf(err, "restore mapping [%s] version %d", name, rev.Version))
	}
	logger.Debug("schema restored", zap.Int("fields", len(r.load())), zap.Error(errs))
	return errs
}

// Planner returns the planner of a published field.
func (r *Registry) Planner(name string) (*query.Planner, error) {
	e, ok := r.load()[name]
	if !ok {
		return nil, mserrors.Validation(name, "no mapping found for field [%s]", name)
	}
	return e.planner, nil
}

// PlanPhrase plans a phrase query on field, using the plan cache.
func (r *Registry) PlanPhrase(ctx context.Context, field, text string, slop int) (query.Query, error) {
	return r.plan(ctx, "phrase", field, text, slop, func(p *query.Planner) query.Query {
		return p.PlanPhrase(text, slop)
	})
}

// PlanPhrasePrefix plans a phrase-prefix query on field, using the plan cache.
func (r *Registry) PlanPhrasePrefix(ctx context.Context, field, text string, slop int) (query.Query, error) {
	return r.plan(ctx, "phrase_prefix", field, text, slop, func(p *query.Planner) query.Query {
		return p.PlanPhrasePrefix(text, slop)
	})
}

// PlanPrefix plans a prefix query on field.
func (r *Registry) PlanPrefix(ctx context.Context, field, prefix string) (query.Query, error) {
	return r.plan(ctx, "prefix", field, prefix, 0, func(p *query.Planner) query.Query {
		return p.PlanPrefix(prefix)
	})
}

// PlanExists plans an exists query on field.
func (r *Registry) PlanExists(ctx context.Context, field string) (query.Query, error) {
	return r.plan(ctx, "exists", field, "", 0, func(p *query.Planner) query.Query {
		return p.PlanExists()
	})
}

func (r *Registry) plan(ctx context.Context, op, field, text string, slop int, fn func(*query.Planner) query.Query) (query.Query, error) {
	e, ok := r.load()[field]
	if !ok {
		return nil, mserrors.Validation(field, "no mapping found for field [%s]", field)
	}

	key := fmt.Sprintf("%s\x00%d\x00%s\x00%d\x00%s", field, e.gen, op, slop, text)
	mt := r.m()
	if v, ok := r.plans.Get(ctx, key); ok {
		if mt != nil {
			mt.RecordCacheHit(planCacheType, op)
		}
		return v.(query.Query), nil
	}
	if mt != nil {
		mt.RecordCacheMiss(planCacheType, op)
	}

	start := time.Now()
	q := fn(e.planner)
	if mt != nil {
		mt.RecordPlan(op, query.Kind(q), time.Since(start))
	}
	if err := r.plans.Set(ctx, key, q, 0); err != nil {
		logger.Debug("plan not cached", zap.String("field", field), zap.Error(err))
	}
	logger.Debug("query planned", zap.String("field", field), zap.String("op", op), zap.String("query", query.Format(q)))
	return q, nil
}

func (r *Registry) recordBuild(err error) {
	if mt := r.m(); mt != nil {
		mt.RecordBuild(err)
	}
}

func (r *Registry) recordMerge(err error) {
	mt := r.m()
	if mt == nil {
		return
	}
	var params []string
	for _, e := range multierr.Errors(err) {
		var me *mserrors.Error
		if mserrors.As(e, &me) {
			if p, ok := me.Lookup("parameter"); ok {
				params = append(params, p)
			}
		}
	}
	mt.RecordMerge(err, params...)
}
