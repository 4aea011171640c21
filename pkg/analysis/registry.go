package analysis

import (
	"fmt"
	"sort"
	"sync"

	blevea "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/registry"
)

// Names of the analyzers every Registry knows about.
const (
	DefaultName    = "default"
	StandardName   = standard.Name
	KeywordName    = keyword.Name
	SimpleName     = simple.Name
	EnglishName    = en.AnalyzerName
	WhitespaceName = "whitespace"
	StopName       = "stop"
)

// Analyzer turns text into a token stream.
type Analyzer interface {
	Analyze(text string) TokenStream
}

// Named is an analyzer together with the name it was resolved from.
type Named struct {
	Name string
	Analyzer
}

// bleveAnalyzer adapts a bleve analyzer. bleve numbers positions from 1 and
// keeps the numbering of removed tokens, so converting absolute positions to
// increments preserves stop-word gaps.
type bleveAnalyzer struct {
	a blevea.Analyzer
}

func (b bleveAnalyzer) Analyze(text string) TokenStream {
	in := b.a.Analyze([]byte(text))
	out := make(TokenStream, 0, len(in))
	prev := 0
	for _, t := range in {
		inc := t.Position - prev
		if inc < 0 {
			inc = 0
		}
		prev = t.Position
		out = append(out, Token{
			Term:              string(t.Term),
			Start:             t.Start,
			End:               t.End,
			PositionIncrement: inc,
			PositionLength:    1,
		})
	}
	return out
}

// Option configures a Registry.
type Option func(*Registry) error

// WithDefault makes name the analyzer used for the "default" reference.
func WithDefault(name string) Option {
	return func(r *Registry) error {
		r.defaultName = name
		return nil
	}
}

// WithCustom defines an analyzer from a bleve custom-analyzer config, e.g.
// {"type": "custom", "tokenizer": "unicode", "token_filters": [...]}.
func WithCustom(name string, config map[string]interface{}) Option {
	return func(r *Registry) error {
		a, err := r.cache.DefineAnalyzer(name, config)
		if err != nil {
			return fmt.Errorf("define analyzer [%s]: %w", name, err)
		}
		r.analyzers[name] = bleveAnalyzer{a: a}
		r.customs[name] = config
		return nil
	}
}

// WithTokenFilter defines a named token filter usable by WithCustom.
func WithTokenFilter(name string, config map[string]interface{}) Option {
	return func(r *Registry) error {
		if _, err := r.cache.DefineTokenFilter(name, config); err != nil {
			return fmt.Errorf("define token filter [%s]: %w", name, err)
		}
		r.filters[name] = config
		return nil
	}
}

// WithAnalyzer registers an analyzer implemented outside bleve.
func WithAnalyzer(name string, a Analyzer) Option {
	return func(r *Registry) error {
		r.analyzers[name] = a
		return nil
	}
}

// Registry is the schema-level analyzer registry. It is safe for concurrent
// use once built.
type Registry struct {
	cache       *registry.Cache
	defaultName string

	// bleve definitions, kept so they can be exported to an index mapping
	customs map[string]map[string]interface{}
	filters map[string]map[string]interface{}

	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewRegistry builds a registry with the built-in analyzers plus whatever the
// options define.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		cache:       registry.NewCache(),
		defaultName: StandardName,
		analyzers:   make(map[string]Analyzer),
		customs:     make(map[string]map[string]interface{}),
		filters:     make(map[string]map[string]interface{}),
	}

	builtins := map[string]map[string]interface{}{
		WhitespaceName: {
			"type":      custom.Name,
			"tokenizer": whitespace.Name,
		},
		StopName: {
			"type":          custom.Name,
			"tokenizer":     unicode.Name,
			"token_filters": []interface{}{lowercase.Name, en.StopName},
		},
	}
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := WithCustom(name, builtins[name])(r); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.defaultName == DefaultName {
		return nil, fmt.Errorf("default analyzer cannot refer to itself")
	}
	if _, err := r.lookup(r.defaultName); err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultAnalyzer is the name "default" resolves to.
func (r *Registry) DefaultAnalyzer() string { return r.defaultName }

// CustomAnalyzers returns the bleve definitions of analyzers added with
// WithCustom, including the built-in whitespace and stop analyzers.
func (r *Registry) CustomAnalyzers() map[string]map[string]interface{} {
	return copyDefs(r.customs)
}

// CustomTokenFilters returns the definitions added with WithTokenFilter.
func (r *Registry) CustomTokenFilters() map[string]map[string]interface{} {
	return copyDefs(r.filters)
}

func copyDefs(in map[string]map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Has reports whether name resolves to an analyzer.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Get resolves name; "default" maps to the registry's default analyzer.
func (r *Registry) Get(name string) (Named, error) {
	target := name
	if name == "" || name == DefaultName {
		target = r.defaultName
	}
	a, err := r.lookup(target)
	if err != nil {
		return Named{}, err
	}
	if name == "" {
		name = DefaultName
	}
	return Named{Name: name, Analyzer: a}, nil
}

// Analyze runs the named analyzer over text.
func (r *Registry) Analyze(name, text string) (TokenStream, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return a.Analyze(text), nil
}

func (r *Registry) lookup(name string) (Analyzer, error) {
	r.mu.RLock()
	a, ok := r.analyzers[name]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	// bleve's cache instantiates registered analyzers lazily.
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyzers[name]; ok {
		return a, nil
	}
	ba, err := r.cache.AnalyzerNamed(name)
	if err != nil || ba == nil {
		return nil, fmt.Errorf("no analyzer named [%s]", name)
	}
	a = bleveAnalyzer{a: ba}
	r.analyzers[name] = a
	return a, nil
}
