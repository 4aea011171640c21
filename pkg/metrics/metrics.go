package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mapper"

// Metrics 指标管理器
type Metrics struct {
	// 映射构建/合并指标
	buildsTotal         *prometheus.CounterVec
	mergesTotal         *prometheus.CounterVec
	mergeConflictsTotal *prometheus.CounterVec
	fieldsActive        prometheus.Gauge

	// 查询计划指标
	plansTotal   *prometheus.CounterVec
	planDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec
	cacheSize        *prometheus.GaugeVec
}

// NewMetrics 创建指标管理器并注册到 reg; reg 为 nil 时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		buildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of text field mapping builds",
			},
			[]string{"status"},
		),

		mergesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "merges_total",
				Help:      "Total number of text field mapping merges",
			},
			[]string{"status"},
		),

		mergeConflictsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "merge_conflicts_total",
				Help:      "Rejected merges by conflicting parameter",
			},
			[]string{"parameter"},
		),

		fieldsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fields_active",
				Help:      "Number of text fields in the published schema",
			},
		),

		plansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_total",
				Help:      "Total number of planned queries by operation and resulting shape",
			},
			[]string{"operation", "shape"},
		),

		planDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_duration_seconds",
				Help:      "Query planning duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"operation"},
		),

		// 缓存指标
		cacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache_type", "operation"},
		),

		cacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache_type", "operation"},
		),

		cacheSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_size",
				Help:      "Current cache size",
			},
			[]string{"cache_type"},
		),
	}
}

// RecordBuild 记录一次映射构建
func (m *Metrics) RecordBuild(err error) {
	m.buildsTotal.WithLabelValues(status(err)).Inc()
}

// RecordMerge 记录一次映射合并, conflicts 为冲突参数名
func (m *Metrics) RecordMerge(err error, conflicts ...string) {
	m.mergesTotal.WithLabelValues(status(err)).Inc()
	for _, p := range conflicts {
		m.mergeConflictsTotal.WithLabelValues(p).Inc()
	}
}

// SetFieldsActive 设置当前字段数
func (m *Metrics) SetFieldsActive(n int) {
	m.fieldsActive.Set(float64(n))
}

// RecordPlan 记录查询计划
func (m *Metrics) RecordPlan(operation, shape string, duration time.Duration) {
	m.plansTotal.WithLabelValues(operation, shape).Inc()
	m.planDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(cacheType, operation string) {
	m.cacheHitsTotal.WithLabelValues(cacheType, operation).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(cacheType, operation string) {
	m.cacheMissesTotal.WithLabelValues(cacheType, operation).Inc()
}

// SetCacheSize 设置缓存大小
func (m *Metrics) SetCacheSize(cacheType string, size int) {
	m.cacheSize.WithLabelValues(cacheType).Set(float64(size))
}

// Reset 重置所有指标
func (m *Metrics) Reset() {
	m.buildsTotal.Reset()
	m.mergesTotal.Reset()
	m.mergeConflictsTotal.Reset()
	m.fieldsActive.Set(0)
	m.plansTotal.Reset()
	m.planDuration.Reset()
	m.cacheHitsTotal.Reset()
	m.cacheMissesTotal.Reset()
	m.cacheSize.Reset()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
