// Package metrics 提供临床 RAG 服务的业务指标收集。
//
// 指标同时写入 Prometheus 收集器（供 /metrics 抓取）与进程内计数器
// （供 /stats 返回快照）。
package metrics

import (
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace Prometheus 指标命名空间。
const Namespace = "clinrag"

// 流水线阶段名称。
const (
	StageRetrieval  = "retrieval"
	StageClinVec    = "clinvec"
	StageGeneration = "generation"
	StageEvaluation = "evaluation"
	StageIndexing   = "indexing"
)

// ClinRAGMetrics 临床 RAG 服务业务指标。
type ClinRAGMetrics struct {
	registry *prometheus.Registry

	asks          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	faithfulness  *prometheus.CounterVec
	relevance     prometheus.Histogram
	chunksIndexed prometheus.Counter
	documents     prometheus.Counter

	// 进程内计数器
	asksTotal      uint64
	asksErrors     uint64
	cacheHits      uint64
	cacheMisses    uint64
	documentsTotal uint64
	chunksTotal    uint64
	indexErrors    uint64

	mu        sync.Mutex
	stageSecs map[string]float64
	stageRuns map[string]uint64
	labels    map[string]uint64
	startTime time.Time
}

// New 创建指标实例并注册到独立的 Registry。
func New() *ClinRAGMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ClinRAGMetrics{
		registry: reg,
		asks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "asks_total",
			Help:      "Questions answered, by outcome (ok, error, cache_hit).",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_errors_total",
			Help:      "Failed pipeline stages.",
		}, []string{"stage"}),
		faithfulness: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "faithfulness_labels_total",
			Help:      "NLI faithfulness labels assigned to answers.",
		}, []string{"label"}),
		relevance: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "relevance_score",
			Help:      "Cosine similarity between question and answer embeddings.",
			Buckets:   prometheus.LinearBuckets(-1, 0.2, 11),
		}),
		chunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_indexed_total",
			Help:      "Document chunks written to the vector index.",
		}),
		documents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "documents_indexed_total",
			Help:      "Documents indexed.",
		}),
		stageSecs: make(map[string]float64),
		stageRuns: make(map[string]uint64),
		labels:    make(map[string]uint64),
		startTime: time.Now(),
	}
}

// Registry 返回 Prometheus Registry。
func (m *ClinRAGMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 Prometheus 抓取端点。
func (m *ClinRAGMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordAsk 记录一次问答。
func (m *ClinRAGMetrics) RecordAsk(cacheHit bool, err error) {
	atomic.AddUint64(&m.asksTotal, 1)
	switch {
	case err != nil:
		atomic.AddUint64(&m.asksErrors, 1)
		m.asks.WithLabelValues("error").Inc()
	case cacheHit:
		atomic.AddUint64(&m.cacheHits, 1)
		m.asks.WithLabelValues("cache_hit").Inc()
	default:
		atomic.AddUint64(&m.cacheMisses, 1)
		m.asks.WithLabelValues("ok").Inc()
	}
}

// RecordStage 记录流水线阶段耗时。
func (m *ClinRAGMetrics) RecordStage(stage string, duration time.Duration, err error) {
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())

	m.mu.Lock()
	m.stageSecs[stage] += duration.Seconds()
	m.stageRuns[stage]++
	m.mu.Unlock()
}

// RecordEvaluation 记录评估结果。
func (m *ClinRAGMetrics) RecordEvaluation(label string, relevance float64) {
	m.faithfulness.WithLabelValues(label).Inc()
	if !math.IsNaN(relevance) {
		m.relevance.Observe(relevance)
	}

	m.mu.Lock()
	m.labels[label]++
	m.mu.Unlock()
}

// RecordIndexing 记录文档索引。
func (m *ClinRAGMetrics) RecordIndexing(chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		m.stageErrors.WithLabelValues(StageIndexing).Inc()
		return
	}
	atomic.AddUint64(&m.documentsTotal, 1)
	atomic.AddUint64(&m.chunksTotal, uint64(chunks))
	m.documents.Inc()
	m.chunksIndexed.Add(float64(chunks))
}

// Stats 返回指标快照。
func (m *ClinRAGMetrics) Stats() map[string]any {
	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	m.mu.Lock()
	stages := make(map[string]any, len(m.stageRuns))
	for stage, runs := range m.stageRuns {
		stages[stage] = map[string]any{
			"runs":              runs,
			"avg_duration_secs": m.stageSecs[stage] / float64(runs),
		}
	}
	labels := make(map[string]uint64, len(m.labels))
	for k, v := range m.labels {
		labels[k] = v
	}
	m.mu.Unlock()

	return map[string]any{
		"asks": map[string]any{
			"total":          atomic.LoadUint64(&m.asksTotal),
			"errors":         atomic.LoadUint64(&m.asksErrors),
			"cache_hits":     hits,
			"cache_misses":   misses,
			"cache_hit_rate": hitRate,
		},
		"stages":       stages,
		"faithfulness": labels,
		"indexing": map[string]any{
			"documents": atomic.LoadUint64(&m.documentsTotal),
			"chunks":    atomic.LoadUint64(&m.chunksTotal),
			"errors":    atomic.LoadUint64(&m.indexErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
