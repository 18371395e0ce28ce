// Package metrics 导出批量推荐、画像更新与 embedding 调用的 Prometheus 指标。
//
// 所有方法对 nil *Metrics 安全，组件可以不注入指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prodrec"

// Metrics 持有独立的 Registry，不污染全局默认 Registry。
type Metrics struct {
	registry *prometheus.Registry

	batchRuns     *prometheus.CounterVec
	batchUsers    *prometheus.CounterVec
	batchDuration prometheus.Histogram

	profileRuns     *prometheus.CounterVec
	profilesUpdated prometheus.Counter
	eventsConsumed  prometheus.Counter

	entitySkips *prometheus.CounterVec

	embeddingRequests *prometheus.CounterVec
	embeddingLatency  *prometheus.HistogramVec
}

// New 创建并注册全部指标。
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.batchRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "batch",
		Name: "runs_total", Help: "Batch recommendation runs by status",
	}, []string{"status"})
	m.batchUsers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "batch",
		Name: "users_total", Help: "Users processed by batch runs by outcome",
	}, []string{"outcome"})
	m.batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "batch",
		Name: "duration_seconds", Help: "Batch recommendation run duration",
		Buckets: prometheus.DefBuckets,
	})

	m.profileRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "profile",
		Name: "runs_total", Help: "Profile update runs by status",
	}, []string{"status"})
	m.profilesUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "profile",
		Name: "users_updated_total", Help: "User embeddings blended from behavior",
	})
	m.eventsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "profile",
		Name: "events_consumed_total", Help: "Behavior events folded into profiles and cleared",
	})

	m.entitySkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entity_skips_total", Help: "Entities skipped during a run by module and error code",
	}, []string{"module", "code"})

	m.embeddingRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "embedding",
		Name: "requests_total", Help: "Embedding service requests by provider and status",
	}, []string{"provider", "status"})
	m.embeddingLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "embedding",
		Name: "latency_seconds", Help: "Embedding service latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})

	m.registry.MustRegister(
		m.batchRuns, m.batchUsers, m.batchDuration,
		m.profileRuns, m.profilesUpdated, m.eventsConsumed,
		m.entitySkips,
		m.embeddingRequests, m.embeddingLatency,
	)
	return m
}

// Registry 返回内部 Registry。
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveBatch 记录一次批量运行。
func (m *Metrics) ObserveBatch(status string, ok, failed int, d time.Duration) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(status).Inc()
	m.batchUsers.WithLabelValues("ok").Add(float64(ok))
	m.batchUsers.WithLabelValues("failed").Add(float64(failed))
	m.batchDuration.Observe(d.Seconds())
}

// ObserveProfileRun 记录一次画像更新。
func (m *Metrics) ObserveProfileRun(status string, updated, consumed int) {
	if m == nil {
		return
	}
	m.profileRuns.WithLabelValues(status).Inc()
	m.profilesUpdated.Add(float64(updated))
	m.eventsConsumed.Add(float64(consumed))
}

// Skip 记录一次实体跳过。
func (m *Metrics) Skip(module, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	m.entitySkips.WithLabelValues(module, code).Inc()
}

// ObserveEmbedding 记录一次 embedding 请求。
func (m *Metrics) ObserveEmbedding(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.embeddingRequests.WithLabelValues(provider, status).Inc()
	m.embeddingLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标（CLI 是短进程，不暴露 HTTP）。
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
