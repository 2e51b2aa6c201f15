package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics exposes counters/histograms for the query cache layer.
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	evictionsTotal prometheus.Counter
	persistFlushes *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sevenpet",
			Subsystem: "querycache",
			Name:      "hits_total",
			Help:      "Cache hits by domain and freshness",
		}, []string{"domain", "freshness"}),
		missesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sevenpet",
			Subsystem: "querycache",
			Name:      "misses_total",
			Help:      "Cache misses by domain",
		}, []string{"domain"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sevenpet",
			Subsystem: "querycache",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of backend fetches by domain and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"domain", "status"}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sevenpet",
			Subsystem: "querycache",
			Name:      "evictions_total",
			Help:      "Entries removed by garbage collection",
		}),
		persistFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sevenpet",
			Subsystem: "querycache",
			Name:      "persist_flushes_total",
			Help:      "Snapshot flushes by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.hitsTotal, m.missesTotal, m.fetchLatency, m.evictionsTotal, m.persistFlushes)
	return m
}

func (m *CacheMetrics) ObserveHit(domain string, stale bool) {
	if m == nil {
		return
	}
	freshness := "fresh"
	if stale {
		freshness = "stale"
	}
	m.hitsTotal.WithLabelValues(domain, freshness).Inc()
}

func (m *CacheMetrics) ObserveMiss(domain string) {
	if m == nil {
		return
	}
	m.missesTotal.WithLabelValues(domain).Inc()
}

func (m *CacheMetrics) ObserveFetch(domain, status string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchLatency.WithLabelValues(domain, status).Observe(seconds)
}

func (m *CacheMetrics) ObserveEvictions(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.evictionsTotal.Add(float64(count))
}

func (m *CacheMetrics) ObservePersistFlush(status string) {
	if m == nil {
		return
	}
	m.persistFlushes.WithLabelValues(status).Inc()
}
