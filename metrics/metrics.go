// Package metrics exposes memo caches and fetchers to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/memo"
)

// Source is anything that reports cache statistics; every memo.Cache is one.
type Source interface {
	Stats() memo.Stats
}

// Recorder holds the counters shared by all instrumented caches. The cache
// label tells them apart.
type Recorder struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	expirations *prometheus.CounterVec
	retries     *prometheus.CounterVec

	collector *statsCollector
}

// NewRecorder creates the counters and registers them with reg, or with
// the default registerer when reg is nil. Counters already registered by
// an earlier Recorder on the same registry are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memo_cache_hits_total",
			Help: "Reads that found a live entry",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memo_cache_misses_total",
			Help: "Reads that found no live entry",
		}, []string{"cache"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memo_cache_expirations_total",
			Help: "Expired entries swept on access",
		}, []string{"cache"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memo_fetch_retries_total",
			Help: "Failed loads that were retried",
		}, []string{"cache"}),
		collector: newStatsCollector(),
	}

	var err error
	if r.hits, err = registerCounter(reg, r.hits); err != nil {
		return nil, err
	}
	if r.misses, err = registerCounter(reg, r.misses); err != nil {
		return nil, err
	}
	if r.expirations, err = registerCounter(reg, r.expirations); err != nil {
		return nil, err
	}
	if r.retries, err = registerCounter(reg, r.retries); err != nil {
		return nil, err
	}
	if err := reg.Register(r.collector); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*statsCollector)
		if !ok {
			return nil, err
		}
		r.collector = existing
	}
	return r, nil
}

// CacheHooks returns cache options that count hits, misses and
// expirations under name.
func CacheHooks[V any](r *Recorder, name string) []memo.Option[V] {
	hits := r.hits.WithLabelValues(name)
	misses := r.misses.WithLabelValues(name)
	expirations := r.expirations.WithLabelValues(name)

	return []memo.Option[V]{
		memo.OnHit(func(string, V) { hits.Inc() }),
		memo.OnMiss[V](func(string) { misses.Inc() }),
		memo.OnExpire(func(string, V) { expirations.Inc() }),
	}
}

// RetryHook returns a callback for fetch.OnRetry that counts retries under name.
func RetryHook(r *Recorder, name string) func(key string, attempt int, err error) {
	retries := r.retries.WithLabelValues(name)
	return func(string, int, error) { retries.Inc() }
}

// Watch exposes src's entry count and approximate size under name.
// Watching a second source under the same name replaces the first.
func (r *Recorder) Watch(name string, src Source) {
	r.collector.add(name, src)
}

// registerCounter registers c, returning the already registered vector
// when an identical one exists.
func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// statsCollector reports gauges read from each watched Source at scrape time.
type statsCollector struct {
	mu      sync.Mutex
	sources map[string]Source

	entriesDesc *prometheus.Desc
	sizeDesc    *prometheus.Desc
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		sources:     make(map[string]Source),
		entriesDesc: prometheus.NewDesc("memo_cache_entries", "Entries physically present, including unswept expired ones", []string{"cache"}, nil),
		sizeDesc:    prometheus.NewDesc("memo_cache_size_kb", "Approximate size of stored values in KiB", []string{"cache"}, nil),
	}
}

func (c *statsCollector) add(name string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = src
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entriesDesc
	ch <- c.sizeDesc
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, src := range c.sources {
		st := src.Stats()
		ch <- prometheus.MustNewConstMetric(c.entriesDesc, prometheus.GaugeValue, float64(st.Count), name)
		ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, st.ApproximateSizeKB, name)
	}
}
