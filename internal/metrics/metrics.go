package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decision metrics
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_decisions_total",
		Help: "Total ad decisions by reason",
	}, []string{"reason"})

	passThroughTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adsplice_pass_through_total",
		Help: "Total segment requests outside the ad-insertion path grammars",
	})

	allowListEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adsplice_allow_list_entries",
		Help: "Number of client ids in the current allow-list snapshot",
	})

	// Segment metrics
	patchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_patches_total",
		Help: "Total sequence patches by result",
	}, []string{"result"})

	segmentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adsplice_segment_bytes",
		Help:    "Size of served ad segments in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to 256MiB
	})

	// Ad source metrics
	adFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adsplice_ad_fetch_duration_seconds",
		Help:    "Ad asset fetch latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"source", "result"})

	adCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_ad_cache_lookups_total",
		Help: "Ad asset cache lookups by outcome",
	}, []string{"outcome"})

	originFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_origin_fallbacks_total",
		Help: "Requests served from origin after a failed substitution",
	}, []string{"stage"})
)

// RecordDecision counts a decision by its reason
func RecordDecision(reason string) {
	decisionsTotal.WithLabelValues(reason).Inc()
}

// IncrementPassThrough counts a request that did not decode as a segment path
func IncrementPassThrough() {
	passThroughTotal.Inc()
}

// SetAllowListEntries sets the allow-list size
func SetAllowListEntries(count int) {
	allowListEntries.Set(float64(count))
}

// RecordPatch counts a patch attempt. result is "ok", "no_fragment_header",
// "malformed" or "verify_failed".
func RecordPatch(result string) {
	patchesTotal.WithLabelValues(result).Inc()
}

// ObserveSegmentSize records the size of a served segment
func ObserveSegmentSize(bytes int) {
	segmentBytes.Observe(float64(bytes))
}

// RecordAdFetch records the latency of one fetch
func RecordAdFetch(source, result string, seconds float64) {
	adFetchDuration.WithLabelValues(source, result).Observe(seconds)
}

// RecordCacheLookup counts an ad cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		adCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	adCacheLookups.WithLabelValues("miss").Inc()
}

// IncrementOriginFallback counts a fallback to origin after the given stage failed
func IncrementOriginFallback(stage string) {
	originFallbacksTotal.WithLabelValues(stage).Inc()
}
