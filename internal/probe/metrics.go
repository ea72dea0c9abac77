package probe

import (
	"github.com/VictoriaMetrics/metrics"

	"github.com/jordanbertasso/stabping-go/internal/metricsx"
)

// note: for results, fail_ prefix is for errors likely caused by the
// process itself (persistence, broadcast), and reject_ is for a caller
// supplying bad input (stale nonce, unknown addr).

// probeMetrics holds every metric this package exports, mirroring the
// teacher's apiMetrics struct-of-counters style (see pkg/api/api0/metrics.go
// in the retrieved pack).
type probeMetrics struct {
	set *metrics.Set

	worker_ticks_total          func(kind string) *metrics.Counter
	worker_tick_measurements    *metrics.Histogram
	dispatcher_appends_total    struct {
		success      func(kind string) *metrics.Counter
		reject_stale func(kind string) *metrics.Counter
		fail_persist func(kind string) *metrics.Counter
	}
	dispatcher_broadcasts_total struct {
		success      func(kind string) *metrics.Counter
		fail_unavail func(kind string) *metrics.Counter
	}
	reader_queries_total struct {
		success        func(kind string) *metrics.Counter
		reject_nonce   func(kind string) *metrics.Counter
		fail_other     func(kind string) *metrics.Counter
	}
	addr_geohash *metricsx.GeoCounter2
}

var defaultMetrics = newProbeMetrics(metrics.NewSet())

func newProbeMetrics(set *metrics.Set) *probeMetrics {
	m := &probeMetrics{set: set}

	m.worker_ticks_total = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel("stabping_worker_ticks_total", "kind", kind))
	}
	m.worker_tick_measurements = set.GetOrCreateHistogram("stabping_worker_tick_measurements")

	m.dispatcher_appends_total.success = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_dispatcher_appends_total", "kind", kind), "result", "success"))
	}
	m.dispatcher_appends_total.reject_stale = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_dispatcher_appends_total", "kind", kind), "result", "reject_stale"))
	}
	m.dispatcher_appends_total.fail_persist = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_dispatcher_appends_total", "kind", kind), "result", "fail_persist"))
	}

	m.dispatcher_broadcasts_total.success = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_dispatcher_broadcasts_total", "kind", kind), "result", "success"))
	}
	m.dispatcher_broadcasts_total.fail_unavail = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_dispatcher_broadcasts_total", "kind", kind), "result", "fail_unavail"))
	}

	m.reader_queries_total.success = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_reader_queries_total", "kind", kind), "result", "success"))
	}
	m.reader_queries_total.reject_nonce = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_reader_queries_total", "kind", kind), "result", "reject_nonce"))
	}
	m.reader_queries_total.fail_other = func(kind string) *metrics.Counter {
		return set.GetOrCreateCounter(metricsx.WithLabel(metricsx.WithLabel("stabping_reader_queries_total", "kind", kind), "result", "fail_other"))
	}

	m.addr_geohash = metricsx.NewGeoCounter2("stabping_addr_geohash_total")
	return m
}
