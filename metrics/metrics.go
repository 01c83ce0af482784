// Package metrics instruments the paging subsystem with Prometheus
// counters, grounded on talyz-systemd_exporter's
// github.com/prometheus/client_golang usage — the only
// metrics-instrumented service in the retrieved example pack. Ambient
// observability is carried regardless of spec.md's non-goals, none of
// which name metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters observed by a proc.Proc. Zero value is
// not usable; construct with New.
type Metrics struct {
	Registry *prometheus.Registry

	PageFaults prometheus.Counter
	Evictions  prometheus.Counter
	SwapReads  prometheus.Counter
	SwapWrites prometheus.Counter
}

// New builds a Metrics instance with its own private registry, named
// under namespace, and registers every counter with it.
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PageFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_faults_total",
			Help:      "Page faults handled by load_page.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Resident pages evicted by store_page.",
		}),
		SwapReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_reads_total",
			Help:      "Full-page reads issued against the swap store.",
		}),
		SwapWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_writes_total",
			Help:      "Full-page writes issued against the swap store.",
		}),
	}
	m.Registry.MustRegister(m.PageFaults, m.Evictions, m.SwapReads, m.SwapWrites)
	return m
}
