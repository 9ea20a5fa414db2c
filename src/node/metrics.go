package node

import (
	"github.com/mosaicnetworks/rtinet/src/federation"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rtinet"

// Metrics are the Prometheus instruments of one node. Each node registers
// them on its own registry so that several nodes can share a process.
type Metrics struct {
	Routed      *prometheus.CounterVec
	Forwarded   prometheus.Counter
	Pending     prometheus.Gauge
	Links       prometheus.Gauge
	Federates   prometheus.Gauge
	Federations prometheus.Gauge
}

// NewMetrics registers the node metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "frames_routed_total",
			Help:      "Frames sent by the node, by frame type.",
		}, []string{"type"}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "requests_forwarded_total",
			Help:      "Requests forwarded to the parent node.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "pending_requests",
			Help:      "Entries in the request correlation table.",
		}),
		Links: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "child_links",
			Help:      "Open links to federates and child nodes.",
		}),
		Federates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "federates_attached",
			Help:      "Joined federates reachable through this node.",
		}),
		Federations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "federation_executions",
			Help:      "Federation executions with at least one federate behind this node, or all live executions on the root.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Routed,
		m.Forwarded,
		m.Pending,
		m.Links,
		m.Federates,
		m.Federations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// galtCollector reports the GALT and size of every live execution of a
// registry when scraped.
type galtCollector struct {
	registry  *federation.Registry
	galt      *prometheus.Desc
	federates *prometheus.Desc
}

func newGALTCollector(r *federation.Registry) *galtCollector {
	return &galtCollector{
		registry: r,
		galt: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "federation", "galt"),
			"Greatest available logical time of the federation execution. Absent while no federate is time regulating.",
			[]string{"federation"}, nil),
		federates: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "federation", "federates"),
			"Federates joined to the federation execution.",
			[]string{"federation"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *galtCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.galt
	ch <- c.federates
}

// Collect implements prometheus.Collector.
func (c *galtCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.registry.Executions() {
		ch <- prometheus.MustNewConstMetric(c.federates, prometheus.GaugeValue, float64(e.Members()), e.Name())
		if t, ok := e.GALT(); ok {
			ch <- prometheus.MustNewConstMetric(c.galt, prometheus.GaugeValue, t.Float64(), e.Name())
		}
	}
}
