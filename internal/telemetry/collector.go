package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/picorope/internal/engine/rope"
)

// Namespace prefixes every metric exported by this package.
const Namespace = "picorope"

// StatsSource is anything that reports rope pool statistics.
// *rope.Pool satisfies it.
type StatsSource interface {
	Stats() rope.Stats
}

// Collector exports a StatsSource as Prometheus metrics.
// It implements prometheus.Collector.
type Collector struct {
	source StatsSource

	nodesAllocated   *prometheus.Desc
	nodesFreed       *prometheus.Desc
	nodesLive        *prometheus.Desc
	buffersAllocated *prometheus.Desc
	buffersFreed     *prometheus.Desc
	buffersRecycled  *prometheus.Desc
	buffersLive      *prometheus.Desc
	flattens         *prometheus.Desc
	bytesFlattened   *prometheus.Desc
	destroys         *prometheus.Desc
	maxPending       *prometheus.Desc
}

// NewCollector creates a collector for source. Every metric carries a
// constant "pool" label set to name.
func NewCollector(name string, source StatsSource) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", metric), help, nil, labels)
	}

	return &Collector{
		source:           source,
		nodesAllocated:   desc("nodes_allocated_total", "Rope nodes handed out by the pool."),
		nodesFreed:       desc("nodes_freed_total", "Rope nodes whose last owner released them."),
		nodesLive:        desc("nodes_live", "Rope nodes allocated and not yet freed."),
		buffersAllocated: desc("buffers_allocated_total", "Backing buffers created or adopted."),
		buffersFreed:     desc("buffers_freed_total", "Backing buffers whose last leaf was freed."),
		buffersRecycled:  desc("buffers_recycled_total", "Freed buffers returned to the pool for reuse."),
		buffersLive:      desc("buffers_live", "Backing buffers allocated and not yet freed."),
		flattens:         desc("flattens_total", "Flattens that built a new contiguous buffer."),
		bytesFlattened:   desc("flattened_bytes_total", "Bytes copied by flattens."),
		destroys:         desc("destroys_total", "Releases that tore down a node tree."),
		maxPending:       desc("teardown_pending_max", "Longest pending list seen during a teardown."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodesAllocated
	ch <- c.nodesFreed
	ch <- c.nodesLive
	ch <- c.buffersAllocated
	ch <- c.buffersFreed
	ch <- c.buffersRecycled
	ch <- c.buffersLive
	ch <- c.flattens
	ch <- c.bytesFlattened
	ch <- c.destroys
	ch <- c.maxPending
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.nodesAllocated, st.NodesAllocated)
	counter(c.nodesFreed, st.NodesFreed)
	gauge(c.nodesLive, st.LiveNodes())
	counter(c.buffersAllocated, st.BuffersAllocated)
	counter(c.buffersFreed, st.BuffersFreed)
	counter(c.buffersRecycled, st.BuffersRecycled)
	gauge(c.buffersLive, st.LiveBuffers())
	counter(c.flattens, st.Flattens)
	counter(c.bytesFlattened, st.BytesFlattened)
	counter(c.destroys, st.Destroys)
	gauge(c.maxPending, st.MaxPending)
}
