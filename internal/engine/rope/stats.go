package rope

import "sync/atomic"

// Stats is a snapshot of a pool's allocation counters.
type Stats struct {
	NodesAllocated   uint64
	NodesFreed       uint64
	BuffersAllocated uint64
	BuffersFreed     uint64
	BuffersRecycled  uint64

	// Flattens counts flatten calls that built a new buffer.
	Flattens       uint64
	BytesFlattened uint64

	// Destroys counts releases that destroyed a node tree.
	Destroys uint64

	// MaxPending is the longest pending list seen during destruction.
	MaxPending uint64
}

// LiveNodes returns the number of nodes allocated and not yet freed.
func (s Stats) LiveNodes() uint64 {
	return s.NodesAllocated - s.NodesFreed
}

// LiveBuffers returns the number of buffers allocated and not yet freed.
func (s Stats) LiveBuffers() uint64 {
	return s.BuffersAllocated - s.BuffersFreed
}

// counters holds the live values behind Stats.
type counters struct {
	nodesAllocated   atomic.Uint64
	nodesFreed       atomic.Uint64
	buffersAllocated atomic.Uint64
	buffersFreed     atomic.Uint64
	buffersRecycled  atomic.Uint64
	flattens         atomic.Uint64
	bytesFlattened   atomic.Uint64
	destroys         atomic.Uint64
	maxPending       atomic.Uint64
}

// observePending raises the pending high-water mark to n if it is larger.
func (c *counters) observePending(n uint64) {
	for {
		cur := c.maxPending.Load()
		if n <= cur || c.maxPending.CompareAndSwap(cur, n) {
			return
		}
	}
}

// snapshot reads each freed counter before its allocated counter, so a
// concurrent release can never make freed exceed allocated.
func (c *counters) snapshot() Stats {
	nodesFreed := c.nodesFreed.Load()
	buffersFreed := c.buffersFreed.Load()
	return Stats{
		NodesFreed:       nodesFreed,
		NodesAllocated:   c.nodesAllocated.Load(),
		BuffersFreed:     buffersFreed,
		BuffersAllocated: c.buffersAllocated.Load(),
		BuffersRecycled:  c.buffersRecycled.Load(),
		Flattens:         c.flattens.Load(),
		BytesFlattened:   c.bytesFlattened.Load(),
		Destroys:         c.destroys.Load(),
		MaxPending:       c.maxPending.Load(),
	}
}
