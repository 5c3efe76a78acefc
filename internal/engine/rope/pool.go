package rope

import (
	"log/slog"
	"sync"
)

// maxPooledStack caps the capacity of work-list slices kept for reuse.
const maxPooledStack = 64 * 1024

// Pool allocates and recycles rope nodes and buffers, and counts what it
// hands out. A Pool is safe for concurrent use; the ropes built from it are
// not (see the package documentation).
//
// Usage note: most callers never touch a Pool directly. The package-level
// constructors use DefaultPool. A private pool is useful for:
// - Checking that a workload releases everything it builds
// - Catching double releases with recycling turned off
// - Exporting per-workload statistics
type Pool struct {
	nodes   sync.Pool
	buffers sync.Pool
	stacks  sync.Pool

	recycle         bool
	maxPooledBuffer int
	deepTeardown    int
	logger          *slog.Logger

	stats counters
}

// DefaultPool is the pool used by the package-level constructors.
var DefaultPool = NewPool()

// NewPool creates a pool configured by opts.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		recycle:         true,
		maxPooledBuffer: DefaultMaxPooledBuffer,
		deepTeardown:    DefaultDeepTeardown,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.nodes.New = func() any {
		return new(node)
	}
	p.buffers.New = func() any {
		return new(buffer)
	}
	p.stacks.New = func() any {
		s := make([]*node, 0, 64)
		return &s
	}
	return p
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return p.stats.snapshot()
}

// newLeaf builds a leaf over [off, off+size) of buf. The leaf takes over
// the caller's reference to buf.
func (p *Pool) newLeaf(buf *buffer, off, size int) *node {
	n := p.nodes.Get().(*node)
	*n = node{
		kind: kindLeaf,
		size: size,
		pool: p,
		buf:  buf,
		off:  off,
	}
	p.stats.nodesAllocated.Add(1)
	return n
}

// newConcat builds a concatenation that takes over the caller's
// references to left and right.
func (p *Pool) newConcat(left, right *node) *node {
	n := p.nodes.Get().(*node)
	*n = node{
		kind:  kindConcat,
		size:  left.size + right.size,
		pool:  p,
		left:  left,
		right: right,
	}
	p.stats.nodesAllocated.Add(1)
	return n
}

// newBuffer returns a buffer of exactly size bytes, reusing pooled
// storage when it is large enough.
func (p *Pool) newBuffer(size int) *buffer {
	b := p.buffers.Get().(*buffer)
	if cap(b.data) < size {
		b.data = make([]byte, size)
	} else {
		b.data = b.data[:size]
	}
	b.refs = 0
	b.pooled = true
	b.freed = false
	b.pool = p
	p.stats.buffersAllocated.Add(1)
	return b
}

// adoptBuffer wraps caller-owned bytes. They are never recycled.
func (p *Pool) adoptBuffer(data []byte) *buffer {
	p.stats.buffersAllocated.Add(1)
	return &buffer{data: data, pool: p}
}

// copyLeaf builds a flat leaf holding a private copy of data.
func (p *Pool) copyLeaf(data []byte) *node {
	buf := p.newBuffer(len(data))
	copy(buf.data, data)
	return p.newLeaf(buf, 0, len(data))
}

// stringLeaf builds a flat leaf holding a copy of s.
func (p *Pool) stringLeaf(s string) *node {
	buf := p.newBuffer(len(s))
	copy(buf.data, s)
	return p.newLeaf(buf, 0, len(s))
}

// freeNode tombstones n and, if recycling, returns it to the pool.
// A leaf releases its buffer; a concatenation must already have had its
// children detached.
func (p *Pool) freeNode(n *node) {
	buf := n.buf
	wasLeaf := n.kind == kindLeaf
	*n = node{kind: kindFreed}
	p.stats.nodesFreed.Add(1)

	if wasLeaf {
		buf.release()
	}
	if p.recycle {
		p.nodes.Put(n)
	}
}

// freeBuffer retires a buffer whose last owner released it.
func (p *Pool) freeBuffer(b *buffer) {
	p.stats.buffersFreed.Add(1)
	b.freed = true

	if p.recycle && b.pooled && cap(b.data) <= p.maxPooledBuffer {
		b.data = b.data[:0]
		p.stats.buffersRecycled.Add(1)
		p.buffers.Put(b)
		return
	}
	b.data = nil
}

// getStack retrieves an empty work list.
func (p *Pool) getStack() *[]*node {
	s := p.stacks.Get().(*[]*node)
	*s = (*s)[:0]
	return s
}

// putStack returns a work list to the pool.
func (p *Pool) putStack(s *[]*node) {
	if s == nil || cap(*s) > maxPooledStack {
		return
	}
	// Clear references
	clear((*s)[:cap(*s)])
	*s = (*s)[:0]
	p.stacks.Put(s)
}
