package rope

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// ChunkSize is the number of bytes a Builder gathers before turning them
// into a leaf.
const ChunkSize = 1024

// Builder provides efficient incremental construction of a rope.
// Small writes are gathered into chunks; each full chunk becomes one leaf
// appended to the rope under construction. The zero value is ready to use
// and allocates from DefaultPool.
type Builder struct {
	pool    *Pool
	rope    *Rope
	pending []byte
}

// NewBuilder creates a builder allocating from DefaultPool.
func NewBuilder() *Builder {
	return DefaultPool.NewBuilder()
}

// NewBuilder creates a builder allocating from p.
func (p *Pool) NewBuilder() *Builder {
	return &Builder{pool: p}
}

func (b *Builder) allocator() *Pool {
	if b.pool == nil {
		b.pool = DefaultPool
	}
	return b.pool
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) (int, error) {
	n := len(s)
	for len(s) > 0 {
		room := ChunkSize - len(b.pending)
		if room > len(s) {
			room = len(s)
		}
		b.pending = append(b.pending, s[:room]...)
		s = s[room:]
		if len(b.pending) >= ChunkSize {
			b.flush()
		}
	}
	return n, nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		room := ChunkSize - len(b.pending)
		if room > len(p) {
			room = len(p)
		}
		b.pending = append(b.pending, p[:room]...)
		p = p[room:]
		if len(b.pending) >= ChunkSize {
			b.flush()
		}
	}
	return n, nil
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.pending = append(b.pending, c)
	if len(b.pending) >= ChunkSize {
		b.flush()
	}
	return nil
}

// WriteRune appends the UTF-8 encoding of r.
func (b *Builder) WriteRune(r rune) (int, error) {
	before := len(b.pending)
	b.pending = utf8.AppendRune(b.pending, r)
	n := len(b.pending) - before
	if len(b.pending) >= ChunkSize {
		b.flush()
	}
	return n, nil
}

// WriteRope appends the text of r, sharing its tree.
func (b *Builder) WriteRope(r *Rope) {
	if r.Empty() {
		return
	}
	b.flush()
	b.appendRope(r)
}

// flush turns the pending bytes into a leaf.
func (b *Builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	p := b.allocator()
	leaf := &Rope{root: p.copyLeaf(b.pending), pool: p}
	b.pending = b.pending[:0]
	b.appendRope(leaf)
	leaf.Release()
}

func (b *Builder) appendRope(r *Rope) {
	if b.rope == nil {
		b.rope = r.Clone()
		return
	}
	next := b.rope.Append(r)
	b.rope.Release()
	b.rope = next
}

// Len returns the total number of bytes written.
func (b *Builder) Len() int {
	return b.rope.Len() + len(b.pending)
}

// Reset discards everything written so far.
func (b *Builder) Reset() {
	b.rope.Release()
	b.rope = nil
	b.pending = b.pending[:0]
}

// Build returns the rope holding everything written.
// After calling Build, the builder is reset.
func (b *Builder) Build() *Rope {
	b.flush()
	r := b.rope
	b.rope = nil
	if r == nil {
		return b.allocator().New()
	}
	return r
}

// ReadFrom implements io.ReaderFrom for efficient reading.
func (b *Builder) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024) // 64KB buffer
	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = b.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// FromReader creates a rope from everything r yields.
func FromReader(r io.Reader) (*Rope, error) {
	var builder Builder
	if _, err := builder.ReadFrom(r); err != nil {
		builder.Reset()
		return nil, err
	}
	return builder.Build(), nil
}

// Join concatenates multiple ropes with a separator.
// The result shares structure with every input.
func Join(ropes []*Rope, sep string) *Rope {
	if len(ropes) == 0 {
		return New()
	}

	var builder Builder
	builder.pool = ropes[0].allocator()
	sepRope := builder.pool.FromString(sep)
	defer sepRope.Release()

	for i, r := range ropes {
		if i > 0 {
			builder.WriteRope(sepRope)
		}
		builder.WriteRope(r)
	}
	return builder.Build()
}

// Repeat creates a rope holding n copies of s, allocated from DefaultPool.
func Repeat(s string, n int) *Rope {
	return DefaultPool.Repeat(s, n)
}

// Repeat creates a rope holding n copies of s. Copies are shared by
// doubling, so the tree has O(log n) distinct nodes over a single buffer.
// It panics with ErrTooLarge if len(s)*n overflows int.
func (p *Pool) Repeat(s string, n int) *Rope {
	if n <= 0 || len(s) == 0 {
		return p.New()
	}
	if n > math.MaxInt/len(s) {
		panic(fmt.Errorf("%w: %d copies of %d bytes", ErrTooLarge, n, len(s)))
	}

	unit := p.FromString(s)
	result := p.New()
	for n > 0 {
		if n&1 == 1 {
			next := result.Append(unit)
			result.Release()
			result = next
		}
		n >>= 1
		if n > 0 {
			next := unit.Append(unit)
			unit.Release()
			unit = next
		}
	}
	unit.Release()
	return result
}
