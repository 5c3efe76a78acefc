package rope

// Rope is an immutable byte string built from shared pieces.
// Operations return new Rope values; the receiver's text never changes.
//
// A *Rope owns one reference to its tree. Clone adds an owner and
// Release drops one; the tree is reclaimed when its last owner releases
// it. A nil *Rope reads as the empty rope.
type Rope struct {
	root *node
	pool *Pool
}

// New creates an empty rope.
func New() *Rope {
	return DefaultPool.New()
}

// FromString creates a rope holding a copy of s.
func FromString(s string) *Rope {
	return DefaultPool.FromString(s)
}

// FromBytes creates a rope over b without copying it.
// The caller must not modify b afterwards.
func FromBytes(b []byte) *Rope {
	return DefaultPool.FromBytes(b)
}

// New creates an empty rope that allocates from p.
func (p *Pool) New() *Rope {
	return &Rope{pool: p}
}

// FromString creates a rope holding a copy of s, allocated from p.
func (p *Pool) FromString(s string) *Rope {
	if len(s) == 0 {
		return p.New()
	}
	return &Rope{root: p.stringLeaf(s), pool: p}
}

// FromBytes creates a rope over b without copying it, allocated from p.
// The caller must not modify b afterwards.
func (p *Pool) FromBytes(b []byte) *Rope {
	if len(b) == 0 {
		return p.New()
	}
	return &Rope{root: p.newLeaf(p.adoptBuffer(b), 0, len(b)), pool: p}
}

// allocator returns the pool new nodes for r come from.
func (r *Rope) allocator() *Pool {
	if r == nil || r.pool == nil {
		return DefaultPool
	}
	return r.pool
}

// Len returns the length in bytes.
func (r *Rope) Len() int {
	if r == nil || r.root == nil {
		return 0
	}
	return r.root.size
}

// Empty returns true if the rope holds no bytes.
func (r *Rope) Empty() bool {
	return r.Len() == 0
}

// At returns the byte at pos.
// Returns an error wrapping ErrOutOfRange unless 0 <= pos < Len().
func (r *Rope) At(pos int) (byte, error) {
	size := r.Len()
	if pos < 0 || pos >= size {
		return 0, indexError(pos, size)
	}
	return r.root.at(pos), nil
}

// Substr returns the length bytes starting at pos.
// Returns an error wrapping ErrOutOfRange unless the range lies within
// the rope. The result shares structure with r.
func (r *Rope) Substr(pos, length int) (*Rope, error) {
	size := r.Len()
	if pos < 0 || length < 0 || pos > size-length {
		return nil, rangeError(pos, length, size)
	}
	p := r.allocator()
	if length == 0 {
		return p.New(), nil
	}
	return &Rope{root: p.substr(r.root, pos, length), pool: p}, nil
}

// Append returns r followed by other. Neither operand changes.
// If either side is empty the result shares the other side's tree.
// Append panics with ErrTooLarge if the combined length overflows int.
func (r *Rope) Append(other *Rope) *Rope {
	switch {
	case r.Empty():
		return other.Clone()
	case other.Empty():
		return r.Clone()
	}
	addLen(r.Len(), other.Len())
	return &Rope{root: r.root.append(other.root), pool: r.allocator()}
}

// AppendString returns r followed by a copy of s.
func (r *Rope) AppendString(s string) *Rope {
	if len(s) == 0 {
		return r.Clone()
	}
	addLen(r.Len(), len(s))
	p := r.allocator()
	leaf := p.stringLeaf(s)
	if r.Empty() {
		return &Rope{root: leaf, pool: p}
	}
	return &Rope{root: p.newConcat(r.root.retain(), leaf), pool: p}
}

// AppendBytes returns r followed by b, which is adopted without copying.
// The caller must not modify b afterwards.
func (r *Rope) AppendBytes(b []byte) *Rope {
	if len(b) == 0 {
		return r.Clone()
	}
	addLen(r.Len(), len(b))
	p := r.allocator()
	leaf := p.newLeaf(p.adoptBuffer(b), 0, len(b))
	if r.Empty() {
		return &Rope{root: leaf, pool: p}
	}
	return &Rope{root: p.newConcat(r.root.retain(), leaf), pool: p}
}

// Bytes returns the text as one contiguous slice, flattening the tree on
// first use and keeping the flat form for later calls. The slice must not
// be modified and is valid until r is released.
func (r *Rope) Bytes() []byte {
	if r.Empty() {
		return nil
	}
	flat := r.allocator().flatten(r.root)
	if flat != r.root {
		old := r.root
		r.root = flat
		old.release()
	}
	return flat.window()
}

// String returns the text as a string.
func (r *Rope) String() string {
	return string(r.Bytes())
}

// Clone returns a new owner of the same text. The two handles are
// released independently.
func (r *Rope) Clone() *Rope {
	if r.Empty() {
		return r.allocator().New()
	}
	return &Rope{root: r.root.retain(), pool: r.allocator()}
}

// Release drops r's reference to its tree; r reads as empty afterwards.
// Calling Release more than once is a no-op.
func (r *Rope) Release() {
	if r == nil || r.root == nil {
		return
	}
	root := r.root
	r.root = nil
	root.release()
}

// Depth returns the height of the tree; 0 for an empty rope and 1 for a
// single leaf. Useful for debugging and testing.
func (r *Rope) Depth() int {
	if r.Empty() {
		return 0
	}
	return r.root.depth()
}

// LeafCount returns the number of leaf references in the tree.
func (r *Rope) LeafCount() int {
	if r.Empty() {
		return 0
	}
	return r.root.leaves()
}

// IsFlat returns true if the rope is a single leaf covering its whole
// buffer, so Bytes will not copy.
func (r *Rope) IsFlat() bool {
	return r.Empty() || r.root.isFlat()
}
