package rope

// buffer is the backing storage shared by leaf windows.
// Its bytes are never written after the buffer is handed to a leaf.
type buffer struct {
	data []byte

	// refs counts owners beyond the first, like node.refs.
	refs uint32

	// pooled is false for bytes adopted from a caller; those are never
	// recycled.
	pooled bool
	freed  bool
	pool   *Pool
}

// retain adds an owner and returns the buffer.
func (b *buffer) retain() *buffer {
	if b.freed {
		panic(releasedError("retain buffer"))
	}
	b.refs++
	return b
}

// release drops an owner. The last release hands the buffer back to its pool.
func (b *buffer) release() {
	if b.freed {
		panic(releasedError("release buffer"))
	}
	if b.refs > 0 {
		b.refs--
		return
	}
	b.pool.freeBuffer(b)
}
