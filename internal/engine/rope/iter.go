package rope

import (
	"io"
	"iter"
)

// ChunkIterator iterates over the leaf windows of a rope in order,
// without flattening it. The rope must not be flattened (Bytes, String,
// Equal, Compare) or released while an iterator is in use.
type ChunkIterator struct {
	stack  []*node
	chunk  []byte
	offset int
	next   int
}

// Chunks returns an iterator over all chunks in the rope.
func (r *Rope) Chunks() *ChunkIterator {
	it := &ChunkIterator{stack: make([]*node, 0, 16)}
	if !r.Empty() {
		it.stack = append(it.stack, r.root)
	}
	return it
}

// Next advances to the next chunk.
// Returns true if there is a chunk, false if iteration is complete.
func (it *ChunkIterator) Next() bool {
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		switch top.kind {
		case kindLeaf:
			it.chunk = top.window()
			it.offset = it.next
			it.next += top.size
			return true
		case kindConcat:
			it.stack = append(it.stack, top.right, top.left)
		default:
			panic(releasedError("iterate"))
		}
	}
	it.chunk = nil
	return false
}

// Chunk returns the current chunk. It must not be modified.
func (it *ChunkIterator) Chunk() []byte {
	return it.chunk
}

// Offset returns the byte offset of the start of the current chunk.
func (it *ChunkIterator) Offset() int {
	return it.offset
}

// All returns a range-over-func sequence of (offset, chunk) pairs.
func (r *Rope) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		it := r.Chunks()
		for it.Next() {
			if !yield(it.Offset(), it.Chunk()) {
				return
			}
		}
	}
}

// WriteTo implements io.WriterTo, writing chunk by chunk.
func (r *Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	it := r.Chunks()
	for it.Next() {
		n, err := w.Write(it.Chunk())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
