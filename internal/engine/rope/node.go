package rope

// kind tags the variant held by a node.
type kind uint8

const (
	// kindLeaf nodes hold a window into a shared buffer.
	kindLeaf kind = iota

	// kindConcat nodes hold two child references, left then right.
	kindConcat

	// kindFreed marks a node whose last owner released it.
	kindFreed
)

func (k kind) String() string {
	switch k {
	case kindLeaf:
		return "leaf"
	case kindConcat:
		return "concat"
	case kindFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// node is either a leaf or a concatenation. Which fields are valid
// depends on kind.
type node struct {
	kind kind

	// refs counts owners beyond the implicit first one. A node with
	// refs == 0 is destroyed by the next release.
	refs uint32

	// size is the number of bytes represented. It never changes.
	size int

	// pool allocated the node and reclaims it.
	pool *Pool

	// Leaf fields: the window [off, off+size) of buf.data.
	buf *buffer
	off int

	// Concatenation fields. Both are owned references.
	left, right *node
}

// window returns the bytes a leaf represents. Its capacity ends with the
// window so appending to it never writes into the shared buffer.
func (n *node) window() []byte {
	end := n.off + n.size
	return n.buf.data[n.off:end:end]
}

// isFlat reports whether n is a leaf whose window covers its whole buffer.
func (n *node) isFlat() bool {
	return n.kind == kindLeaf && n.off == 0 && n.size == len(n.buf.data)
}

// at returns the byte at pos. The caller guarantees 0 <= pos < n.size.
func (n *node) at(pos int) byte {
	for {
		switch n.kind {
		case kindLeaf:
			return n.buf.data[n.off+pos]
		case kindConcat:
			if pos < n.left.size {
				n = n.left
			} else {
				pos -= n.left.size
				n = n.right
			}
		default:
			panic(releasedError("at"))
		}
	}
}

// append returns a new concatenation of n followed by other.
// Neither operand is modified; both gain an owner.
func (n *node) append(other *node) *node {
	return n.pool.newConcat(n.retain(), other.retain())
}

// leafAt descends to the leaf holding pos and returns it along with the
// position relative to the leaf window.
func (n *node) leafAt(pos int) (*node, int) {
	for {
		switch n.kind {
		case kindLeaf:
			return n, pos
		case kindConcat:
			if pos < n.left.size {
				n = n.left
			} else {
				pos -= n.left.size
				n = n.right
			}
		default:
			panic(releasedError("seek"))
		}
	}
}

// depth returns the height of the tree rooted at n; a leaf has depth 1.
func (n *node) depth() int {
	type frame struct {
		n     *node
		level int
	}
	deepest := 0
	stack := []frame{{n, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.level > deepest {
			deepest = f.level
		}
		if f.n.kind == kindConcat {
			stack = append(stack, frame{f.n.right, f.level + 1}, frame{f.n.left, f.level + 1})
		}
	}
	return deepest
}

// leaves counts the leaf references reachable from n. A leaf shared by
// several parents is counted once per reference.
func (n *node) leaves() int {
	count := 0
	stack := []*node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch top.kind {
		case kindLeaf:
			count++
		case kindConcat:
			stack = append(stack, top.right, top.left)
		default:
			panic(releasedError("leaves"))
		}
	}
	return count
}
