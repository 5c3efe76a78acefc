package rope

// Substrings share structure with the source tree. A request covering a
// whole node reuses that node; a leaf window is narrowed without copying;
// a range straddling a concatenation becomes one new concatenation of a
// suffix of the left child and a prefix of the right. Cost is O(depth) in
// time and in new nodes, never O(size).

// substr returns an owned node holding [pos, pos+length) of n.
// The caller guarantees length > 0 and pos+length <= n.size.
func (p *Pool) substr(n *node, pos, length int) *node {
	end := pos + length
	for {
		if pos == 0 && end == n.size {
			return n.retain()
		}

		switch n.kind {
		case kindLeaf:
			return p.newLeaf(n.buf.retain(), n.off+pos, length)
		case kindConcat:
			split := n.left.size
			switch {
			case end <= split:
				n = n.left
			case pos >= split:
				pos -= split
				end -= split
				n = n.right
			default:
				left := p.suffix(n.left, pos)
				right := p.prefix(n.right, end-split)
				return p.newConcat(left, right)
			}
		default:
			panic(releasedError("substr"))
		}
	}
}

// suffix returns an owned node holding [pos, n.size). The caller
// guarantees pos < n.size.
//
// Walking down, every right sibling that survives the cut is remembered;
// the result is rebuilt bottom-up so deep left chains never recurse.
func (p *Pool) suffix(n *node, pos int) *node {
	kept := p.getStack()
	defer p.putStack(kept)

	for pos > 0 && n.kind == kindConcat {
		split := n.left.size
		if pos >= split {
			pos -= split
			n = n.right
			continue
		}
		*kept = append(*kept, n.right)
		n = n.left
	}

	var acc *node
	switch {
	case pos == 0:
		acc = n.retain()
	case n.kind == kindLeaf:
		acc = p.newLeaf(n.buf.retain(), n.off+pos, n.size-pos)
	default:
		panic(releasedError("suffix"))
	}

	for i := len(*kept) - 1; i >= 0; i-- {
		acc = p.newConcat(acc, (*kept)[i].retain())
	}
	return acc
}

// prefix returns an owned node holding [0, end) of n. The caller
// guarantees 0 < end <= n.size.
func (p *Pool) prefix(n *node, end int) *node {
	kept := p.getStack()
	defer p.putStack(kept)

	for end < n.size && n.kind == kindConcat {
		split := n.left.size
		if end <= split {
			n = n.left
			continue
		}
		*kept = append(*kept, n.left)
		end -= split
		n = n.right
	}

	var acc *node
	switch {
	case end == n.size:
		acc = n.retain()
	case n.kind == kindLeaf:
		acc = p.newLeaf(n.buf.retain(), n.off, end)
	default:
		panic(releasedError("prefix"))
	}

	for i := len(*kept) - 1; i >= 0; i-- {
		acc = p.newConcat((*kept)[i].retain(), acc)
	}
	return acc
}
