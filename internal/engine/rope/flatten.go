package rope

import (
	"context"
	"log/slog"
)

// flatten returns a flat leaf with the same text as n. If n is already
// flat it is returned as-is, without a new owner; callers compare the
// result against n to tell the cases apart. Otherwise the returned leaf
// is new and owned by the caller.
//
// The traversal keeps its own work list: pop a node, copy a leaf's window
// at the cursor, or push a concatenation's right then left child so the
// left side is copied first.
func (p *Pool) flatten(n *node) *node {
	if n.isFlat() {
		return n
	}

	buf := p.newBuffer(n.size)
	work := p.getStack()
	stack := append(*work, n)
	cursor := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch top.kind {
		case kindLeaf:
			cursor += copy(buf.data[cursor:], top.window())
		case kindConcat:
			stack = append(stack, top.right, top.left)
		default:
			panic(releasedError("flatten"))
		}
	}

	*work = stack
	p.putStack(work)

	p.stats.flattens.Add(1)
	p.stats.bytesFlattened.Add(uint64(n.size))
	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("rope flattened", slog.Int("size", n.size))
	}

	return p.newLeaf(buf, 0, n.size)
}
