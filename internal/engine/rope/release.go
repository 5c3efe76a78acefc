package rope

import (
	"context"
	"log/slog"
)

// destroy frees n, which has no owners left, together with every
// descendant that loses its last owner as a result.
//
// A rope built by repeated single-byte appends is a chain as deep as it
// is long, so children are not destroyed recursively. Concatenations that
// must die are pushed on a heap-allocated pending list instead; the top of
// the list gives up one child per step, and is freed once it holds none.
// Leaves are freed in place since they end the chain. Stack usage stays
// constant whatever the depth; the pending list grows instead.
func destroy(n *node) {
	p := n.pool
	p.stats.destroys.Add(1)

	if n.kind == kindLeaf {
		p.freeNode(n)
		return
	}

	size := n.size
	pending := p.getStack()
	stack := append(*pending, n)
	highWater := 1

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		child := top.left
		if child != nil {
			top.left = nil
		} else if child = top.right; child != nil {
			top.right = nil
		} else {
			stack = stack[:len(stack)-1]
			top.pool.freeNode(top)
			continue
		}

		if !child.drop() {
			continue
		}
		if child.kind == kindConcat {
			stack = append(stack, child)
			highWater = max(highWater, len(stack))
			continue
		}
		child.pool.freeNode(child)
	}

	p.stats.observePending(uint64(highWater))
	if highWater >= p.deepTeardown && p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("deep rope teardown",
			slog.Int("pending", highWater),
			slog.Int("size", size))
	}

	*pending = stack
	p.putStack(pending)
}
