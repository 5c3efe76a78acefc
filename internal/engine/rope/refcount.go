package rope

// Ownership follows one rule: whoever holds a *node obtained from a
// constructor, retain, or a child slot owns exactly one reference and must
// release it once. refs counts the owners beyond the first, so a freshly
// built node starts at zero and is destroyed by a single release.

// retain adds an owner and returns n.
func (n *node) retain() *node {
	if n.kind == kindFreed {
		panic(releasedError("retain"))
	}
	n.refs++
	return n
}

// drop removes one owner and reports whether n has none left and must be
// destroyed. It does not destroy n.
func (n *node) drop() bool {
	if n.kind == kindFreed {
		panic(releasedError("release"))
	}
	if n.refs == 0 {
		return true
	}
	n.refs--
	return false
}

// release removes one owner, destroying n when it was the last.
func (n *node) release() {
	if n.drop() {
		destroy(n)
	}
}
