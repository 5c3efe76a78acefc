// Package rope provides an immutable, reference-counted rope for building
// byte strings incrementally without quadratic copying.
//
// A rope is a binary tree. Leaf nodes hold a window into a shared backing
// buffer; concatenation nodes hold a left and a right child. Appending
// allocates one concatenation node and copies nothing. Taking a substring
// descends the tree and reuses whole subtrees and buffer windows, so its
// cost is bounded by the tree depth rather than the text length. The
// contiguous text is materialized lazily: Bytes flattens the tree once and
// caches the flat leaf in place of the old root.
//
// Key features:
//   - O(1) Append, O(depth) At and Substr, O(n) flatten
//   - Immutable operations return new ropes; originals are never modified
//   - Nodes and buffers are shared between ropes and reference counted
//   - Flatten and teardown use explicit work lists, so ropes built from
//     millions of single-byte appends never exhaust the goroutine stack
//   - Freed nodes and buffers are recycled through a Pool
//
// Ownership: every *Rope returned by this package owns one reference to
// its tree and must be released exactly once when no longer needed:
//
//	r := rope.FromString("hello")
//	defer r.Release()
//
//	s := r.AppendString(", world") // "hello, world"
//	defer s.Release()
//
//	sub, err := s.Substr(7, 5) // "world", shares s's buffers
//	if err != nil {
//	    return err
//	}
//	defer sub.Release()
//
// Forgetting to release only costs recycling; the garbage collector still
// reclaims the memory. Releasing twice through one handle is a no-op, but
// a node released by more owners than it has panics with ErrReleased.
//
// Concurrency: reference counts are plain integers. A rope, and every rope
// sharing structure with it, must stay on one goroutine; pass ropes between
// goroutines by handing over ownership. Pools are safe for concurrent use.
package rope
