package rope

import (
	"fmt"
	"testing"
)

func TestSubstrEveryRange(t *testing.T) {
	const text = "abcdef"
	for _, shape := range shapes {
		t.Run(shape.name, func(t *testing.T) {
			p := newTestPool()
			r := shape.build(p, text)

			for pos := 0; pos <= len(text); pos++ {
				for n := 0; pos+n <= len(text); n++ {
					sub, err := r.Substr(pos, n)
					if err != nil {
						t.Fatalf("Substr(%d, %d): %v", pos, n, err)
					}
					want := text[pos : pos+n]
					if sub.Len() != n {
						t.Errorf("Substr(%d, %d).Len() = %d", pos, n, sub.Len())
					}
					var got []byte
					for i := 0; i < sub.Len(); i++ {
						c, _ := sub.At(i)
						got = append(got, c)
					}
					if string(got) != want {
						t.Errorf("Substr(%d, %d) = %q, want %q", pos, n, got, want)
					}
					sub.Release()
				}
			}

			if r.String() != text {
				t.Errorf("source changed to %q", r.String())
			}
			r.Release()
			checkReleased(t, p)
		})
	}
}

func TestSubstrOfSubstr(t *testing.T) {
	p := newTestPool()
	r := buildBalanced(p, "the quick brown fox")

	outer, _ := r.Substr(4, 11) // "quick brown"
	inner, _ := outer.Substr(6, 5)
	if inner.String() != "brown" {
		t.Errorf("got %q, want %q", inner.String(), "brown")
	}

	for _, x := range []*Rope{r, outer, inner} {
		x.Release()
	}
	checkReleased(t, p)
}

func TestSubstrWholeNodeShares(t *testing.T) {
	p := newTestPool()
	r := buildLeft(p, "abcdef")
	before := p.Stats().NodesAllocated

	whole, _ := r.Substr(0, r.Len())
	if whole.root != r.root {
		t.Error("whole-range Substr should share the root")
	}
	if got := p.Stats().NodesAllocated - before; got != 0 {
		t.Errorf("allocated %d nodes, want 0", got)
	}

	// "abcde" is the left child of the root.
	head, _ := r.Substr(0, 5)
	if head.root != r.root.left {
		t.Error("Substr covering a child should share the child")
	}

	empty, _ := r.Substr(3, 0)
	if !empty.Empty() {
		t.Error("zero-length Substr should be empty")
	}

	for _, x := range []*Rope{r, whole, head, empty} {
		x.Release()
	}
	checkReleased(t, p)
}

func TestSubstrLeafSharesBuffer(t *testing.T) {
	p := newTestPool()
	r := p.FromString("hello world")
	before := p.Stats()

	sub, _ := r.Substr(6, 5)
	after := p.Stats()
	if after.NodesAllocated-before.NodesAllocated != 1 {
		t.Errorf("allocated %d nodes, want 1", after.NodesAllocated-before.NodesAllocated)
	}
	if after.BuffersAllocated != before.BuffersAllocated {
		t.Error("narrowing a leaf should not allocate a buffer")
	}
	if sub.root.buf != r.root.buf {
		t.Error("narrowed leaf should share the buffer")
	}
	if sub.IsFlat() {
		t.Error("a narrowed window is not flat")
	}

	r.Release()
	sub.Release()
	checkReleased(t, p)
}

func TestSubstrStraddleCost(t *testing.T) {
	for _, n := range []int{8, 64, 512} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			p := newTestPool()
			text := make([]byte, n)
			for i := range text {
				text[i] = byte('a' + i%26)
			}
			r := buildBalanced(p, string(text))
			depth := r.Depth()
			before := p.Stats().NodesAllocated

			sub, _ := r.Substr(1, n-2)
			allocated := int(p.Stats().NodesAllocated - before)
			if allocated > 2*depth+1 {
				t.Errorf("allocated %d nodes for depth %d", allocated, depth)
			}
			if sub.String() != string(text[1:n-1]) {
				t.Error("text mismatch")
			}

			r.Release()
			sub.Release()
			checkReleased(t, p)
		})
	}
}
