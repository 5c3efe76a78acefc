package rope

import "bytes"

// Equal returns true if both ropes hold the same text.
// Note: This compares content, not structure, and flattens both sides.
func (r *Rope) Equal(other *Rope) bool {
	if r.Len() != other.Len() {
		return false
	}
	if r.Empty() || r.root == other.root {
		return true
	}
	return bytes.Equal(r.Bytes(), other.Bytes())
}

// Compare orders two ropes by their text, returning -1, 0 or +1 like
// bytes.Compare.
func (r *Rope) Compare(other *Rope) int {
	if r.Len() > 0 && other.Len() > 0 && r.root == other.root {
		return 0
	}
	return bytes.Compare(r.Bytes(), other.Bytes())
}
