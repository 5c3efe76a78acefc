package rope

import (
	"errors"
	"io"
)

// errNegativeOffset is returned for seeks and reads before the start.
var errNegativeOffset = errors.New("rope: negative offset")

// Reader implements io.Reader, io.ReaderAt, io.ByteReader and io.Seeker
// over a rope without flattening it. The rope must outlive the reader and
// must not be flattened while the reader is in use.
type Reader struct {
	rope *Rope
	pos  int64
}

// NewReader returns a reader positioned at the start of r.
func (r *Rope) NewReader() *Reader {
	return &Reader{rope: r}
}

// Len returns the number of unread bytes.
func (rd *Reader) Len() int {
	size := int64(rd.rope.Len())
	if rd.pos >= size {
		return 0
	}
	return int(size - rd.pos)
}

// Read implements the standard Read interface.
func (rd *Reader) Read(p []byte) (int, error) {
	n, err := rd.ReadAt(p, rd.pos)
	rd.pos += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadAt implements the standard ReadAt interface:
// it reads len(p) bytes from offset off into p, and returns
// the number of bytes actually read. If n < len(p), err will
// explain the shortfall.
func (rd *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	size := int64(rd.rope.Len())
	if off >= size {
		return 0, io.EOF
	}

	n := 0
	o := int(off)
	for n < len(p) && o+n < int(size) {
		leaf, at := rd.rope.root.leafAt(o + n)
		n += copy(p[n:], leaf.window()[at:])
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (rd *Reader) ReadByte() (byte, error) {
	if rd.pos < 0 || rd.pos >= int64(rd.rope.Len()) {
		return 0, io.EOF
	}
	c := rd.rope.root.at(int(rd.pos))
	rd.pos++
	return c, nil
}

// Seek implements io.Seeker.
func (rd *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = rd.pos + offset
	case io.SeekEnd:
		abs = int64(rd.rope.Len()) + offset
	default:
		return 0, errors.New("rope: invalid whence")
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	rd.pos = abs
	return abs, nil
}
