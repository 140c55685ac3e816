// Package formats reads animated RSM models and reads and writes the
// 32-bit float OpenEXR images that hold baked vertex animation.
package formats

import (
	"encoding/binary"
	"fmt"
	"io"
)

// stickyReader reads little-endian values and keeps the first error,
// so long field sequences can be checked once at the end.
type stickyReader struct {
	r   io.Reader
	err error
}

func (s *stickyReader) read(v any) {
	if s.err != nil {
		return
	}
	s.err = binary.Read(s.r, binary.LittleEndian, v)
}

func (s *stickyReader) bytes(n int) []byte {
	buf := make([]byte, n)
	if s.err != nil {
		return buf
	}
	_, s.err = io.ReadFull(s.r, buf)
	return buf
}

func (s *stickyReader) skip(n int64) {
	if s.err != nil || n <= 0 {
		return
	}
	if _, err := io.CopyN(io.Discard, s.r, n); err != nil {
		s.err = io.ErrUnexpectedEOF
	}
}

// count reads an int32 element count. Counts outside [0, limit] fail with
// errBadCount since the stream cannot be resynchronised after them.
func (s *stickyReader) count(what string, limit int32, errBadCount error) int {
	var n int32
	s.read(&n)
	if s.err != nil {
		return 0
	}
	if n < 0 || n > limit {
		s.err = fmt.Errorf("%w: %d %s", errBadCount, n, what)
		return 0
	}
	return int(n)
}

// readSlice reads n fixed-size values of T.
func readSlice[T any](s *stickyReader, n int) []T {
	if n == 0 || s.err != nil {
		return nil
	}
	out := make([]T, n)
	s.read(out)
	return out
}
