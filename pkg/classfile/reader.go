package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errShortRead = errors.New("unexpected end of data")

// reader reads big-endian values from an in-memory classfile and tracks the
// cursor so error messages can report where decoding stopped.
type reader struct {
	data   []byte
	offset int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) need(n int) error {
	if n < 0 || r.remaining() < n {
		return fmt.Errorf("reading %d bytes at offset %d: %w", n, r.offset, errShortRead)
	}
	return nil
}

// u1 reads a single unsigned byte.
func (r *reader) u1() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// u2 reads a 2-byte unsigned integer.
func (r *reader) u2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// u4 reads a 4-byte unsigned integer.
func (r *reader) u4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// s4 reads a 4-byte signed integer.
func (r *reader) s4() (int32, error) {
	v, err := r.u4()
	return int32(v), err
}

// bytes reads exactly n bytes. The returned slice aliases the input.
func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return fmt.Errorf("skipping: %w", err)
	}
	r.offset += n
	return nil
}
