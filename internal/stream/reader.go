// Package stream provides binary reading utilities for PE and CLI metadata parsing.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned by Reader
var (
	ErrUnexpectedEOF     = errors.New("stream: premature end of data")
	ErrNegativeOffset    = errors.New("stream: negative offset")
	ErrInvalidCompressed = errors.New("stream: invalid compressed integer")
)

// Reader is a cursor over a buffered image. Multi-byte values are
// little-endian.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// take returns the next n bytes and advances past them. The slice aliases
// the underlying data.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.pos }

// Seek sets the read position. Seeking to the end of the data is allowed;
// seeking past it is not.
func (r *Reader) Seek(offset int) error {
	switch {
	case offset < 0:
		return ErrNegativeOffset
	case offset > len(r.data):
		return ErrUnexpectedEOF
	}
	r.pos = offset
	return nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return max(len(r.data)-r.pos, 0)
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// Align rounds the read position up to a multiple of n.
func (r *Reader) Align(n int) {
	if n > 1 {
		r.pos = (r.pos + n - 1) / n * n
	}
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadUint reads an unsigned integer 1, 2 or 4 bytes wide, as used by
// metadata table columns.
func (r *Reader) ReadUint(width int) (uint32, error) {
	switch width {
	case 1:
		v, err := r.ReadU8()
		return uint32(v), err
	case 2:
		v, err := r.ReadU16()
		return uint32(v), err
	case 4:
		return r.ReadU32()
	}
	return 0, fmt.Errorf("stream: unsupported integer width %d", width)
}

// ReadBytes reads a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// ReadBytesRef returns the next n bytes without copying. The slice is only
// valid while the underlying data is.
func (r *Reader) ReadBytesRef(n int) ([]byte, error) {
	return r.take(n)
}

// ReadCString reads a NUL-terminated string. On failure the position is
// left unchanged.
func (r *Reader) ReadCString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", ErrUnexpectedEOF
}

// ReadFixedString reads an n-byte field and cuts it at the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// PeekU8 returns the next byte without advancing.
func (r *Reader) PeekU8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	return r.data[r.pos], nil
}

// Slice returns a Reader over data[offset:offset+length], independent of the
// current position.
func (r *Reader) Slice(offset, length int) (*Reader, error) {
	if offset < 0 || length < 0 || offset > len(r.data) || length > len(r.data)-offset {
		return nil, ErrUnexpectedEOF
	}
	return NewReader(r.data[offset : offset+length]), nil
}

// SubReader consumes the next length bytes and returns a Reader over them.
func (r *Reader) SubReader(length int) (*Reader, error) {
	b, err := r.take(length)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}

// Data returns the underlying byte slice.
func (r *Reader) Data() []byte { return r.data }
