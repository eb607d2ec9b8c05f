// Package heap provides accessors for the CLI metadata heaps.
package heap

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/skdltmxn/dotnet-go/internal/stream"
)

// ErrOutOfRange is returned when a heap index points outside its heap.
var ErrOutOfRange = errors.New("heap: index out of range")

// Heaps groups the four metadata heaps of one module. A missing heap is
// represented by a nil slice; only index 0 can be read from it.
type Heaps struct {
	Strings     Strings
	Blob        Blob
	GUID        GUID
	UserStrings UserStrings
}

// Strings is the #Strings heap: null-terminated UTF-8 strings addressed by
// byte offset.
type Strings []byte

// Get returns the string at offset. Offset 0 is always the empty string.
func (s Strings) Get(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}
	if int(offset) >= len(s) {
		return "", fmt.Errorf("%w: #Strings offset 0x%x", ErrOutOfRange, offset)
	}
	r := stream.NewReader(s)
	_ = r.Seek(int(offset))
	str, err := r.ReadCString()
	if err != nil {
		return "", fmt.Errorf("heap: unterminated string at 0x%x: %w", offset, err)
	}
	return str, nil
}

// Blob is the #Blob heap: compressed-length-prefixed byte sequences.
type Blob []byte

// Get returns the blob at offset without copying. Offset 0 is the empty blob.
func (b Blob) Get(offset uint32) ([]byte, error) {
	if offset == 0 {
		return nil, nil
	}
	if int(offset) >= len(b) {
		return nil, fmt.Errorf("%w: #Blob offset 0x%x", ErrOutOfRange, offset)
	}
	r := stream.NewReader(b)
	_ = r.Seek(int(offset))
	n, err := r.ReadCompressedUint()
	if err != nil {
		return nil, fmt.Errorf("heap: bad blob length at 0x%x: %w", offset, err)
	}
	data, err := r.ReadBytesRef(int(n))
	if err != nil {
		return nil, fmt.Errorf("heap: blob at 0x%x overruns heap: %w", offset, err)
	}
	return data, nil
}

// GUID is the #GUID heap: 16-byte entries addressed by 1-based index.
type GUID []byte

// Get returns the GUID at index. Index 0 is the zero GUID.
func (g GUID) Get(index uint32) ([16]byte, error) {
	var guid [16]byte
	if index == 0 {
		return guid, nil
	}
	start := int(index-1) * 16
	if start+16 > len(g) {
		return guid, fmt.Errorf("%w: #GUID index %d", ErrOutOfRange, index)
	}
	copy(guid[:], g[start:start+16])
	return guid, nil
}

// UserStrings is the #US heap: length-prefixed UTF-16LE literals, each
// followed by a one-byte flag.
type UserStrings []byte

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Get returns the user string at offset.
func (u UserStrings) Get(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}
	if int(offset) >= len(u) {
		return "", fmt.Errorf("%w: #US offset 0x%x", ErrOutOfRange, offset)
	}
	r := stream.NewReader(u)
	_ = r.Seek(int(offset))
	n, err := r.ReadCompressedUint()
	if err != nil {
		return "", fmt.Errorf("heap: bad user string length at 0x%x: %w", offset, err)
	}
	data, err := r.ReadBytesRef(int(n))
	if err != nil {
		return "", fmt.Errorf("heap: user string at 0x%x overruns heap: %w", offset, err)
	}

	// Drop the trailing flag byte
	data = data[:len(data)&^1]
	out, err := utf16le.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("heap: invalid UTF-16 at 0x%x: %w", offset, err)
	}
	return string(out), nil
}
