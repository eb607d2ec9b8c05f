package stream

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderFixedWidth(t *testing.T) {
	r := NewReader([]byte{0x01, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12})

	b, err := r.ReadU8()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadU8: got 0x%02x, %v", b, err)
	}
	w, err := r.ReadU16()
	if err != nil || w != 0x1234 {
		t.Fatalf("ReadU16: got 0x%04x, %v", w, err)
	}
	d, err := r.ReadU32()
	if err != nil || d != 0x12345678 {
		t.Fatalf("ReadU32: got 0x%08x, %v", d, err)
	}

	if r.Remaining() != 0 {
		t.Errorf("remaining: got %d, want 0", r.Remaining())
	}
	if _, err := r.ReadU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReaderSeekAndCString(t *testing.T) {
	r := NewReader([]byte("\x00abc\x00de"))

	if err := r.Seek(1); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	s, err := r.ReadCString()
	if err != nil || s != "abc" {
		t.Fatalf("ReadCString: got %q, %v", s, err)
	}

	// Unterminated string leaves the cursor where it was.
	pos := r.Offset()
	if _, err := r.ReadCString(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	if r.Offset() != pos {
		t.Errorf("offset moved on failure: got %d, want %d", r.Offset(), pos)
	}

	if err := r.Seek(100); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Seek past end: got %v", err)
	}
	if err := r.Seek(-1); !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("Seek negative: got %v", err)
	}
}

func TestReaderReadBytesShort(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.ReadBytes(4); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	got, err := r.ReadBytesRef(3)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBytesRef: got %v, %v", got, err)
	}
}

func TestCompressedUint(t *testing.T) {
	tests := []struct {
		value   uint32
		encoded []byte
	}{
		{0x03, []byte{0x03}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x80, 0x80}},
		{0x2E57, []byte{0xAE, 0x57}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x00, 0x40, 0x00}},
		{0x1FFFFFFF, []byte{0xDF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		enc, err := AppendCompressedUint(nil, tt.value)
		if err != nil {
			t.Fatalf("AppendCompressedUint(0x%x): %v", tt.value, err)
		}
		if !bytes.Equal(enc, tt.encoded) {
			t.Errorf("AppendCompressedUint(0x%x): got % x, want % x", tt.value, enc, tt.encoded)
		}

		r := NewReader(enc)
		got, err := r.ReadCompressedUint()
		if err != nil {
			t.Fatalf("ReadCompressedUint(% x): %v", enc, err)
		}
		if got != tt.value {
			t.Errorf("ReadCompressedUint(% x): got 0x%x, want 0x%x", enc, got, tt.value)
		}
		if r.Remaining() != 0 {
			t.Errorf("ReadCompressedUint(% x): %d bytes left", enc, r.Remaining())
		}

		again, err := AppendCompressedUint(nil, got)
		if err != nil || !bytes.Equal(again, enc) {
			t.Errorf("re-encode 0x%x: got % x, want % x", got, again, enc)
		}
	}

	if _, err := AppendCompressedUint(nil, 0x20000000); !errors.Is(err, ErrInvalidCompressed) {
		t.Errorf("encoding 0x20000000: got %v", err)
	}
}

func TestCompressedUintInvalid(t *testing.T) {
	tests := [][]byte{
		{0xFF},
		{0xE0, 0x00, 0x00, 0x00},
	}
	for _, data := range tests {
		if _, err := NewReader(data).ReadCompressedUint(); !errors.Is(err, ErrInvalidCompressed) {
			t.Errorf("ReadCompressedUint(% x): got %v", data, err)
		}
	}

	truncated := [][]byte{
		{},
		{0x80},
		{0xC0, 0x00, 0x00},
	}
	for _, data := range truncated {
		if _, err := NewReader(data).ReadCompressedUint(); !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("ReadCompressedUint(% x): got %v", data, err)
		}
	}
}

func TestCompressedInt(t *testing.T) {
	tests := []struct {
		value   int32
		encoded []byte
	}{
		{3, []byte{0x06}},
		{-3, []byte{0x7B}},
		{64, []byte{0x80, 0x80}},
		{-64, []byte{0x01}},
		{8192, []byte{0xC0, 0x00, 0x40, 0x00}},
		{-8192, []byte{0x80, 0x01}},
		{268435455, []byte{0xDF, 0xFF, 0xFF, 0xFE}},
		{-268435456, []byte{0xC0, 0x00, 0x00, 0x01}},
	}

	for _, tt := range tests {
		enc, err := AppendCompressedInt(nil, tt.value)
		if err != nil {
			t.Fatalf("AppendCompressedInt(%d): %v", tt.value, err)
		}
		if !bytes.Equal(enc, tt.encoded) {
			t.Errorf("AppendCompressedInt(%d): got % x, want % x", tt.value, enc, tt.encoded)
		}

		got, err := NewReader(enc).ReadCompressedInt()
		if err != nil {
			t.Fatalf("ReadCompressedInt(% x): %v", enc, err)
		}
		if got != tt.value {
			t.Errorf("ReadCompressedInt(% x): got %d, want %d", enc, got, tt.value)
		}
	}
}
