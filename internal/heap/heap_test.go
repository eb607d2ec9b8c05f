package heap

import (
	"bytes"
	"errors"
	"testing"
)

func TestStrings(t *testing.T) {
	s := Strings("\x00Object\x00System\x00")

	tests := []struct {
		offset uint32
		want   string
	}{
		{0, ""},
		{1, "Object"},
		{3, "ject"},
		{8, "System"},
	}
	for _, tt := range tests {
		got, err := s.Get(tt.offset)
		if err != nil {
			t.Fatalf("Get(%d): %v", tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("Get(%d): got %q, want %q", tt.offset, got, tt.want)
		}
	}

	if _, err := s.Get(100); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Get(100): got %v", err)
	}
	if got, err := Strings(nil).Get(0); err != nil || got != "" {
		t.Errorf("missing heap offset 0: got %q, %v", got, err)
	}
}

func TestBlob(t *testing.T) {
	b := Blob{0x00, 0x03, 0x1D, 0x0E, 0x01, 0x00, 0x05, 0xAA}

	got, err := b.Get(1)
	if err != nil || !bytes.Equal(got, []byte{0x1D, 0x0E, 0x01}) {
		t.Errorf("Get(1): got % x, %v", got, err)
	}
	got, err = b.Get(5)
	if err != nil || len(got) != 0 {
		t.Errorf("Get(5): got % x, %v", got, err)
	}
	if _, err := b.Get(6); err == nil {
		t.Error("Get(6): expected overrun error")
	}
}

func TestGUID(t *testing.T) {
	g := make(GUID, 32)
	g[16] = 0xAB

	zero, err := g.Get(0)
	if err != nil || zero != [16]byte{} {
		t.Errorf("Get(0): got %x, %v", zero, err)
	}
	second, err := g.Get(2)
	if err != nil || second[0] != 0xAB {
		t.Errorf("Get(2): got %x, %v", second, err)
	}
	if _, err := g.Get(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Get(3): got %v", err)
	}
}

func TestUserStrings(t *testing.T) {
	// "Hi" + flag byte
	u := UserStrings{0x00, 0x05, 'H', 0x00, 'i', 0x00, 0x00}

	got, err := u.Get(1)
	if err != nil || got != "Hi" {
		t.Errorf("Get(1): got %q, %v", got, err)
	}
}
