package stream

// Compressed integer limits (ECMA-335 II.23.2).
const (
	MaxCompressedUint = 0x1FFFFFFF
	MinCompressedInt  = -(1 << 28)
	MaxCompressedInt  = 1<<28 - 1
)

// ReadCompressedUint reads a compressed unsigned integer. The top bits of
// the first byte select a 1, 2 or 4 byte encoding.
func (r *Reader) ReadCompressedUint() (uint32, error) {
	v, _, err := r.readCompressed()
	return v, err
}

// ReadCompressedInt reads a compressed signed integer. The value is stored
// rotated left by one with the sign in the low bit.
func (r *Reader) ReadCompressedInt() (int32, error) {
	u, width, err := r.readCompressed()
	if err != nil {
		return 0, err
	}

	negative := u&1 != 0
	v := int32(u >> 1)
	if !negative {
		return v, nil
	}

	switch width {
	case 1:
		return v - 0x40, nil
	case 2:
		return v - 0x2000, nil
	default:
		return v - 0x10000000, nil
	}
}

func (r *Reader) readCompressed() (uint32, int, error) {
	b0, err := r.PeekU8()
	if err != nil {
		return 0, 0, err
	}

	var width int
	switch {
	case b0&0x80 == 0:
		width = 1
	case b0&0xC0 == 0x80:
		width = 2
	case b0&0xE0 == 0xC0:
		width = 4
	default:
		return 0, 0, ErrInvalidCompressed
	}

	b, err := r.take(width)
	if err != nil {
		return 0, 0, err
	}
	switch width {
	case 1:
		return uint32(b0), 1, nil
	case 2:
		return uint32(b0&0x3F)<<8 | uint32(b[1]), 2, nil
	default:
		return uint32(b0&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, nil
	}
}

// AppendCompressedUint appends the compressed encoding of v to dst.
// Values above MaxCompressedUint cannot be encoded.
func AppendCompressedUint(dst []byte, v uint32) ([]byte, error) {
	switch {
	case v <= 0x7F:
		return append(dst, byte(v)), nil
	case v <= 0x3FFF:
		return append(dst, byte(v>>8)|0x80, byte(v)), nil
	case v <= MaxCompressedUint:
		return append(dst, byte(v>>24)|0xC0, byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return dst, ErrInvalidCompressed
	}
}

// AppendCompressedInt appends the compressed signed encoding of v to dst.
func AppendCompressedInt(dst []byte, v int32) ([]byte, error) {
	var sign uint32
	if v < 0 {
		sign = 1
	}

	switch {
	case v >= -0x40 && v < 0x40:
		return append(dst, byte((uint32(v)<<1)&0x7E|sign)), nil
	case v >= -0x2000 && v < 0x2000:
		u := (uint32(v)<<1)&0x3FFE | sign
		return append(dst, byte(u>>8)|0x80, byte(u)), nil
	case v >= MinCompressedInt && v <= MaxCompressedInt:
		u := (uint32(v)<<1)&0x1FFFFFFE | sign
		return append(dst, byte(u>>24)|0xC0, byte(u>>16), byte(u>>8), byte(u)), nil
	default:
		return dst, ErrInvalidCompressed
	}
}
