package args

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxArgLen bounds the encoded size of one argument including its type info.
const MaxArgLen = 0xFFFF

// DecodeVerbose reads one self-describing argument from b using the message
// byte order. It returns the argument and the bytes consumed.
func DecodeVerbose(b []byte, bigEndian bool) (Arg, int, error) {
	if len(b) < TypeInfoLen {
		return nil, 0, ErrTruncated
	}
	bo := order(bigEndian)
	ti := TypeInfo(bo.Uint32(b[0:TypeInfoLen]))
	body := b[TypeInfoLen:]

	var (
		arg Arg
		n   int
		err error
	)
	switch ti.Kind() {
	case TypeBool:
		arg, n, err = decodeBool(ti, body)
	case TypeSigned, TypeUnsigned:
		arg, n, err = decodeInt(ti, body, bo, bigEndian)
	case TypeFloat:
		arg, n, err = decodeFloat(ti, body, bo, bigEndian)
	case TypeString:
		arg, n, err = decodeString(ti, body, bo)
	case TypeRaw:
		arg, n, err = decodeRaw(ti, body, bo)
	default:
		return nil, 0, fmt.Errorf("%w: 0x%08x", ErrMalformedTypeInfo, uint32(ti))
	}
	if err != nil {
		return nil, 0, err
	}
	return arg, TypeInfoLen + n, nil
}

func decodeBool(ti TypeInfo, b []byte) (Arg, int, error) {
	if c := ti.LengthClass(); c != 0 && c != Len8 {
		return nil, 0, fmt.Errorf("%w: bool length class %d", ErrMalformedTypeInfo, c)
	}
	if len(b) < 1 {
		return nil, 0, ErrTruncated
	}
	return Bool{Value: b[0] != 0}, 1, nil
}

func decodeInt(ti TypeInfo, b []byte, bo binary.ByteOrder, bigEndian bool) (Arg, int, error) {
	if ti.HasVariInfo() || ti.HasFixedPoint() {
		return nil, 0, fmt.Errorf("%w: integer with variable info or fixed point", ErrMalformedTypeInfo)
	}
	width := lengthBytes(ti.LengthClass())
	if width == 0 {
		return nil, 0, fmt.Errorf("%w: integer length class %d", ErrMalformedTypeInfo, ti.LengthClass())
	}
	if len(b) < width {
		return nil, 0, ErrTruncated
	}
	if width == 16 {
		return UnknownVerbose{TypeInfo: uint32(ti), Data: clone(b[:16]), BigEndian: bigEndian}, 16, nil
	}
	u := readUint(b[:width], bo)
	if ti.Kind() == TypeSigned {
		return SignedInt{Value: signExtend(u, width), Width: width}, width, nil
	}
	switch ti.Coding() {
	case codingHex:
		return HexInt{Value: u, Width: width}, width, nil
	case codingBinary:
		return BinaryInt{Value: u, Width: width}, width, nil
	default:
		return UnsignedInt{Value: u, Width: width}, width, nil
	}
}

func decodeFloat(ti TypeInfo, b []byte, bo binary.ByteOrder, bigEndian bool) (Arg, int, error) {
	if ti.HasVariInfo() {
		return nil, 0, fmt.Errorf("%w: float with variable info", ErrMalformedTypeInfo)
	}
	switch ti.LengthClass() {
	case Len32:
		if len(b) < 4 {
			return nil, 0, ErrTruncated
		}
		return Float32{Value: math.Float32frombits(bo.Uint32(b[:4]))}, 4, nil
	case Len64:
		if len(b) < 8 {
			return nil, 0, ErrTruncated
		}
		return Float64{Value: math.Float64frombits(bo.Uint64(b[:8]))}, 8, nil
	case Len16, Len128:
		width := lengthBytes(ti.LengthClass())
		if len(b) < width {
			return nil, 0, ErrTruncated
		}
		return UnknownVerbose{TypeInfo: uint32(ti), Data: clone(b[:width]), BigEndian: bigEndian}, width, nil
	default:
		return nil, 0, fmt.Errorf("%w: float length class %d", ErrMalformedTypeInfo, ti.LengthClass())
	}
}

func decodeString(ti TypeInfo, b []byte, bo binary.ByteOrder) (Arg, int, error) {
	if ti.HasVariInfo() {
		return nil, 0, fmt.Errorf("%w: string with variable info", ErrMalformedTypeInfo)
	}
	data, n, err := lengthPrefixed(b, bo)
	if err != nil {
		return nil, 0, err
	}
	coding := Coding(ti.Coding())
	s, err := DecodeText(coding, data)
	if err != nil {
		return nil, 0, err
	}
	return String{Value: s, Coding: coding}, n, nil
}

func decodeRaw(ti TypeInfo, b []byte, bo binary.ByteOrder) (Arg, int, error) {
	if ti.HasVariInfo() {
		return nil, 0, fmt.Errorf("%w: raw with variable info", ErrMalformedTypeInfo)
	}
	data, n, err := lengthPrefixed(b, bo)
	if err != nil {
		return nil, 0, err
	}
	return Raw{Data: clone(data)}, n, nil
}

func lengthPrefixed(b []byte, bo binary.ByteOrder) ([]byte, int, error) {
	if len(b) < 2 {
		return nil, 0, ErrTruncated
	}
	l := int(bo.Uint16(b[0:2]))
	if len(b)-2 < l {
		return nil, 0, ErrTruncated
	}
	return b[2 : 2+l], 2 + l, nil
}

// EncodeVerbose writes a in its verbose wire form into dst using the message
// byte order and returns the bytes written.
func EncodeVerbose(dst []byte, a Arg, bigEndian bool) (int, error) {
	bo := order(bigEndian)
	switch v := a.(type) {
	case SignedInt:
		return encodeInt(dst, TypeSigned, uint64(v.Value), v.Width, bo)
	case UnsignedInt:
		return encodeInt(dst, TypeUnsigned, v.Value, v.Width, bo)
	case HexInt:
		return encodeInt(dst, TypeUnsigned|codingHex<<codingShift, v.Value, v.Width, bo)
	case BinaryInt:
		return encodeInt(dst, TypeUnsigned|codingBinary<<codingShift, v.Value, v.Width, bo)
	case Bool:
		if len(dst) < TypeInfoLen+1 {
			return 0, ErrShortBuffer
		}
		bo.PutUint32(dst, TypeBool|Len8)
		dst[TypeInfoLen] = 0
		if v.Value {
			dst[TypeInfoLen] = 1
		}
		return TypeInfoLen + 1, nil
	case Float32:
		if len(dst) < TypeInfoLen+4 {
			return 0, ErrShortBuffer
		}
		bo.PutUint32(dst, TypeFloat|Len32)
		bo.PutUint32(dst[TypeInfoLen:], math.Float32bits(v.Value))
		return TypeInfoLen + 4, nil
	case Float64:
		if len(dst) < TypeInfoLen+8 {
			return 0, ErrShortBuffer
		}
		bo.PutUint32(dst, TypeFloat|Len64)
		bo.PutUint64(dst[TypeInfoLen:], math.Float64bits(v.Value))
		return TypeInfoLen + 8, nil
	case String:
		return encodeString(dst, v, bo)
	case Raw:
		return encodePrefixed(dst, TypeRaw, v.Data, bo)
	case UnknownVerbose:
		if v.BigEndian != bigEndian {
			return 0, ErrEndianMismatch
		}
		n := TypeInfoLen + len(v.Data)
		if n > MaxArgLen {
			return 0, ErrTooLarge
		}
		if len(dst) < n {
			return 0, ErrShortBuffer
		}
		bo.PutUint32(dst, v.TypeInfo)
		copy(dst[TypeInfoLen:], v.Data)
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedKind, a)
	}
}

func encodeInt(dst []byte, kind uint32, u uint64, width int, bo binary.ByteOrder) (int, error) {
	class := lengthClass(width)
	if class == 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if len(dst) < TypeInfoLen+width {
		return 0, ErrShortBuffer
	}
	bo.PutUint32(dst, kind|class)
	writeUint(dst[TypeInfoLen:TypeInfoLen+width], u, bo)
	return TypeInfoLen + width, nil
}

func encodeString(dst []byte, s String, bo binary.ByteOrder) (int, error) {
	text, err := EncodeText(s.Coding, s.Value)
	if err != nil {
		return 0, err
	}
	n := TypeInfoLen + 2 + len(text) + 1
	if n > MaxArgLen {
		return 0, ErrTooLarge
	}
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	bo.PutUint32(dst, TypeString|uint32(s.Coding)<<codingShift)
	bo.PutUint16(dst[TypeInfoLen:], uint16(len(text)+1))
	copy(dst[TypeInfoLen+2:], text)
	dst[n-1] = 0
	return n, nil
}

func encodePrefixed(dst []byte, ti uint32, data []byte, bo binary.ByteOrder) (int, error) {
	n := TypeInfoLen + 2 + len(data)
	if n > MaxArgLen {
		return 0, ErrTooLarge
	}
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	bo.PutUint32(dst, ti)
	bo.PutUint16(dst[TypeInfoLen:], uint16(len(data)))
	copy(dst[TypeInfoLen+2:], data)
	return n, nil
}

func readUint(b []byte, bo binary.ByteOrder) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	default:
		return bo.Uint64(b)
	}
}

func writeUint(dst []byte, u uint64, bo binary.ByteOrder) {
	switch len(dst) {
	case 1:
		dst[0] = byte(u)
	case 2:
		bo.PutUint16(dst, uint16(u))
	case 4:
		bo.PutUint32(dst, uint32(u))
	default:
		bo.PutUint64(dst, u)
	}
}

func signExtend(u uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(u<<shift) >> shift
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
