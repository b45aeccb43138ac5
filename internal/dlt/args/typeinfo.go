package args

import "encoding/binary"

// TypeInfoLen is the size of the type-info word preceding a verbose argument.
const TypeInfoLen = 4

// Type-info word bit fields.
const (
	TypeLengthMask uint32 = 0x0000000F
	TypeBool       uint32 = 0x00000010
	TypeSigned     uint32 = 0x00000020
	TypeUnsigned   uint32 = 0x00000040
	TypeFloat      uint32 = 0x00000080
	TypeArray      uint32 = 0x00000100
	TypeString     uint32 = 0x00000200
	TypeRaw        uint32 = 0x00000400
	TypeVariInfo   uint32 = 0x00000800
	TypeFixedPoint uint32 = 0x00001000
	TypeTraceInfo  uint32 = 0x00002000
	TypeStruct     uint32 = 0x00004000
	TypeCodingMask uint32 = 0x00038000

	typeKindMask = TypeBool | TypeSigned | TypeUnsigned | TypeFloat | TypeArray |
		TypeString | TypeRaw | TypeTraceInfo | TypeStruct

	codingShift = 15
)

// Length classes (TYLE).
const (
	Len8   uint32 = 1
	Len16  uint32 = 2
	Len32  uint32 = 3
	Len64  uint32 = 4
	Len128 uint32 = 5
)

// Integer display codings carried in SCOD.
const (
	codingDecimal uint32 = 0
	codingHex     uint32 = 2
	codingBinary  uint32 = 3
)

// TypeInfo is a decoded view of the type-info word.
type TypeInfo uint32

func (t TypeInfo) Kind() uint32        { return uint32(t) & typeKindMask }
func (t TypeInfo) LengthClass() uint32 { return uint32(t) & TypeLengthMask }
func (t TypeInfo) Coding() uint32      { return (uint32(t) & TypeCodingMask) >> codingShift }
func (t TypeInfo) HasVariInfo() bool   { return uint32(t)&TypeVariInfo != 0 }
func (t TypeInfo) HasFixedPoint() bool {
	return uint32(t)&TypeFixedPoint != 0
}

// lengthBytes maps a length class to its payload size, 0 when undefined.
func lengthBytes(class uint32) int {
	switch class {
	case Len8:
		return 1
	case Len16:
		return 2
	case Len32:
		return 4
	case Len64:
		return 8
	case Len128:
		return 16
	default:
		return 0
	}
}

// lengthClass maps an integer width to its length class, 0 when unsupported.
func lengthClass(width int) uint32 {
	switch width {
	case 1:
		return Len8
	case 2:
		return Len16
	case 4:
		return Len32
	case 8:
		return Len64
	default:
		return 0
	}
}

func order(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
