package args

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Arg is one decoded argument. The set of implementations is closed; callers
// dispatch with a type switch.
type Arg interface {
	String() string
	isArg()
}

// Coding selects the character set of a string argument. The values match the
// SCOD field of the type-info word.
type Coding uint8

const (
	CodingASCII Coding = 0
	CodingUTF8  Coding = 1
)

type SignedInt struct {
	Value int64
	Width int
}

type UnsignedInt struct {
	Value uint64
	Width int
}

// HexInt shares the unsigned wire form and renders as hexadecimal.
type HexInt struct {
	Value uint64
	Width int
}

// BinaryInt shares the unsigned wire form and renders as nibble groups.
type BinaryInt struct {
	Value uint64
	Width int
}

type Bool struct {
	Value bool
}

type Float32 struct {
	Value float32
}

type Float64 struct {
	Value float64
}

type String struct {
	Value  string
	Coding Coding
}

// NewString returns a UTF-8 coded string argument.
func NewString(s string) String {
	return String{Value: s, Coding: CodingUTF8}
}

type Raw struct {
	Data []byte
}

// UnknownVerbose preserves a verbose argument this package cannot interpret.
// BigEndian records the byte order TypeInfo and Data were read with.
type UnknownVerbose struct {
	TypeInfo  uint32
	Data      []byte
	BigEndian bool
}

// NonVerbose is an opaque non-verbose payload.
type NonVerbose struct {
	Data []byte
}

func (SignedInt) isArg()      {}
func (UnsignedInt) isArg()    {}
func (HexInt) isArg()         {}
func (BinaryInt) isArg()      {}
func (Bool) isArg()           {}
func (Float32) isArg()        {}
func (Float64) isArg()        {}
func (String) isArg()         {}
func (Raw) isArg()            {}
func (UnknownVerbose) isArg() {}
func (NonVerbose) isArg()     {}

func (a SignedInt) String() string   { return strconv.FormatInt(a.Value, 10) }
func (a UnsignedInt) String() string { return strconv.FormatUint(a.Value, 10) }

func (a HexInt) String() string {
	digits := 2 * a.Width
	if digits <= 0 || digits > 16 {
		digits = 2
	}
	s := strconv.FormatUint(a.Value, 16)
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return "0x" + s
}

var nibbles = [16]string{
	"0000", "0001", "0010", "0011", "0100", "0101", "0110", "0111",
	"1000", "1001", "1010", "1011", "1100", "1101", "1110", "1111",
}

func (a BinaryInt) String() string {
	var sb strings.Builder
	sb.WriteString("0b")
	first := true
	show := false
	for i := 8; i > 0; i-- {
		b := byte(a.Value >> (uint(i-1) * 8))
		show = show || b != 0
		if i > a.Width && !show {
			continue
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(nibbles[b>>4])
		sb.WriteByte(' ')
		sb.WriteString(nibbles[b&0x0F])
	}
	if first {
		sb.WriteString(nibbles[0])
		sb.WriteString(" ")
		sb.WriteString(nibbles[0])
	}
	return sb.String()
}

func (a Bool) String() string { return strconv.FormatBool(a.Value) }

func (a Float32) String() string { return formatFloat(float64(a.Value), 32) }
func (a Float64) String() string { return formatFloat(a.Value, 64) }

func formatFloat(v float64, bits int) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', 6, bits)
}

func (a String) String() string { return a.Value }

func (a Raw) String() string { return hexBytes(a.Data) }

func (a UnknownVerbose) String() string {
	var ti [4]byte
	order(a.BigEndian).PutUint32(ti[:], a.TypeInfo)
	s := "Type Info: " + hexBytes(ti[:]) + " Data: "
	if len(a.Data) == 0 {
		return s
	}
	return s + hexBytes(a.Data)
}

func (a NonVerbose) String() string {
	if len(a.Data) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, b := range a.Data {
		if b >= 0x20 && b < 0x7F {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('-')
		}
	}
	sb.WriteByte('|')
	sb.WriteString(hexBytes(a.Data))
	return sb.String()
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	enc := hex.EncodeToString(b)
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i := 0; i < len(enc); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(enc[i : i+2])
	}
	return sb.String()
}
