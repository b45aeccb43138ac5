package args

import (
	"fmt"
	"math"
	"strings"
)

// PDU type names as they appear in FIBEX derived catalogues.
const (
	PDUBool        = "S_BOOL"
	PDUSInt8       = "S_SINT8"
	PDUSInt16      = "S_SINT16"
	PDUSInt32      = "S_SINT32"
	PDUSInt64      = "S_SINT64"
	PDUUInt8       = "S_UINT8"
	PDUUInt16      = "S_UINT16"
	PDUUInt32      = "S_UINT32"
	PDUUInt64      = "S_UINT64"
	PDUFloat16     = "S_FLOA16"
	PDUFloat32     = "S_FLOA32"
	PDUFloat64     = "S_FLOA64"
	PDUHex8        = "S_HEX8"
	PDUHex16       = "S_HEX16"
	PDUHex32       = "S_HEX32"
	PDUHex64       = "S_HEX64"
	PDUBin8        = "S_BIN8"
	PDUBin16       = "S_BIN16"
	PDUBin32       = "S_BIN32"
	PDUBin64       = "S_BIN64"
	PDUStringASCII = "S_STRG_ASCII"
	PDUStringUTF8  = "S_STRG_UTF8"
	PDUUTF8        = "S_UTF8"
	PDURaw         = "S_RAW"
	PDURawD        = "S_RAWD"
)

type intPDU struct {
	width  int
	signed bool
	hex    bool
	bin    bool
}

var intPDUs = map[string]intPDU{
	PDUSInt8:  {width: 1, signed: true},
	PDUSInt16: {width: 2, signed: true},
	PDUSInt32: {width: 4, signed: true},
	PDUSInt64: {width: 8, signed: true},
	PDUUInt8:  {width: 1},
	PDUUInt16: {width: 2},
	PDUUInt32: {width: 4},
	PDUUInt64: {width: 8},
	PDUHex8:   {width: 1, hex: true},
	PDUHex16:  {width: 2, hex: true},
	PDUHex32:  {width: 4, hex: true},
	PDUHex64:  {width: 8, hex: true},
	PDUBin8:   {width: 1, bin: true},
	PDUBin16:  {width: 2, bin: true},
	PDUBin32:  {width: 4, bin: true},
	PDUBin64:  {width: 8, bin: true},
}

// DecodePDU decodes one non-verbose signal of type pduType. length is the
// catalogue declared byte length, used for types this package does not know.
func DecodePDU(pduType string, length int, b []byte, bigEndian bool) (Arg, int, error) {
	bo := order(bigEndian)
	t := strings.ToUpper(strings.TrimSpace(pduType))
	if ip, ok := intPDUs[t]; ok {
		if len(b) < ip.width {
			return nil, 0, ErrTruncated
		}
		u := readUint(b[:ip.width], bo)
		switch {
		case ip.signed:
			return SignedInt{Value: signExtend(u, ip.width), Width: ip.width}, ip.width, nil
		case ip.hex:
			return HexInt{Value: u, Width: ip.width}, ip.width, nil
		case ip.bin:
			return BinaryInt{Value: u, Width: ip.width}, ip.width, nil
		default:
			return UnsignedInt{Value: u, Width: ip.width}, ip.width, nil
		}
	}

	switch t {
	case PDUBool:
		if len(b) < 1 {
			return nil, 0, ErrTruncated
		}
		return Bool{Value: b[0] != 0}, 1, nil
	case PDUFloat32:
		if len(b) < 4 {
			return nil, 0, ErrTruncated
		}
		return Float32{Value: math.Float32frombits(bo.Uint32(b[:4]))}, 4, nil
	case PDUFloat64:
		if len(b) < 8 {
			return nil, 0, ErrTruncated
		}
		return Float64{Value: math.Float64frombits(bo.Uint64(b[:8]))}, 8, nil
	case PDUFloat16:
		if len(b) < 2 {
			return nil, 0, ErrTruncated
		}
		return NonVerbose{Data: clone(b[:2])}, 2, nil
	case PDUStringASCII, PDUStringUTF8, PDUUTF8:
		data, n, err := lengthPrefixed(b, bo)
		if err != nil {
			return nil, 0, err
		}
		coding := CodingUTF8
		if t == PDUStringASCII {
			coding = CodingASCII
		}
		s, err := DecodeText(coding, data)
		if err != nil {
			return nil, 0, err
		}
		return String{Value: s, Coding: coding}, n, nil
	case PDURaw, PDURawD:
		data, n, err := lengthPrefixed(b, bo)
		if err != nil {
			return nil, 0, err
		}
		return Raw{Data: clone(data)}, n, nil
	}

	if length <= 0 {
		data, n, err := lengthPrefixed(b, bo)
		if err != nil {
			return nil, 0, fmt.Errorf("pdu %s: %w", pduType, err)
		}
		return NonVerbose{Data: clone(data)}, n, nil
	}
	if len(b) < length {
		return nil, 0, fmt.Errorf("pdu %s: %w", pduType, ErrTruncated)
	}
	return NonVerbose{Data: clone(b[:length])}, length, nil
}

// EncodeNonVerbose copies an opaque payload into dst.
func EncodeNonVerbose(dst []byte, a NonVerbose) (int, error) {
	if len(a.Data) > MaxArgLen {
		return 0, ErrTooLarge
	}
	if len(dst) < len(a.Data) {
		return 0, ErrShortBuffer
	}
	return copy(dst, a.Data), nil
}
