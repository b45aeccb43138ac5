package args

import "errors"

var (
	ErrTruncated         = errors.New("args: truncated argument")
	ErrShortBuffer       = errors.New("args: destination buffer too short")
	ErrInvalidWidth      = errors.New("args: unsupported integer width")
	ErrTooLarge          = errors.New("args: argument exceeds 65535 bytes")
	ErrUnsupportedCoding = errors.New("args: unsupported string coding")
	ErrUnencodable       = errors.New("args: text not representable in coding")
	ErrEndianMismatch    = errors.New("args: unknown argument endianness mismatch")
	ErrMalformedTypeInfo = errors.New("args: malformed type info")
	ErrUnsupportedKind   = errors.New("args: argument kind not encodable here")
)
