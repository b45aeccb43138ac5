package args

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textWindow is the size of the output window used while transcoding. A
// multi-byte sequence that does not fit the window tail is retried after the
// window is flushed.
const textWindow = 256

func decoderFor(c Coding) (*encoding.Decoder, error) {
	switch c {
	case CodingASCII:
		return charmap.ISO8859_15.NewDecoder(), nil
	case CodingUTF8:
		return unicode.UTF8.NewDecoder(), nil
	default:
		return nil, ErrUnsupportedCoding
	}
}

// DecodeText converts wire bytes in coding c to a Go string. A single
// trailing NUL is dropped.
func DecodeText(c Coding, b []byte) (string, error) {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	dec, err := decoderFor(c)
	if err != nil {
		return "", err
	}
	return transcode(dec, b, textWindow)
}

func transcode(t transform.Transformer, src []byte, window int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(src))
	dst := make([]byte, window)
	for {
		nDst, nSrc, err := t.Transform(dst, src, true)
		sb.Write(dst[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			return sb.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			// Flush and retry the remaining input against an empty window.
			if nDst == 0 && nSrc == 0 {
				return "", fmt.Errorf("args: text window of %d bytes too small", window)
			}
		default:
			return "", err
		}
	}
}

// EncodeText converts s to wire bytes in coding c without the trailing NUL.
// Text that cannot be represented fails instead of being truncated.
func EncodeText(c Coding, s string) ([]byte, error) {
	switch c {
	case CodingUTF8:
		if !utf8.ValidString(s) {
			return nil, ErrUnencodable
		}
		return []byte(s), nil
	case CodingASCII:
		out, err := charmap.ISO8859_15.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCoding
	}
}
