package catalogue

import (
	"errors"
	"fmt"

	"github.com/danmuck/dltctl/internal/dlt/args"
)

var ErrPayloadMismatch = errors.New("catalogue: payload does not match frame")

// DecodeArgs decodes the signals of a non-verbose payload (message id already
// removed) in the order the frame lists them. The PDUs must consume the
// payload exactly.
func DecodeArgs(f Frame, data []byte, bigEndian bool) ([]args.Arg, error) {
	out := make([]args.Arg, 0, len(f.PDUs))
	off := 0
	for i, p := range f.PDUs {
		if p.Description != "" {
			out = append(out, args.String{Value: p.Description, Coding: args.CodingUTF8})
			continue
		}
		a, n, err := args.DecodePDU(p.Type, p.Length, data[off:], bigEndian)
		if err != nil {
			return nil, fmt.Errorf("frame %d pdu %d (%s): %w", f.ID, i, p.Type, err)
		}
		out = append(out, a)
		off += n
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: frame %d consumed %d of %d bytes", ErrPayloadMismatch, f.ID, off, len(data))
	}
	return out, nil
}
