package decoder

import (
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/header"
)

// layout describes where the standard header starts and how far to move
// when a candidate record is rejected.
type layout struct {
	marker  []byte
	offset  int
	discard int
}

func layoutOf(f dlt.Framing) layout {
	switch f {
	case dlt.FramingFile:
		return layout{marker: header.StorageMagic[:], offset: header.StorageLen, discard: len(header.StorageMagic)}
	case dlt.FramingSerial:
		return layout{marker: header.SerialMagic[:], offset: len(header.SerialMagic), discard: len(header.SerialMagic)}
	default:
		return layout{discard: 1}
	}
}
