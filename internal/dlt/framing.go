package dlt

import (
	"fmt"
	"strings"
)

// Framing selects how records are delimited in a stream.
type Framing uint8

const (
	// FramingFile puts a storage header before every record.
	FramingFile Framing = iota
	// FramingSerial puts the "DLS\x01" marker before every record.
	FramingSerial
	// FramingNetwork sends records back to back with no marker.
	FramingNetwork
)

func (f Framing) String() string {
	switch f {
	case FramingFile:
		return "file"
	case FramingSerial:
		return "serial"
	case FramingNetwork:
		return "network"
	default:
		return fmt.Sprintf("framing(%d)", uint8(f))
	}
}

func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "storage":
		return FramingFile, nil
	case "serial":
		return FramingSerial, nil
	case "network", "tcp", "udp":
		return FramingNetwork, nil
	default:
		return 0, fmt.Errorf("unknown framing %q", s)
	}
}
