package line

import (
	"strconv"
	"strings"

	"github.com/danmuck/dltctl/internal/dlt/args"
)

// Kind tags the payload variant of a line.
type Kind uint8

const (
	KindVerbose Kind = iota
	KindNonVerbose
	KindControl
	KindSkipped
)

func (k Kind) String() string {
	switch k {
	case KindVerbose:
		return "verbose"
	case KindNonVerbose:
		return "non-verbose"
	case KindControl:
		return "control"
	case KindSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Payload is the kind specific part of a line. The set of implementations is
// closed.
type Payload interface {
	Kind() Kind
	text() string
}

// Service is a decoded control message payload.
type Service interface {
	ServiceID() uint32
	String() string
}

// Verbose holds self-describing arguments in wire order.
type Verbose struct {
	Args []args.Arg
}

// NonVerbose holds a message id and either the opaque payload or the
// arguments resolved through a frame catalogue.
type NonVerbose struct {
	MessageID uint32
	Args      []args.Arg
}

type Control struct {
	Service Service
}

// Skipped summarizes input bytes that did not form a record.
type Skipped struct {
	Bytes  int64
	Reason string
}

func (Verbose) Kind() Kind    { return KindVerbose }
func (NonVerbose) Kind() Kind { return KindNonVerbose }
func (Control) Kind() Kind    { return KindControl }
func (Skipped) Kind() Kind    { return KindSkipped }

func (p Verbose) text() string { return joinArgs(p.Args) }

func (p NonVerbose) text() string {
	s := "[" + strconv.FormatUint(uint64(p.MessageID), 10) + "]"
	if rest := joinArgs(p.Args); rest != "" {
		s += " " + rest
	}
	return s
}

func (p Control) text() string {
	if p.Service == nil {
		return ""
	}
	return p.Service.String()
}

func (p Skipped) text() string {
	s := "Skipped: " + strconv.FormatInt(p.Bytes, 10) + " bytes"
	if p.Reason == "" {
		return s
	}
	return s + "; " + p.Reason
}

func joinArgs(list []args.Arg) string {
	var sb strings.Builder
	for i, a := range list {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}
