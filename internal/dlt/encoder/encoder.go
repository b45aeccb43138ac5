package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/control"
	"github.com/danmuck/dltctl/internal/dlt/header"
	"github.com/danmuck/dltctl/internal/dlt/line"
)

var (
	ErrShortBuffer = errors.New("encoder: destination buffer too short")
	ErrTooManyArgs = errors.New("encoder: more than 255 arguments")
	ErrTooLarge    = errors.New("encoder: record exceeds 65535 bytes")
	ErrUnsupported = errors.New("encoder: line cannot be encoded")
)

// maxArgs is the range of the extended header argument count.
const maxArgs = 0xFF

// MaxRecordLen is the largest record any framing can produce.
const MaxRecordLen = header.StorageLen + header.MaxMessageLen

type Option func(*Encoder)

// WithStorageEcuID sets the ECU id written to storage headers for lines that
// carry none.
func WithStorageEcuID(id string) Option {
	return func(e *Encoder) {
		e.storageEcu = id
	}
}

// Encoder encodes the lines of one output stream. Lines with InvalidCount get
// the previous counter plus one, starting at zero.
type Encoder struct {
	framing    dlt.Framing
	storageEcu string
	count      int
	scratch    []byte
}

func New(f dlt.Framing, opts ...Option) *Encoder {
	e := &Encoder{framing: f, count: -1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) Framing() dlt.Framing { return e.framing }

// Encode writes l into dst and returns the number of bytes written. On error
// dst is left untouched and the counter does not advance.
func (e *Encoder) Encode(dst []byte, l *line.TraceLine) (int, error) {
	if e.scratch == nil {
		e.scratch = make([]byte, MaxRecordLen)
	}
	count := (e.count + 1) & 0xFF
	if l.Count != line.InvalidCount {
		count = l.Count & 0xFF
	}
	n, err := e.record(e.scratch, l, uint8(count))
	if err != nil {
		return 0, err
	}
	if len(dst) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(dst))
	}
	copy(dst, e.scratch[:n])
	e.count = count
	return n, nil
}

func (e *Encoder) record(buf []byte, l *line.TraceLine, count uint8) (int, error) {
	f := l.Features()
	off := 0
	switch e.framing {
	case dlt.FramingFile:
		var ts time.Time
		if f.Has(dlt.FeatureTimeStamp) {
			ts = l.TimeStamp()
		}
		ecu := l.EcuID()
		if ecu == "" {
			ecu = e.storageEcu
		}
		n, err := header.EncodeStorage(buf, header.StorageFromTime(ts, ecu))
		if err != nil {
			return 0, err
		}
		off += n
	case dlt.FramingSerial:
		off += copy(buf, header.SerialMagic[:])
	}

	start := off
	limit := start + header.MaxMessageLen
	std := header.Standard{Type: header.Version1, Counter: count}
	if f.Has(dlt.FeatureEcuID) {
		std.Type |= header.FlagWEID
		std.EcuID = l.EcuID()
	}
	if f.Has(dlt.FeatureSessionID) {
		std.Type |= header.FlagWSID
		std.SessionID = l.SessionID()
	}
	if f.Has(dlt.FeatureDeviceTime) {
		std.Type |= header.FlagWTMS
		std.DeviceTime = uint32(l.DeviceTime() / header.DeviceTick)
	}
	bigEndian := l.BigEndian()
	if bigEndian {
		std.Type |= header.FlagMSBF
	}

	ext, hasExt, err := extendedFor(l)
	if err != nil {
		return 0, err
	}
	if hasExt {
		std.Type |= header.FlagUEH
	}
	n, err := header.EncodeStandard(buf[off:], std)
	if err != nil {
		return 0, err
	}
	off += n
	if hasExt {
		n, err = header.EncodeExtended(buf[off:], ext)
		if err != nil {
			return 0, err
		}
		off += n
	}

	n, err = encodePayload(buf[off:limit], l, bigEndian)
	if err != nil {
		return 0, err
	}
	off += n
	if err := header.PutLength(buf[start:], off-start); err != nil {
		return 0, err
	}
	return off, nil
}

// extendedFor builds the extended header. Verbose and control lines always
// carry one; non-verbose lines only when they have identifiers or a type.
func extendedFor(l *line.TraceLine) (header.Extended, bool, error) {
	switch p := l.Payload.(type) {
	case line.Verbose:
		if len(p.Args) > maxArgs {
			return header.Extended{}, false, fmt.Errorf("%w: %d", ErrTooManyArgs, len(p.Args))
		}
		return header.NewExtended(l.Type(), true, uint8(len(p.Args)), l.AppID(), l.CtxID()), true, nil
	case line.Control:
		if !l.Type().IsControl() {
			return header.Extended{}, false, fmt.Errorf("%w: control line with type %q", ErrUnsupported, l.Type())
		}
		return header.NewExtended(l.Type(), l.Verbose(), 0, l.AppID(), l.CtxID()), true, nil
	case line.NonVerbose:
		if !l.Features().Has(dlt.FeatureAppID) && !l.Features().Has(dlt.FeatureCtxID) && !l.Features().Has(dlt.FeatureMessageType) {
			return header.Extended{}, false, nil
		}
		return header.NewExtended(l.Type(), false, 0, l.AppID(), l.CtxID()), true, nil
	default:
		return header.Extended{}, false, fmt.Errorf("%w: %s line", ErrUnsupported, l.Kind())
	}
}

func encodePayload(buf []byte, l *line.TraceLine, bigEndian bool) (int, error) {
	off := 0
	switch p := l.Payload.(type) {
	case line.Verbose:
		for i, a := range p.Args {
			n, err := args.EncodeVerbose(buf[off:], a, bigEndian)
			if err != nil {
				return 0, fmt.Errorf("arg %d: %w", i, tooLarge(err, args.ErrShortBuffer))
			}
			off += n
		}
	case line.Control:
		n, err := control.Encode(buf, p.Service, bigEndian)
		if err != nil {
			return 0, tooLarge(err, control.ErrShortBuffer)
		}
		off += n
	case line.NonVerbose:
		if len(buf) < 4 {
			return 0, ErrTooLarge
		}
		if bigEndian {
			binary.BigEndian.PutUint32(buf, p.MessageID)
		} else {
			binary.LittleEndian.PutUint32(buf, p.MessageID)
		}
		off += 4
		for i, a := range p.Args {
			opaque, ok := a.(args.NonVerbose)
			if !ok {
				return 0, fmt.Errorf("%w: non-verbose arg %d is %T", ErrUnsupported, i, a)
			}
			n, err := args.EncodeNonVerbose(buf[off:], opaque)
			if err != nil {
				return 0, fmt.Errorf("arg %d: %w", i, tooLarge(err, args.ErrShortBuffer))
			}
			off += n
		}
	}
	return off, nil
}

// tooLarge maps running out of the record window to ErrTooLarge.
func tooLarge(err, short error) error {
	if errors.Is(err, short) {
		return fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	return err
}
