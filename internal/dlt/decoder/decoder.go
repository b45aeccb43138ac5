package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/catalogue"
	"github.com/danmuck/dltctl/internal/dlt/control"
	"github.com/danmuck/dltctl/internal/dlt/header"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/rs/zerolog/log"
)

// Reasons attached to Skipped lines.
const (
	ReasonSearching     = "Searching for next packet"
	ReasonInvalidHeader = "Invalid packet standard header"
	ReasonInvalidPacket = "Invalid packet"
	ReasonIncomplete    = "Incomplete packet at end of stream"
	ReasonEndOfStream   = "End of stream"
)

// maxControlPadding is how many bytes may follow a decoded control payload.
const maxControlPadding = 32

var errPayloadLength = errors.New("decoder: payload length mismatch")

// FrameMap resolves non-verbose message ids. *catalogue.Catalogue satisfies it.
type FrameMap interface {
	Lookup(id uint32, appID, ctxID, ecuID string) (catalogue.Frame, bool)
}

type Option func(*Decoder)

// WithFrames resolves non-verbose payloads through m.
func WithFrames(m FrameMap) Option {
	return func(d *Decoder) {
		d.frames = m
	}
}

// Decoder is the resumable stream assembler for one byte stream.
type Decoder struct {
	framing dlt.Framing
	lay     layout
	frames  FrameMap
	lines   *line.Builder

	// pending holds the unconsumed tail of earlier chunks; pos is the stream
	// offset of pending[0].
	pending []byte
	pos     int64

	misses  uint64
	flushed bool
}

func New(f dlt.Framing, opts ...Option) *Decoder {
	d := &Decoder{
		framing: f,
		lay:     layoutOf(f),
		lines:   line.NewBuilder(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Framing() dlt.Framing { return d.framing }

// Misses returns how many non-verbose records had no catalogue entry.
func (d *Decoder) Misses() uint64 { return d.misses }

// Buffered returns the number of bytes held for the next call.
func (d *Decoder) Buffered() int { return len(d.pending) }

// Decode consumes chunk, which starts at stream offset pos, and returns the
// lines completed by it. Bytes that cannot complete a record yet are kept.
// When earlier bytes are still buffered the decoder continues from its own
// position and pos is ignored.
func (d *Decoder) Decode(chunk []byte, pos int64) []*line.TraceLine {
	if d.flushed {
		return nil
	}
	var data []byte
	if len(d.pending) == 0 {
		data = chunk
		d.pos = pos
	} else {
		d.pending = append(d.pending, chunk...)
		data = d.pending
	}

	out, n := d.scan(data, false)
	d.pending = append(d.pending[:0], data[n:]...)
	d.pos += int64(n)
	return out
}

// Flush decodes what is left in the buffer and returns the remaining lines.
// The decoder returns nothing after Flush.
func (d *Decoder) Flush() []*line.TraceLine {
	if d.flushed {
		return nil
	}
	d.flushed = true
	out, _ := d.scan(d.pending, true)
	d.pending = nil
	return out
}

func (d *Decoder) scan(data []byte, flush bool) ([]*line.TraceLine, int) {
	var out []*line.TraceLine
	lay := d.lay
	off := 0
	for {
		rest := data[off:]
		at := d.pos + int64(off)
		if len(rest) < lay.offset+header.StandardFixedLen {
			if flush && len(rest) > 0 {
				d.lines.Skip(at, len(rest), ReasonEndOfStream)
				off = len(data)
			}
			break
		}

		if lay.marker != nil && !bytes.HasPrefix(rest, lay.marker) {
			skip := searchMarker(rest, lay.marker)
			d.lines.Skip(at, skip, ReasonSearching)
			off += skip
			continue
		}

		length, err := header.PeekStandard(rest[lay.offset:])
		if err != nil {
			log.Debug().Int64("pos", at).Err(err).Msg("rejecting standard header")
			d.lines.Skip(at, lay.discard, ReasonInvalidHeader)
			off += lay.discard
			continue
		}

		total := lay.offset + length
		if len(rest) < total {
			if !flush {
				break
			}
			d.lines.Skip(at, lay.discard, ReasonIncomplete)
			off += lay.discard
			continue
		}

		l, err := d.record(rest[:total])
		if err != nil {
			log.Debug().Int64("pos", at).Err(err).Msg("rejecting packet")
			d.lines.Skip(at, lay.discard, ReasonInvalidPacket)
			off += lay.discard
			continue
		}
		l.Position = at
		out = d.lines.Emit(out, l)
		off += total
	}
	if flush {
		out = d.lines.FlushSkipped(out)
	}
	return out, off
}

// searchMarker returns how many bytes of b precede the next marker. A trailing
// partial marker is kept for the next call. b must not start with the marker.
func searchMarker(b, marker []byte) int {
	if i := bytes.Index(b[1:], marker); i >= 0 {
		return i + 1
	}
	for k := len(marker) - 1; k > 0; k-- {
		if bytes.HasSuffix(b, marker[:k]) {
			return len(b) - k
		}
	}
	return len(b)
}

// record decodes one complete candidate record, framing prefix included.
func (d *Decoder) record(pkt []byte) (*line.TraceLine, error) {
	var storage header.Storage
	hasStorage := false
	if d.framing == dlt.FramingFile {
		st, _, err := header.DecodeStorage(pkt)
		if err != nil {
			return nil, err
		}
		storage, hasStorage = st, true
	}

	body := pkt[d.lay.offset:]
	std, off, err := header.DecodeStandard(body)
	if err != nil {
		return nil, err
	}
	bigEndian := std.BigEndian()

	var ext header.Extended
	if std.HasExtended() {
		ext, _, err = header.DecodeExtended(body[off:])
		if err != nil {
			return nil, err
		}
		off += header.ExtendedLen
	}
	payload := body[off:]

	var l *line.TraceLine
	switch {
	case std.HasExtended() && ext.MessageType().IsControl():
		svc, used, err := control.Decode(ext.MessageType(), payload, bigEndian)
		if err != nil {
			return nil, err
		}
		if len(payload) < used || len(payload) > used+maxControlPadding {
			return nil, fmt.Errorf("%w: control payload %d bytes, decoded %d", errPayloadLength, len(payload), used)
		}
		l = line.New(line.Control{Service: svc})
		l.SetVerbose(ext.Verbose())
	case std.HasExtended() && ext.Verbose():
		list, err := decodeVerbose(payload, int(ext.Args), bigEndian)
		if err != nil {
			return nil, err
		}
		l = line.New(line.Verbose{Args: list})
	default:
		l = line.New(nil)
	}

	l.Count = int(std.Counter)
	l.SetBigEndian(bigEndian)
	if hasStorage {
		l.SetTimeStamp(storage.Time())
	}
	if std.HasEcuID() {
		l.SetEcuID(std.EcuID)
	}
	if hasStorage && storage.EcuID != "" {
		l.SetStorageEcuID(storage.EcuID)
	}
	if std.HasSessionID() {
		l.SetSessionID(std.SessionID)
	}
	if std.HasDeviceTime() {
		l.SetDeviceTime(time.Duration(std.DeviceTime) * header.DeviceTick)
	}
	if std.HasExtended() {
		l.SetAppID(ext.AppID)
		l.SetCtxID(ext.CtxID)
		l.SetType(ext.MessageType())
	}
	if l.Payload == nil {
		l.SetPayload(d.nonVerbose(l, payload, bigEndian, std.HasExtended()))
	}
	return l, nil
}

func decodeVerbose(payload []byte, count int, bigEndian bool) ([]args.Arg, error) {
	list := make([]args.Arg, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		a, n, err := args.DecodeVerbose(payload[off:], bigEndian)
		if err != nil {
			return nil, fmt.Errorf("arg %d of %d: %w", i+1, count, err)
		}
		list = append(list, a)
		off += n
	}
	if off != len(payload) {
		return nil, fmt.Errorf("%w: verbose args use %d of %d bytes", errPayloadLength, off, len(payload))
	}
	return list, nil
}

// nonVerbose reads the message id and resolves the payload through the frame
// map. Without a matching frame the payload stays one opaque argument. When
// the record has no extended header the frame supplies the identifiers and
// message type.
func (d *Decoder) nonVerbose(l *line.TraceLine, payload []byte, bigEndian, hasExt bool) line.NonVerbose {
	if len(payload) < 4 {
		return line.NonVerbose{Args: []args.Arg{args.NonVerbose{}}}
	}
	var id uint32
	if bigEndian {
		id = binary.BigEndian.Uint32(payload)
	} else {
		id = binary.LittleEndian.Uint32(payload)
	}
	data := payload[4:]
	opaque := line.NonVerbose{MessageID: id, Args: []args.Arg{args.NonVerbose{Data: append([]byte(nil), data...)}}}
	if d.frames == nil {
		return opaque
	}

	f, ok := d.frames.Lookup(id, l.AppID(), l.CtxID(), l.EcuID())
	if !ok {
		d.misses++
		log.Debug().Uint32("id", id).Str("app", l.AppID()).Str("ctx", l.CtxID()).Msg("no frame for non-verbose message")
		return opaque
	}
	if !hasExt {
		if f.AppID != "" {
			l.SetAppID(f.AppID)
		}
		if f.CtxID != "" {
			l.SetCtxID(f.CtxID)
		}
		if f.Type != dlt.Unknown {
			l.SetType(f.Type)
		}
	}
	list, err := catalogue.DecodeArgs(f, data, bigEndian)
	if err != nil {
		log.Debug().Uint32("id", id).Err(err).Msg("frame does not match payload")
		return opaque
	}
	return line.NonVerbose{MessageID: id, Args: list}
}
