package control

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/line"
)

var (
	ErrTruncated      = errors.New("control: truncated payload")
	ErrUnknownService = errors.New("control: unknown service id")
	ErrNotControl     = errors.New("control: message type is not a control type")
	ErrShortBuffer    = errors.New("control: destination buffer too short")
	ErrUnsupported    = errors.New("control: service cannot be encoded")
)

func order(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// reader walks a control payload. The first error sticks.
type reader struct {
	b   []byte
	off int
	bo  binary.ByteOrder
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b)-r.off < n {
		r.err = ErrTruncated
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) u8() uint8 {
	if p := r.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if p := r.take(2); p != nil {
		return r.bo.Uint16(p)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if p := r.take(4); p != nil {
		return r.bo.Uint32(p)
	}
	return 0
}

func (r *reader) id() string {
	if p := r.take(dlt.IDLen); p != nil {
		return dlt.ParseID(p)
	}
	return ""
}

func (r *reader) status() Status { return Status(r.u8()) }

type decodeFunc func(id uint32, r *reader) line.Service

var requestDecoders = map[uint32]decodeFunc{
	SetLogLevel: func(_ uint32, r *reader) line.Service {
		return SetLogLevelRequest{AppID: r.id(), CtxID: r.id(), Level: LogLevel(int8(r.u8())), ComID: r.id()}
	},
	SetTraceStatus: func(_ uint32, r *reader) line.Service {
		return SetTraceStatusRequest{AppID: r.id(), CtxID: r.id(), Status: TraceStatus(int8(r.u8())), ComID: r.id()}
	},
	GetLogInfo: func(_ uint32, r *reader) line.Service {
		return GetLogInfoRequest{Options: r.u8(), AppID: r.id(), CtxID: r.id(), ComID: r.id()}
	},
	SetDefaultLogLevel: func(_ uint32, r *reader) line.Service {
		return SetDefaultLogLevelRequest{Level: LogLevel(int8(r.u8())), ComID: r.id()}
	},
	SetDefaultTraceStatus: func(_ uint32, r *reader) line.Service {
		return SetDefaultTraceStatusRequest{Enabled: r.u8() != 0, ComID: r.id()}
	},
	GetTraceStatus: func(_ uint32, r *reader) line.Service {
		return GetTraceStatusRequest{AppID: r.id(), CtxID: r.id()}
	},
	SetVerboseMode:      switchRequest,
	SetMessageFiltering: switchRequest,
	SetTimingPackets:    switchRequest,
	UseEcuID:            switchRequest,
	UseSessionID:        switchRequest,
	UseTimeStamp:        switchRequest,
	UseExtendedHeader:   switchRequest,

	GetDefaultLogLevel:    emptyRequest,
	StoreConfig:           emptyRequest,
	ResetFactoryDefault:   emptyRequest,
	GetLocalTime:          emptyRequest,
	GetSoftwareVersion:    emptyRequest,
	MessageBufferOverflow: emptyRequest,
	GetDefaultTraceStatus: emptyRequest,
	GetVerboseMode:        emptyRequest,
	GetMessageFiltering:   emptyRequest,
	GetUseEcuID:           emptyRequest,
	GetUseSessionID:       emptyRequest,
	GetUseTimeStamp:       emptyRequest,
	GetUseExtendedHeader:  emptyRequest,
	BufferOverflow:        emptyRequest,
	SyncTimeStamp:         emptyRequest,
}

var responseDecoders = map[uint32]decodeFunc{
	SetLogLevel:           statusResponse,
	SetTraceStatus:        statusResponse,
	StoreConfig:           statusResponse,
	ResetFactoryDefault:   statusResponse,
	SetVerboseMode:        statusResponse,
	SetMessageFiltering:   statusResponse,
	SetTimingPackets:      statusResponse,
	GetLocalTime:          statusResponse,
	UseEcuID:              statusResponse,
	UseSessionID:          statusResponse,
	UseTimeStamp:          statusResponse,
	UseExtendedHeader:     statusResponse,
	SetDefaultLogLevel:    statusResponse,
	SetDefaultTraceStatus: statusResponse,
	CustomMarker:          statusResponse,
	GetLogInfo:            decodeGetLogInfo,

	GetDefaultTraceStatus: switchResponse,
	GetVerboseMode:        switchResponse,
	GetMessageFiltering:   switchResponse,
	GetUseEcuID:           switchResponse,
	GetUseSessionID:       switchResponse,
	GetUseTimeStamp:       switchResponse,
	GetUseExtendedHeader:  switchResponse,
	GetTraceStatus:        switchResponse,

	GetDefaultLogLevel: func(_ uint32, r *reader) line.Service {
		return GetDefaultLogLevelResponse{Status: r.status(), Level: r.u8()}
	},
	GetSoftwareVersion: func(_ uint32, r *reader) line.Service {
		status := r.status()
		n := r.u32()
		text := r.take(int(n))
		if r.err != nil {
			return nil
		}
		version, err := args.DecodeText(args.CodingASCII, text)
		if err != nil {
			r.err = err
			return nil
		}
		return GetSoftwareVersionResponse{Status: status, Version: version}
	},
	MessageBufferOverflow: func(_ uint32, r *reader) line.Service {
		return MessageBufferOverflowResponse{Status: r.status(), Overflow: r.u8() != 0}
	},
	BufferOverflow: func(_ uint32, r *reader) line.Service {
		return BufferOverflowResponse{Status: r.status(), Counter: r.u32()}
	},
	SyncTimeStamp: func(_ uint32, r *reader) line.Service {
		status := r.status()
		ns := r.u32()
		lo := r.u32()
		hi := r.u16()
		sec := int64(hi)<<32 | int64(lo)
		return SyncTimeStampResponse{Status: status, Time: time.Unix(sec, int64(ns)).UTC()}
	},
	CustomUnregisterCtx: func(_ uint32, r *reader) line.Service {
		return UnregisterContextResponse{Status: r.status(), AppID: r.id(), CtxID: r.id(), ComID: r.id()}
	},
	CustomConnectionInfo: func(_ uint32, r *reader) line.Service {
		return ConnectionInfoResponse{Status: r.status(), State: r.u8(), ComID: r.id()}
	},
	CustomTimeZone: func(_ uint32, r *reader) line.Service {
		status := r.status()
		offset := int32(r.u32())
		return TimeZoneResponse{Status: status, Offset: time.Duration(offset) * time.Second, DST: r.u8() != 0}
	},
}

func emptyRequest(id uint32, _ *reader) line.Service {
	return Request{ID: id}
}

func switchRequest(id uint32, r *reader) line.Service {
	return SwitchRequest{ID: id, Enabled: r.u8() != 0}
}

func statusResponse(id uint32, r *reader) line.Service {
	return Response{ID: id, Status: r.status()}
}

func switchResponse(id uint32, r *reader) line.Service {
	return SwitchResponse{ID: id, Status: r.status(), Enabled: r.u8() != 0}
}

func decodeGetLogInfo(_ uint32, r *reader) line.Service {
	resp := GetLogInfoResponse{Status: r.status()}
	switch resp.Status {
	case StatusNoLogNoTrace, StatusWithLogNoTrace, StatusNoLogWithTrace, StatusWithLogTrace, StatusFullInfo:
	default:
		resp.ComID = r.id()
		return resp
	}
	level, trace := resp.Status.levelTrace()
	full := resp.Status == StatusFullInfo
	apps := int(r.u16())
	for i := 0; i < apps && r.err == nil; i++ {
		app := AppInfo{ID: r.id()}
		ctxs := int(r.u16())
		for j := 0; j < ctxs && r.err == nil; j++ {
			c := ContextInfo{ID: r.id(), Level: LogLevelDefault, Trace: TraceDefault}
			if level {
				c.Level = LogLevel(int8(r.u8()))
			}
			if trace {
				c.Trace = TraceStatus(int8(r.u8()))
			}
			if full {
				c.Description = r.description()
			}
			app.Contexts = append(app.Contexts, c)
		}
		if full {
			app.Description = r.description()
		}
		resp.Apps = append(resp.Apps, app)
	}
	resp.ComID = r.id()
	return resp
}

func (r *reader) description() string {
	p := r.take(int(r.u16()))
	if r.err != nil {
		return ""
	}
	s, err := args.DecodeText(args.CodingUTF8, p)
	if err != nil {
		r.err = err
	}
	return s
}

// Decode reads a control payload of message type t. It returns the service
// and the bytes consumed, which may be fewer than len(b) when the record is
// padded.
func Decode(t dlt.MessageType, b []byte, bigEndian bool) (line.Service, int, error) {
	if t == dlt.ControlTime {
		return TimeMarker{}, 0, nil
	}
	var table map[uint32]decodeFunc
	switch t {
	case dlt.ControlRequest:
		table = requestDecoders
	case dlt.ControlResponse:
		table = responseDecoders
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrNotControl, t)
	}

	r := &reader{b: b, bo: order(bigEndian)}
	id := r.u32()
	if r.err != nil {
		return nil, 0, r.err
	}
	dec, ok := table[id]
	if !ok {
		if id < SwInjectionFirst {
			return nil, 0, fmt.Errorf("%w: 0x%x", ErrUnknownService, id)
		}
		return decodeSwInjection(t, id, r)
	}
	svc := dec(id, r)
	if r.err != nil {
		return nil, 0, fmt.Errorf("%s: %w", Name(id), r.err)
	}
	return svc, r.off, nil
}

// Software injection requests carry a little-endian u32 length that must
// cover the rest of the payload.
func decodeSwInjection(t dlt.MessageType, id uint32, r *reader) (line.Service, int, error) {
	if t == dlt.ControlResponse {
		status := r.status()
		if r.err != nil {
			return nil, 0, r.err
		}
		return SwInjectionResponse{ID: id, Status: status}, r.off, nil
	}
	p := r.take(4)
	if r.err != nil {
		return nil, 0, r.err
	}
	n := int(binary.LittleEndian.Uint32(p))
	if n != len(r.b)-r.off {
		return nil, 0, fmt.Errorf("sw injection: %w: length %d", ErrTruncated, n)
	}
	payload := make([]byte, n)
	copy(payload, r.take(n))
	return SwInjectionRequest{ID: id, Payload: payload}, r.off, nil
}

// writer fills a control payload. The first error sticks.
type writer struct {
	b   []byte
	off int
	bo  binary.ByteOrder
	err error
}

func (w *writer) grab(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.b)-w.off < n {
		w.err = ErrShortBuffer
		return nil
	}
	p := w.b[w.off : w.off+n]
	w.off += n
	return p
}

func (w *writer) u8(v uint8) {
	if p := w.grab(1); p != nil {
		p[0] = v
	}
}

func (w *writer) u16(v uint16) {
	if p := w.grab(2); p != nil {
		w.bo.PutUint16(p, v)
	}
}

func (w *writer) u32(v uint32) {
	if p := w.grab(4); p != nil {
		w.bo.PutUint32(p, v)
	}
}

func (w *writer) id(s string) {
	if p := w.grab(dlt.IDLen); p != nil {
		dlt.PutID(p, s)
	}
}

func (w *writer) raw(b []byte) {
	if p := w.grab(len(b)); p != nil {
		copy(p, b)
	}
}

// text writes a NUL terminated string behind a 2 or 4 byte length.
func (w *writer) text(c args.Coding, s string, prefix int) {
	data, err := args.EncodeText(c, s)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return
	}
	if prefix == 4 {
		w.u32(uint32(len(data) + 1))
	} else {
		w.u16(uint16(len(data) + 1))
	}
	w.raw(data)
	w.u8(0)
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// Encode writes the service id and payload of s into dst in message byte
// order and returns the bytes written.
func Encode(dst []byte, s line.Service, bigEndian bool) (int, error) {
	if _, ok := s.(TimeMarker); ok {
		return 0, nil
	}
	w := &writer{b: dst, bo: order(bigEndian)}
	w.u32(s.ServiceID())
	switch v := s.(type) {
	case Request:
	case Response:
		w.u8(uint8(v.Status))
	case SetLogLevelRequest:
		w.id(v.AppID)
		w.id(v.CtxID)
		w.u8(uint8(v.Level))
		w.id(v.ComID)
	case SetTraceStatusRequest:
		w.id(v.AppID)
		w.id(v.CtxID)
		w.u8(uint8(v.Status))
		w.id(v.ComID)
	case SetDefaultLogLevelRequest:
		w.u8(uint8(v.Level))
		w.id(v.ComID)
	case SetDefaultTraceStatusRequest:
		w.u8(boolByte(v.Enabled))
		w.id(v.ComID)
	case SwitchRequest:
		w.u8(boolByte(v.Enabled))
	case GetLogInfoRequest:
		w.u8(v.Options)
		w.id(v.AppID)
		w.id(v.CtxID)
		w.id(v.ComID)
	case GetTraceStatusRequest:
		w.id(v.AppID)
		w.id(v.CtxID)
	case SwInjectionRequest:
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(v.Payload)))
		w.raw(n[:])
		w.raw(v.Payload)
	case SwInjectionResponse:
		w.u8(uint8(v.Status))
	case GetDefaultLogLevelResponse:
		w.u8(uint8(v.Status))
		w.u8(v.Level)
	case SwitchResponse:
		w.u8(uint8(v.Status))
		w.u8(boolByte(v.Enabled))
	case MessageBufferOverflowResponse:
		w.u8(uint8(v.Status))
		w.u8(boolByte(v.Overflow))
	case GetSoftwareVersionResponse:
		w.u8(uint8(v.Status))
		w.text(args.CodingASCII, v.Version, 4)
	case BufferOverflowResponse:
		w.u8(uint8(v.Status))
		w.u32(v.Counter)
	case SyncTimeStampResponse:
		w.u8(uint8(v.Status))
		sec := v.Time.Unix()
		w.u32(uint32(v.Time.Nanosecond()))
		w.u32(uint32(sec))
		w.u16(uint16(sec >> 32))
	case GetLogInfoResponse:
		encodeGetLogInfo(w, v)
	case UnregisterContextResponse:
		w.u8(uint8(v.Status))
		w.id(v.AppID)
		w.id(v.CtxID)
		w.id(v.ComID)
	case ConnectionInfoResponse:
		w.u8(uint8(v.Status))
		w.u8(v.State)
		w.id(v.ComID)
	case TimeZoneResponse:
		w.u8(uint8(v.Status))
		w.u32(uint32(int32(v.Offset / time.Second)))
		w.u8(boolByte(v.DST))
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, s)
	}
	if w.err != nil {
		return 0, w.err
	}
	return w.off, nil
}

func encodeGetLogInfo(w *writer, v GetLogInfoResponse) {
	w.u8(uint8(v.Status))
	switch v.Status {
	case StatusNoLogNoTrace, StatusWithLogNoTrace, StatusNoLogWithTrace, StatusWithLogTrace, StatusFullInfo:
	default:
		w.id(v.ComID)
		return
	}
	level, trace := v.Status.levelTrace()
	full := v.Status == StatusFullInfo
	w.u16(uint16(len(v.Apps)))
	for _, app := range v.Apps {
		w.id(app.ID)
		w.u16(uint16(len(app.Contexts)))
		for _, c := range app.Contexts {
			w.id(c.ID)
			if level {
				w.u8(uint8(c.Level))
			}
			if trace {
				w.u8(uint8(c.Trace))
			}
			if full {
				w.text(args.CodingUTF8, c.Description, 2)
			}
		}
		if full {
			w.text(args.CodingUTF8, app.Description, 2)
		}
	}
	w.id(v.ComID)
}
