package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/line"
)

// Script is a dltgen line script: verbose lines to encode into a capture.
type Script struct {
	Framing string       `toml:"framing"`
	Output  string       `toml:"output"`
	EcuID   string       `toml:"ecu"`
	Lines   []ScriptLine `toml:"line"`

	meta toml.MetaData
}

type ScriptLine struct {
	EcuID      string      `toml:"ecu"`
	AppID      string      `toml:"app"`
	CtxID      string      `toml:"ctx"`
	Type       string      `toml:"type"`
	Time       *time.Time  `toml:"time"`
	Session    *uint32     `toml:"session"`
	DeviceTime string      `toml:"device_time"`
	BigEndian  bool        `toml:"big_endian"`
	Count      *int        `toml:"count"`
	Args       []ScriptArg `toml:"arg"`
}

// ScriptArg holds one argument. Value is decoded once Type is known.
type ScriptArg struct {
	Type  string         `toml:"type"`
	Width int            `toml:"width"`
	Value toml.Primitive `toml:"value"`
}

func LoadScript(path string) (*Script, error) {
	s := &Script{}
	meta, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("script load failed (%s): %w", path, err)
	}
	s.meta = meta
	if s.Framing == "" {
		s.Framing = "file"
	}
	if _, err := dlt.ParseFraming(s.Framing); err != nil {
		return nil, &ValidationError{Field: "framing", Reason: err.Error()}
	}
	if len(s.EcuID) > dlt.IDLen {
		return nil, &ValidationError{Field: "ecu", Reason: "longer than 4 characters"}
	}
	if _, err := s.TraceLines(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Script) OutputFraming() dlt.Framing {
	f, _ := dlt.ParseFraming(s.Framing)
	return f
}

// TraceLines builds the scripted lines in order.
func (s *Script) TraceLines() ([]*line.TraceLine, error) {
	out := make([]*line.TraceLine, 0, len(s.Lines))
	for i, sl := range s.Lines {
		l, err := s.traceLine(sl)
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("line[%d]", i), Reason: err.Error()}
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Script) traceLine(sl ScriptLine) (*line.TraceLine, error) {
	list := make([]args.Arg, 0, len(sl.Args))
	for j, a := range sl.Args {
		arg, err := s.arg(a)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", j, err)
		}
		list = append(list, arg)
	}

	l := line.New(line.Verbose{Args: list})
	for field, id := range map[string]string{"ecu": sl.EcuID, "app": sl.AppID, "ctx": sl.CtxID} {
		if len(id) > dlt.IDLen {
			return nil, fmt.Errorf("%s id %q longer than 4 characters", field, id)
		}
	}
	if sl.EcuID != "" {
		l.SetEcuID(sl.EcuID)
	}
	l.SetAppID(sl.AppID)
	l.SetCtxID(sl.CtxID)

	typ := dlt.LogInfo
	if sl.Type != "" {
		t, ok := dlt.ParseMessageType(sl.Type)
		if !ok {
			return nil, fmt.Errorf("unknown message type %q", sl.Type)
		}
		typ = t
	}
	l.SetType(typ)

	if sl.Time != nil {
		l.SetTimeStamp(sl.Time.UTC())
	}
	if sl.Session != nil {
		l.SetSessionID(*sl.Session)
	}
	if sl.DeviceTime != "" {
		d, err := parseDuration(sl.DeviceTime)
		if err != nil {
			return nil, fmt.Errorf("device_time: %w", err)
		}
		l.SetDeviceTime(d)
	}
	if sl.Count != nil {
		l.Count = *sl.Count
	}
	l.SetBigEndian(sl.BigEndian)
	return l, nil
}

func (s *Script) arg(a ScriptArg) (args.Arg, error) {
	kind := strings.ToLower(strings.TrimSpace(a.Type))
	width := a.Width
	if width == 0 {
		width = 4
	}
	switch kind {
	case "string", "utf8", "ascii":
		var v string
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		coding := args.CodingUTF8
		if kind == "ascii" {
			coding = args.CodingASCII
		}
		return args.String{Value: v, Coding: coding}, nil
	case "sint":
		var v int64
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		return args.SignedInt{Value: v, Width: width}, nil
	case "uint", "hex", "bin":
		var v int64
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%s value %d is negative", kind, v)
		}
		switch kind {
		case "hex":
			return args.HexInt{Value: uint64(v), Width: width}, nil
		case "bin":
			return args.BinaryInt{Value: uint64(v), Width: width}, nil
		}
		return args.UnsignedInt{Value: uint64(v), Width: width}, nil
	case "bool":
		var v bool
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		return args.Bool{Value: v}, nil
	case "float32", "float64":
		var v float64
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		if kind == "float32" {
			return args.Float32{Value: float32(v)}, nil
		}
		return args.Float64{Value: v}, nil
	case "raw":
		var v string
		if err := s.meta.PrimitiveDecode(a.Value, &v); err != nil {
			return nil, err
		}
		data, err := hex.DecodeString(strings.ReplaceAll(v, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("raw value: %w", err)
		}
		return args.Raw{Data: data}, nil
	default:
		return nil, fmt.Errorf("unknown argument type %q", a.Type)
	}
}
