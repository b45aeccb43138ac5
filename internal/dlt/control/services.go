package control

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Service ids.
const (
	SetLogLevel           uint32 = 0x01
	SetTraceStatus        uint32 = 0x02
	GetLogInfo            uint32 = 0x03
	GetDefaultLogLevel    uint32 = 0x04
	StoreConfig           uint32 = 0x05
	ResetFactoryDefault   uint32 = 0x06
	SetVerboseMode        uint32 = 0x09
	SetMessageFiltering   uint32 = 0x0A
	SetTimingPackets      uint32 = 0x0B
	GetLocalTime          uint32 = 0x0C
	UseEcuID              uint32 = 0x0D
	UseSessionID          uint32 = 0x0E
	UseTimeStamp          uint32 = 0x0F
	UseExtendedHeader     uint32 = 0x10
	SetDefaultLogLevel    uint32 = 0x11
	SetDefaultTraceStatus uint32 = 0x12
	GetSoftwareVersion    uint32 = 0x13
	MessageBufferOverflow uint32 = 0x14
	GetDefaultTraceStatus uint32 = 0x15
	GetVerboseMode        uint32 = 0x19
	GetMessageFiltering   uint32 = 0x1A
	GetUseEcuID           uint32 = 0x1B
	GetUseSessionID       uint32 = 0x1C
	GetUseTimeStamp       uint32 = 0x1D
	GetUseExtendedHeader  uint32 = 0x1E
	GetTraceStatus        uint32 = 0x1F
	BufferOverflow        uint32 = 0x23
	SyncTimeStamp         uint32 = 0x24
	CustomUnregisterCtx   uint32 = 0xF01
	CustomConnectionInfo  uint32 = 0xF02
	CustomTimeZone        uint32 = 0xF03
	CustomMarker          uint32 = 0xF04
	SwInjectionFirst      uint32 = 0xFFF
)

var names = map[uint32]string{
	SetLogLevel:           "set_log_level",
	SetTraceStatus:        "set_trace_status",
	GetLogInfo:            "get_log_info",
	GetDefaultLogLevel:    "get_default_log_level",
	StoreConfig:           "store_config",
	ResetFactoryDefault:   "reset_to_factory_default",
	SetVerboseMode:        "set_verbose_mode",
	SetMessageFiltering:   "set_message_filtering",
	SetTimingPackets:      "set_timing_packets",
	GetLocalTime:          "get_local_time",
	UseEcuID:              "use_ecu_id",
	UseSessionID:          "use_session_id",
	UseTimeStamp:          "use_timestamp",
	UseExtendedHeader:     "use_extended_header",
	SetDefaultLogLevel:    "set_default_log_level",
	SetDefaultTraceStatus: "set_default_trace_status",
	GetSoftwareVersion:    "get_software_version",
	MessageBufferOverflow: "message_buffer_overflow",
	GetDefaultTraceStatus: "get_default_trace_status",
	GetVerboseMode:        "get_verbose_mode",
	GetMessageFiltering:   "get_message_filtering",
	GetUseEcuID:           "get_use_ecu_id",
	GetUseSessionID:       "get_use_session_id",
	GetUseTimeStamp:       "get_use_timestamp",
	GetUseExtendedHeader:  "get_use_extended_header",
	GetTraceStatus:        "get_trace_status",
	BufferOverflow:        "buffer_overflow",
	SyncTimeStamp:         "sync_timestamp",
	CustomUnregisterCtx:   "unregister_context",
	CustomConnectionInfo:  "connection_info",
	CustomTimeZone:        "timezone",
	CustomMarker:          "marker",
}

// Name returns the display name of a service, empty for software injections.
func Name(id uint32) string {
	if n, ok := names[id]; ok {
		return n
	}
	if id < SwInjectionFirst {
		return "service_0x" + strconv.FormatUint(uint64(id), 16)
	}
	return ""
}

type Status uint8

const (
	StatusOK           Status = 0
	StatusNotSupported Status = 1
	StatusError        Status = 2
)

// Software injection and get_log_info specific statuses.
const (
	StatusPending        Status = 3
	StatusNoLogNoTrace   Status = 3
	StatusWithLogNoTrace Status = 4
	StatusNoLogWithTrace Status = 5
	StatusWithLogTrace   Status = 6
	StatusFullInfo       Status = 7
	StatusNoMatch        Status = 8
	StatusOverflow       Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotSupported:
		return "not_supported"
	case StatusError:
		return "error"
	default:
		return "status=" + strconv.Itoa(int(s))
	}
}

// LogLevel is a signed log level; -1 selects the default level.
type LogLevel int8

const (
	LogLevelDefault  LogLevel = -1
	LogLevelBlockAll LogLevel = 0
	LogLevelFatal    LogLevel = 1
	LogLevelError    LogLevel = 2
	LogLevelWarning  LogLevel = 3
	LogLevelInfo     LogLevel = 4
	LogLevelDebug    LogLevel = 5
	LogLevelVerbose  LogLevel = 6
)

var logLevelNames = [...]string{"block_all", "fatal", "error", "warning", "info", "debug", "verbose"}

func (l LogLevel) String() string {
	if l == LogLevelDefault {
		return "default"
	}
	if l >= 0 && int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return strconv.Itoa(int(l))
}

// TraceStatus is a signed trace status; -1 selects the default.
type TraceStatus int8

const (
	TraceDefault TraceStatus = -1
	TraceOff     TraceStatus = 0
	TraceOn      TraceStatus = 1
)

func (t TraceStatus) String() string {
	switch t {
	case TraceDefault:
		return "default"
	case TraceOff:
		return "off"
	case TraceOn:
		return "on"
	default:
		return strconv.Itoa(int(t))
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// appCtx renders "APP (CTX)", "-all-" style identifier pairs followed by an
// optional communication interface.
func appCtx(sb *strings.Builder, app, ctx string) {
	if app == "" && ctx == "" {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(app)
	sb.WriteString(" (")
	sb.WriteString(ctx)
	sb.WriteByte(')')
}

func suffix(sb *strings.Builder, s string) {
	if s != "" {
		sb.WriteByte(' ')
		sb.WriteString(s)
	}
}

func head(id uint32, status string) string {
	if status == "" {
		return "[" + Name(id) + "]"
	}
	return "[" + Name(id) + " " + status + "]"
}

// Request is a request without payload.
type Request struct {
	ID uint32
}

func (r Request) ServiceID() uint32 { return r.ID }
func (r Request) String() string    { return head(r.ID, "") }

// Response is a response carrying only a status.
type Response struct {
	ID     uint32
	Status Status
}

func (r Response) ServiceID() uint32 { return r.ID }
func (r Response) String() string    { return head(r.ID, r.Status.String()) }

type SetLogLevelRequest struct {
	AppID string
	CtxID string
	Level LogLevel
	ComID string
}

func (SetLogLevelRequest) ServiceID() uint32 { return SetLogLevel }

func (r SetLogLevelRequest) String() string {
	var sb strings.Builder
	sb.WriteString(head(SetLogLevel, ""))
	sb.WriteByte(' ')
	sb.WriteString(r.Level.String())
	appCtx(&sb, r.AppID, r.CtxID)
	suffix(&sb, r.ComID)
	return sb.String()
}

type SetTraceStatusRequest struct {
	AppID  string
	CtxID  string
	Status TraceStatus
	ComID  string
}

func (SetTraceStatusRequest) ServiceID() uint32 { return SetTraceStatus }

func (r SetTraceStatusRequest) String() string {
	var sb strings.Builder
	sb.WriteString(head(SetTraceStatus, ""))
	sb.WriteByte(' ')
	sb.WriteString(r.Status.String())
	appCtx(&sb, r.AppID, r.CtxID)
	suffix(&sb, r.ComID)
	return sb.String()
}

type SetDefaultLogLevelRequest struct {
	Level LogLevel
	ComID string
}

func (SetDefaultLogLevelRequest) ServiceID() uint32 { return SetDefaultLogLevel }

func (r SetDefaultLogLevelRequest) String() string {
	var sb strings.Builder
	sb.WriteString(head(SetDefaultLogLevel, ""))
	sb.WriteByte(' ')
	sb.WriteString(r.Level.String())
	suffix(&sb, r.ComID)
	return sb.String()
}

type SetDefaultTraceStatusRequest struct {
	Enabled bool
	ComID   string
}

func (SetDefaultTraceStatusRequest) ServiceID() uint32 { return SetDefaultTraceStatus }

func (r SetDefaultTraceStatusRequest) String() string {
	var sb strings.Builder
	sb.WriteString(head(SetDefaultTraceStatus, ""))
	sb.WriteByte(' ')
	sb.WriteString(onOff(r.Enabled))
	suffix(&sb, r.ComID)
	return sb.String()
}

// SwitchRequest turns a feature on or off with a single byte payload, e.g.
// set_verbose_mode or use_ecu_id.
type SwitchRequest struct {
	ID      uint32
	Enabled bool
}

func (r SwitchRequest) ServiceID() uint32 { return r.ID }
func (r SwitchRequest) String() string    { return head(r.ID, "") + " " + onOff(r.Enabled) }

type GetLogInfoRequest struct {
	Options uint8
	AppID   string
	CtxID   string
	ComID   string
}

func (GetLogInfoRequest) ServiceID() uint32 { return GetLogInfo }

func (r GetLogInfoRequest) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[get_log_info options=%d]", r.Options)
	if r.AppID == "" && r.CtxID == "" {
		sb.WriteString(" -all-")
	} else {
		appCtx(&sb, r.AppID, r.CtxID)
	}
	suffix(&sb, r.ComID)
	return sb.String()
}

type GetTraceStatusRequest struct {
	AppID string
	CtxID string
}

func (GetTraceStatusRequest) ServiceID() uint32 { return GetTraceStatus }

func (r GetTraceStatusRequest) String() string {
	var sb strings.Builder
	sb.WriteString(head(GetTraceStatus, ""))
	appCtx(&sb, r.AppID, r.CtxID)
	return sb.String()
}

// SwInjectionRequest carries an opaque payload for a user service id.
type SwInjectionRequest struct {
	ID      uint32
	Payload []byte
}

func (r SwInjectionRequest) ServiceID() uint32 { return r.ID }

func (r SwInjectionRequest) String() string {
	n := len(r.Payload)
	var sb strings.Builder
	fmt.Fprintf(&sb, "[] %02x %02x %02x %02x", byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	for _, b := range r.Payload {
		fmt.Fprintf(&sb, " %02x", b)
	}
	return sb.String()
}

type SwInjectionResponse struct {
	ID     uint32
	Status Status
}

func (r SwInjectionResponse) ServiceID() uint32 { return r.ID }

func (r SwInjectionResponse) String() string {
	if r.Status == StatusPending {
		return "[ pending]"
	}
	return "[ " + r.Status.String() + "]"
}

type GetDefaultLogLevelResponse struct {
	Status Status
	Level  uint8
}

func (GetDefaultLogLevelResponse) ServiceID() uint32 { return GetDefaultLogLevel }

func (r GetDefaultLogLevelResponse) String() string {
	level := "log_level=" + strconv.Itoa(int(r.Level))
	if int(r.Level) < len(logLevelNames) {
		level = logLevelNames[r.Level]
	}
	return head(GetDefaultLogLevel, r.Status.String()) + " " + level
}

// SwitchResponse reports an on/off setting, e.g. get_verbose_mode. The value
// is only shown for a successful status.
type SwitchResponse struct {
	ID      uint32
	Status  Status
	Enabled bool
}

func (r SwitchResponse) ServiceID() uint32 { return r.ID }

func (r SwitchResponse) String() string {
	if r.Status != StatusOK {
		return head(r.ID, r.Status.String())
	}
	return head(r.ID, r.Status.String()) + " " + onOff(r.Enabled)
}

type MessageBufferOverflowResponse struct {
	Status   Status
	Overflow bool
}

func (MessageBufferOverflowResponse) ServiceID() uint32 { return MessageBufferOverflow }

func (r MessageBufferOverflowResponse) String() string {
	if r.Status != StatusOK {
		return head(MessageBufferOverflow, r.Status.String())
	}
	return head(MessageBufferOverflow, r.Status.String()) + " " + strconv.FormatBool(r.Overflow)
}

type GetSoftwareVersionResponse struct {
	Status  Status
	Version string
}

func (GetSoftwareVersionResponse) ServiceID() uint32 { return GetSoftwareVersion }

func (r GetSoftwareVersionResponse) String() string {
	var sb strings.Builder
	sb.WriteString(head(GetSoftwareVersion, r.Status.String()))
	suffix(&sb, r.Version)
	return sb.String()
}

type BufferOverflowResponse struct {
	Status  Status
	Counter uint32
}

func (BufferOverflowResponse) ServiceID() uint32 { return BufferOverflow }

func (r BufferOverflowResponse) String() string {
	return head(BufferOverflow, r.Status.String()) + " " + strconv.FormatUint(uint64(r.Counter), 10)
}

type SyncTimeStampResponse struct {
	Status Status
	Time   time.Time
}

func (SyncTimeStampResponse) ServiceID() uint32 { return SyncTimeStamp }

func (r SyncTimeStampResponse) String() string {
	return head(SyncTimeStamp, r.Status.String()) + " " + r.Time.UTC().Format("2006-01-02 15:04:05.00000") + "Z"
}

// ContextInfo is one context of a get_log_info response. Which of Level and
// Trace are meaningful depends on the response status.
type ContextInfo struct {
	ID          string
	Level       LogLevel
	Trace       TraceStatus
	Description string
}

type AppInfo struct {
	ID          string
	Description string
	Contexts    []ContextInfo
}

type GetLogInfoResponse struct {
	Status Status
	Apps   []AppInfo
	ComID  string
}

func (GetLogInfoResponse) ServiceID() uint32 { return GetLogInfo }

func (r GetLogInfoResponse) statusText() string {
	switch r.Status {
	case StatusNoMatch:
		return "no_matching_context_id"
	case StatusOverflow:
		return "overflow"
	case StatusNoLogNoTrace, StatusWithLogNoTrace, StatusNoLogWithTrace, StatusWithLogTrace, StatusFullInfo:
		return strconv.Itoa(int(r.Status))
	default:
		return r.Status.String()
	}
}

func (r GetLogInfoResponse) String() string {
	var sb strings.Builder
	sb.WriteString(head(GetLogInfo, r.statusText()))
	if len(r.Apps) == 0 {
		return sb.String()
	}
	hasLevel, hasTrace := r.Status.levelTrace()
	for _, app := range r.Apps {
		sb.WriteByte(' ')
		sb.WriteString(app.ID)
		sb.WriteString(" (")
		for i, c := range app.Contexts {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.ID)
			if hasLevel {
				sb.WriteByte(' ')
				sb.WriteString(c.Level.String())
			}
			if hasTrace {
				sb.WriteByte(' ')
				sb.WriteString(c.Trace.String())
			}
		}
		sb.WriteString(");")
	}
	suffix(&sb, r.ComID)
	return sb.String()
}

// levelTrace reports which per-context fields a get_log_info status carries.
func (s Status) levelTrace() (level bool, trace bool) {
	switch s {
	case StatusWithLogNoTrace:
		return true, false
	case StatusNoLogWithTrace:
		return false, true
	case StatusWithLogTrace, StatusFullInfo:
		return true, true
	default:
		return false, false
	}
}

type UnregisterContextResponse struct {
	Status Status
	AppID  string
	CtxID  string
	ComID  string
}

func (UnregisterContextResponse) ServiceID() uint32 { return CustomUnregisterCtx }

func (r UnregisterContextResponse) String() string {
	var sb strings.Builder
	sb.WriteString(head(CustomUnregisterCtx, r.Status.String()))
	appCtx(&sb, r.AppID, r.CtxID)
	suffix(&sb, r.ComID)
	return sb.String()
}

// Connection states of a connection_info response.
const (
	ConnectionUnknown      uint8 = 0
	ConnectionDisconnected uint8 = 1
	ConnectionConnected    uint8 = 2
)

type ConnectionInfoResponse struct {
	Status Status
	State  uint8
	ComID  string
}

func (ConnectionInfoResponse) ServiceID() uint32 { return CustomConnectionInfo }

func (r ConnectionInfoResponse) String() string {
	state := "unknown"
	switch r.State {
	case ConnectionDisconnected:
		state = "disconnected"
	case ConnectionConnected:
		state = "connected"
	}
	var sb strings.Builder
	sb.WriteString(head(CustomConnectionInfo, r.Status.String()))
	sb.WriteByte(' ')
	sb.WriteString(state)
	suffix(&sb, r.ComID)
	return sb.String()
}

type TimeZoneResponse struct {
	Status Status
	Offset time.Duration
	DST    bool
}

func (TimeZoneResponse) ServiceID() uint32 { return CustomTimeZone }

func (r TimeZoneResponse) String() string {
	sign := '+'
	off := r.Offset
	if off < 0 {
		sign = '-'
		off = -off
	}
	mins := int(off / time.Minute)
	s := fmt.Sprintf("%s %c%02d:%02d", head(CustomTimeZone, r.Status.String()), sign, mins/60, mins%60)
	if r.DST {
		s += " DST"
	}
	return s
}

// TimeMarker is the payload of a control time message.
type TimeMarker struct{}

func (TimeMarker) ServiceID() uint32 { return 0 }
func (TimeMarker) String() string    { return "" }
