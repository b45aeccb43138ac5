package dlt

// MessageType is the extended header message-info byte with the verbose bit
// cleared: bits 1-3 carry the type, bits 4-7 the subtype.
type MessageType uint8

const (
	TypeMask    uint8 = 0x0E
	SubtypeMask uint8 = 0xF0
	InfoMask    uint8 = 0xFE

	TypeLog      uint8 = 0x00
	TypeAppTrace uint8 = 0x02
	TypeNwTrace  uint8 = 0x04
	TypeControl  uint8 = 0x06
)

const (
	LogFatal   MessageType = 0x10
	LogError   MessageType = 0x20
	LogWarn    MessageType = 0x30
	LogInfo    MessageType = 0x40
	LogDebug   MessageType = 0x50
	LogVerbose MessageType = 0x60

	AppTraceVariable    MessageType = 0x12
	AppTraceFunctionIn  MessageType = 0x22
	AppTraceFunctionOut MessageType = 0x32
	AppTraceState       MessageType = 0x42
	AppTraceVFB         MessageType = 0x52

	NwTraceIPC          MessageType = 0x14
	NwTraceCAN          MessageType = 0x24
	NwTraceFlexRay      MessageType = 0x34
	NwTraceMOST         MessageType = 0x44
	NwTraceEthernet     MessageType = 0x54
	NwTraceSomeIP       MessageType = 0x64
	NwTraceUserDefined0 MessageType = 0x74
	NwTraceUserDefined1 MessageType = 0x84
	NwTraceUserDefined2 MessageType = 0x94
	NwTraceUserDefined3 MessageType = 0xA4
	NwTraceUserDefined4 MessageType = 0xB4
	NwTraceUserDefined5 MessageType = 0xC4
	NwTraceUserDefined6 MessageType = 0xD4
	NwTraceUserDefined7 MessageType = 0xE4
	NwTraceUserDefined8 MessageType = 0xF4

	ControlRequest  MessageType = 0x16
	ControlResponse MessageType = 0x26
	ControlTime     MessageType = 0x36

	Unknown MessageType = 0xFF
)

var typeDescriptions = map[MessageType]string{
	LogFatal:            "log fatal",
	LogError:            "log error",
	LogWarn:             "log warn",
	LogInfo:             "log info",
	LogDebug:            "log debug",
	LogVerbose:          "log verbose",
	AppTraceVariable:    "app_trace variable",
	AppTraceFunctionIn:  "app_trace func_in",
	AppTraceFunctionOut: "app_trace func_out",
	AppTraceState:       "app_trace state",
	AppTraceVFB:         "app_trace vfb",
	NwTraceIPC:          "nw_trace ipc",
	NwTraceCAN:          "nw_trace can",
	NwTraceFlexRay:      "nw_trace flexray",
	NwTraceMOST:         "nw_trace most",
	NwTraceEthernet:     "nw_trace ethernet",
	NwTraceSomeIP:       "nw_trace someip",
	ControlRequest:      "control request",
	ControlResponse:     "control response",
	ControlTime:         "control time",
}

var typeNames = map[string]MessageType{}

func init() {
	for t, d := range typeDescriptions {
		typeNames[d] = t
	}
}

// Class returns the 3-bit type field (log, app trace, network trace, control).
func (t MessageType) Class() uint8 {
	return uint8(t) & TypeMask
}

func (t MessageType) IsControl() bool {
	return t != Unknown && t.Class() == TypeControl
}

// String returns the description used in the text projection of a line.
func (t MessageType) String() string {
	if d, ok := typeDescriptions[t]; ok {
		return d
	}
	if t == Unknown {
		return ""
	}
	switch t.Class() {
	case TypeLog:
		return "log "
	case TypeAppTrace:
		return "app_trace "
	case TypeNwTrace:
		return "nw_trace "
	default:
		return "control "
	}
}

// ParseMessageType resolves a description such as "log info" back to its type.
func ParseMessageType(s string) (MessageType, bool) {
	t, ok := typeNames[s]
	return t, ok
}
