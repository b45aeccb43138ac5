package line

import (
	"fmt"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
)

// InvalidCount marks a line without a message counter.
const InvalidCount = -1

const timeLayout = "2006/01/02 15:04:05.000000"

type textState uint8

const (
	textUnset textState = iota
	textComputed
	textExplicit
)

// TraceLine is one decoded or encodable DLT record. Optional fields are only
// changed through setters so that Features always reflects what is populated.
type TraceLine struct {
	// Line is the sequence number of the line in its stream.
	Line int
	// Position is the stream offset of the first byte of the record.
	Position int64
	// Count is the wrapping message counter, or InvalidCount.
	Count int

	Payload Payload

	features   dlt.Features
	timeStamp  time.Time
	ecuID      string
	appID      string
	ctxID      string
	sessionID  uint32
	deviceTime time.Duration
	typ        dlt.MessageType

	text      string
	textState textState
}

// New returns a line with the given payload and no optional fields.
func New(p Payload) *TraceLine {
	l := &TraceLine{Count: InvalidCount, Payload: p, typ: dlt.Unknown}
	if p != nil && p.Kind() == KindVerbose {
		l.features.Set(dlt.FeatureVerbose, true)
	}
	return l
}

func (l *TraceLine) Kind() Kind {
	if l.Payload == nil {
		return KindVerbose
	}
	return l.Payload.Kind()
}

func (l *TraceLine) Features() dlt.Features    { return l.features }
func (l *TraceLine) TimeStamp() time.Time      { return l.timeStamp }
func (l *TraceLine) EcuID() string             { return l.ecuID }
func (l *TraceLine) AppID() string             { return l.appID }
func (l *TraceLine) CtxID() string             { return l.ctxID }
func (l *TraceLine) SessionID() uint32         { return l.sessionID }
func (l *TraceLine) DeviceTime() time.Duration { return l.deviceTime }

// Type returns the message type, or dlt.Unknown when none is set.
func (l *TraceLine) Type() dlt.MessageType {
	if !l.features.Has(dlt.FeatureMessageType) {
		return dlt.Unknown
	}
	return l.typ
}

func (l *TraceLine) Verbose() bool   { return l.features.Has(dlt.FeatureVerbose) }
func (l *TraceLine) BigEndian() bool { return l.features.Has(dlt.FeatureBigEndian) }

func (l *TraceLine) SetTimeStamp(t time.Time) {
	l.timeStamp = t
	l.features.Set(dlt.FeatureTimeStamp, true)
	l.touch()
}

func (l *TraceLine) SetEcuID(id string) {
	l.ecuID = id
	l.features.Set(dlt.FeatureEcuID, true)
	l.touch()
}

// SetStorageEcuID records the ECU id carried by a storage header. It fills the
// value only when the standard header did not supply one and leaves
// FeatureEcuID clear, so the line still reports what its own header carried.
func (l *TraceLine) SetStorageEcuID(id string) {
	if l.features.Has(dlt.FeatureEcuID) {
		return
	}
	l.ecuID = id
	l.touch()
}

func (l *TraceLine) SetAppID(id string) {
	l.appID = id
	l.features.Set(dlt.FeatureAppID, true)
	l.touch()
}

func (l *TraceLine) SetCtxID(id string) {
	l.ctxID = id
	l.features.Set(dlt.FeatureCtxID, true)
	l.touch()
}

func (l *TraceLine) SetSessionID(id uint32) {
	l.sessionID = id
	l.features.Set(dlt.FeatureSessionID, true)
	l.touch()
}

func (l *TraceLine) SetDeviceTime(d time.Duration) {
	l.deviceTime = d
	l.features.Set(dlt.FeatureDeviceTime, true)
	l.touch()
}

func (l *TraceLine) SetType(t dlt.MessageType) {
	l.typ = t
	l.features.Set(dlt.FeatureMessageType, true)
	l.touch()
}

func (l *TraceLine) SetVerbose(on bool) {
	l.features.Set(dlt.FeatureVerbose, on)
	l.touch()
}

func (l *TraceLine) SetBigEndian(on bool) {
	l.features.Set(dlt.FeatureBigEndian, on)
}

// Clear removes optional fields and resets their values.
func (l *TraceLine) Clear(f dlt.Features) {
	if f.Has(dlt.FeatureTimeStamp) {
		l.timeStamp = time.Time{}
	}
	if f.Has(dlt.FeatureEcuID) {
		l.ecuID = ""
	}
	if f.Has(dlt.FeatureAppID) {
		l.appID = ""
	}
	if f.Has(dlt.FeatureCtxID) {
		l.ctxID = ""
	}
	if f.Has(dlt.FeatureSessionID) {
		l.sessionID = 0
	}
	if f.Has(dlt.FeatureDeviceTime) {
		l.deviceTime = 0
	}
	if f.Has(dlt.FeatureMessageType) {
		l.typ = dlt.Unknown
	}
	l.features.Set(f, false)
	l.touch()
}

// SetPayload replaces the payload and drops any computed text.
func (l *TraceLine) SetPayload(p Payload) {
	l.Payload = p
	l.touch()
}

// Text returns the text projection of the payload. It is computed once and
// cached until InvalidateText is called or the payload changes.
func (l *TraceLine) Text() string {
	if l.textState == textUnset {
		if l.Payload != nil {
			l.text = l.Payload.text()
		}
		l.textState = textComputed
	}
	return l.text
}

// SetText overrides the text projection. The override survives field updates.
func (l *TraceLine) SetText(s string) {
	l.text = s
	l.textState = textExplicit
}

// TextExplicit reports whether the text was set through SetText.
func (l *TraceLine) TextExplicit() bool { return l.textState == textExplicit }

// InvalidateText discards cached or explicit text.
func (l *TraceLine) InvalidateText() {
	l.text = ""
	l.textState = textUnset
}

func (l *TraceLine) touch() {
	if l.textState == textComputed {
		l.InvalidateText()
	}
}

// String renders the line as one dump row.
func (l *TraceLine) String() string {
	mode := "non-verbose"
	if l.Verbose() {
		mode = "verbose"
	}
	return fmt.Sprintf("%s %.4f %d %s %s %s %d %s %s %s",
		l.timeStamp.UTC().Format(timeLayout),
		l.deviceTime.Seconds(),
		l.Count,
		l.ecuID,
		l.appID,
		l.ctxID,
		l.sessionID,
		l.Type(),
		mode,
		l.Text())
}
