package line

import (
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
)

// Builder numbers the lines of one stream and merges consecutive skipped
// ranges into a single Skipped line. It is not safe for concurrent use.
type Builder struct {
	next int

	skipped    int64
	skipPos    int64
	skipReason string

	lastTime      time.Time
	lastTimeSet   bool
	lastDevice    time.Duration
	lastDeviceSet bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Skip records n unparseable bytes starting at stream offset pos. The reason
// of the first range in a run is kept.
func (b *Builder) Skip(pos int64, n int, reason string) {
	if n <= 0 {
		return
	}
	if b.skipped == 0 {
		b.skipPos = pos
		b.skipReason = reason
	}
	b.skipped += int64(n)
}

// SkippedBytes returns the size of the pending skipped run.
func (b *Builder) SkippedBytes() int64 { return b.skipped }

// Emit appends any pending Skipped line and then l to out, assigning line
// numbers in order.
func (b *Builder) Emit(out []*TraceLine, l *TraceLine) []*TraceLine {
	out = b.FlushSkipped(out)
	l.Line = b.next
	b.next++
	f := l.Features()
	b.lastTimeSet = f.Has(dlt.FeatureTimeStamp)
	b.lastTime = l.TimeStamp()
	b.lastDeviceSet = f.Has(dlt.FeatureDeviceTime)
	b.lastDevice = l.DeviceTime()
	return append(out, l)
}

// FlushSkipped appends the pending Skipped line, if any, to out.
func (b *Builder) FlushSkipped(out []*TraceLine) []*TraceLine {
	if b.skipped == 0 {
		return out
	}
	l := New(Skipped{Bytes: b.skipped, Reason: b.skipReason})
	l.Line = b.next
	l.Position = b.skipPos
	l.SetType(dlt.LogWarn)
	if b.lastTimeSet {
		l.SetTimeStamp(b.lastTime)
	}
	if b.lastDeviceSet {
		l.SetDeviceTime(b.lastDevice)
	}
	b.next++
	b.skipped = 0
	b.skipReason = ""
	return append(out, l)
}
