package channel

import (
	"sync/atomic"
	"time"

	"github.com/danmuck/dltctl/internal/dlt/decoder"
	"github.com/danmuck/dltctl/internal/dlt/line"
)

// Stats is a point in time view of one channel.
type Stats struct {
	Key          string    `json:"key"`
	Framing      string    `json:"framing"`
	Opened       time.Time `json:"opened"`
	LastSeen     time.Time `json:"last_seen"`
	Bytes        int64     `json:"bytes"`
	Lines        uint64    `json:"lines"`
	SkippedBytes int64     `json:"skipped_bytes"`
	Misses       uint64    `json:"catalogue_misses"`
	Closed       bool      `json:"closed"`
}

// Channel owns the decoder and stream position of one byte stream. Stats
// may be read from any goroutine.
type Channel struct {
	key    string
	opened time.Time
	dec    *decoder.Decoder
	pos    int64

	bytes    atomic.Int64
	lines    atomic.Uint64
	skipped  atomic.Int64
	misses   atomic.Uint64
	lastSeen atomic.Int64
	closed   atomic.Bool
}

func newChannel(key string, dec *decoder.Decoder, now time.Time) *Channel {
	c := &Channel{key: key, opened: now, dec: dec}
	c.lastSeen.Store(now.UnixNano())
	return c
}

func (c *Channel) Key() string { return c.key }

// Position is the stream offset of the next byte Decode expects.
func (c *Channel) Position() int64 { return c.pos }

// Decode feeds the next chunk of the stream and returns completed lines.
func (c *Channel) Decode(chunk []byte) []*line.TraceLine {
	out := c.dec.Decode(chunk, c.pos)
	c.pos += int64(len(chunk))
	c.bytes.Add(int64(len(chunk)))
	c.lastSeen.Store(time.Now().UnixNano())
	c.account(out)
	return out
}

// Flush ends the stream. Later calls to Decode return nothing.
func (c *Channel) Flush() []*line.TraceLine {
	out := c.dec.Flush()
	c.closed.Store(true)
	c.account(out)
	return out
}

func (c *Channel) account(out []*line.TraceLine) {
	for _, l := range out {
		if s, ok := l.Payload.(line.Skipped); ok {
			c.skipped.Add(s.Bytes)
		}
	}
	c.lines.Add(uint64(len(out)))
	c.misses.Store(c.dec.Misses())
}

// Misses is the decoder's running count of catalogue misses.
func (c *Channel) Misses() uint64 { return c.misses.Load() }

func (c *Channel) Stats() Stats {
	return Stats{
		Key:          c.key,
		Framing:      c.dec.Framing().String(),
		Opened:       c.opened,
		LastSeen:     time.Unix(0, c.lastSeen.Load()),
		Bytes:        c.bytes.Load(),
		Lines:        c.lines.Load(),
		SkippedBytes: c.skipped.Load(),
		Misses:       c.misses.Load(),
		Closed:       c.closed.Load(),
	}
}
