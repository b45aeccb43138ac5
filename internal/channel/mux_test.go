package channel

import (
	"sync"
	"testing"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/encoder"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/testutil/testlog"
)

func record(t *testing.T, text string) []byte {
	t.Helper()
	l := line.New(line.Verbose{Args: []args.Arg{args.NewString(text)}})
	l.SetAppID("APP1")
	l.SetCtxID("CTX1")
	l.SetType(dlt.LogInfo)
	buf := make([]byte, 256)
	n, err := encoder.New(dlt.FramingNetwork).Encode(buf, l)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf[:n]
}

func TestOpenReusesChannel(t *testing.T) {
	testlog.Start(t)
	m := NewMux(dlt.FramingNetwork)
	a, created := m.Open("10.0.0.1:3490")
	if !created {
		t.Fatalf("expected new channel")
	}
	b, created := m.Open(" 10.0.0.1:3490 ")
	if created || a != b {
		t.Fatalf("expected existing channel")
	}
	if m.Len() != 1 {
		t.Fatalf("unexpected len=%d", m.Len())
	}
	if _, ok := m.Remove("10.0.0.1:3490"); !ok {
		t.Fatalf("expected channel removal")
	}
	if _, ok := m.Get("10.0.0.1:3490"); ok {
		t.Fatalf("channel should be removed")
	}
}

func TestChannelsKeepIndependentState(t *testing.T) {
	testlog.Start(t)
	m := NewMux(dlt.FramingNetwork)
	rec := record(t, "hello")

	a, _ := m.Open("a")
	b, _ := m.Open("b")
	if out := a.Decode(rec[:5]); len(out) != 0 {
		t.Fatalf("partial record produced %d lines", len(out))
	}
	out := b.Decode(rec)
	if len(out) != 1 || out[0].Text() != "hello" || out[0].Position != 0 {
		t.Fatalf("unexpected lines on b: %v", out)
	}
	out = a.Decode(rec[5:])
	if len(out) != 1 || out[0].Text() != "hello" || out[0].Position != 0 {
		t.Fatalf("unexpected lines on a: %v", out)
	}
	if a.Position() != int64(len(rec)) {
		t.Fatalf("position=%d", a.Position())
	}

	a.Decode([]byte{0x00, 0x01})
	tail := a.Flush()
	if len(tail) != 1 || tail[0].Kind() != line.KindSkipped {
		t.Fatalf("expected skipped tail, got %v", tail)
	}

	stats := m.List()
	if len(stats) != 2 || stats[0].Key != "a" || stats[1].Key != "b" {
		t.Fatalf("unexpected stats order: %+v", stats)
	}
	if stats[0].Lines != 2 || stats[0].SkippedBytes != 2 || !stats[0].Closed {
		t.Fatalf("unexpected stats for a: %+v", stats[0])
	}
	if stats[1].Bytes != int64(len(rec)) || stats[1].Framing != "network" || stats[1].Closed {
		t.Fatalf("unexpected stats for b: %+v", stats[1])
	}
}

func TestConcurrentChannels(t *testing.T) {
	testlog.Start(t)
	m := NewMux(dlt.FramingNetwork)
	rec := record(t, "x")
	keys := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			c, _ := m.Open(key)
			for i := 0; i < 50; i++ {
				c.Decode(rec)
			}
		}(key)
	}
	wg.Wait()

	for _, s := range m.List() {
		if s.Lines != 50 {
			t.Fatalf("channel %s lines=%d", s.Key, s.Lines)
		}
	}
}
