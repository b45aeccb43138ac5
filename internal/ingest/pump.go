package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/observability"
)

// DefaultChunkSize is the read size used when PumpConfig leaves it unset.
const DefaultChunkSize = 64 * 1024

type PumpConfig struct {
	ChunkSize int
	// Source labels ingest metrics, e.g. "file" or "tcp".
	Source string
}

// Result summarizes one pumped stream.
type Result struct {
	Bytes        int64
	Lines        uint64
	SkippedBytes int64
	Misses       uint64
}

// Pump reads r in chunks, decodes them on ch and writes every line to sink.
// The channel is flushed when r reports io.EOF, fails or ctx ends. Only sink
// failures and read errors other than io.EOF are returned.
func Pump(ctx context.Context, r io.Reader, ch *channel.Channel, sink Sink, cfg PumpConfig) (Result, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	d := delivery{ch: ch, sink: sink, misses: ch.Misses()}
	buf := make([]byte, size)
	var readErr error
	for {
		if err := ctx.Err(); err != nil {
			break
		}
		n, err := r.Read(buf)
		if n > 0 {
			d.res.Bytes += int64(n)
			observability.RecordIngestBytes(cfg.Source, n)
			if err := d.deliver(ch.Decode(buf[:n])); err != nil {
				return d.res, err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("read %s: %w", ch.Key(), err)
			break
		}
	}
	if err := d.deliver(ch.Flush()); err != nil {
		return d.res, err
	}
	return d.res, readErr
}

// delivery forwards lines to a sink and keeps the per-channel metrics.
type delivery struct {
	ch     *channel.Channel
	sink   Sink
	misses uint64
	res    Result
}

func (d *delivery) deliver(lines []*line.TraceLine) error {
	key := d.ch.Key()
	for _, l := range lines {
		kind := l.Kind()
		observability.RecordLine(key, kind.String())
		if s, ok := l.Payload.(line.Skipped); ok {
			observability.RecordSkipped(key, s.Bytes)
			d.res.SkippedBytes += s.Bytes
		}
		if err := d.sink.WriteLine(l); err != nil {
			return fmt.Errorf("sink %s: %w", key, err)
		}
		d.res.Lines++
	}
	if m := d.ch.Misses(); m > d.misses {
		observability.RecordCatalogueMisses(key, m-d.misses)
		d.res.Misses += m - d.misses
		d.misses = m
	}
	return nil
}
