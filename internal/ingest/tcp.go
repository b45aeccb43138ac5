package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/observability"
	"github.com/rs/zerolog/log"
)

var ErrGaveUp = errors.New("ingest: reconnect attempts exhausted")

// TCPConfig controls the TCP client source.
type TCPConfig struct {
	Addr           string
	ConnectTimeout time.Duration
	// ReadTimeout drops a connection that stays silent this long. Zero waits
	// forever.
	ReadTimeout time.Duration
	Backoff     BackoffConfig
	// MaxAttempts bounds consecutive failed connects. Zero retries forever.
	MaxAttempts int
	ChunkSize   int
}

func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		ConnectTimeout: 5 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// TCPSource connects to a DLT server, typically a dlt-daemon on port 3490,
// and decodes what it sends with network framing. Each connection gets its
// own mux channel so a reconnect never resumes a half record.
type TCPSource struct {
	cfg  TCPConfig
	mux  *channel.Mux
	sink Sink
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	rng  *rand.Rand
	// sleep waits for d or until ctx ends.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTCPSource(cfg TCPConfig, mux *channel.Mux, sink Sink) *TCPSource {
	d := &net.Dialer{Timeout: cfg.ConnectTimeout}
	return &TCPSource{
		cfg:   cfg,
		mux:   mux,
		sink:  sink,
		dial:  d.DialContext,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepContext,
	}
}

// Run connects, decodes and reconnects until ctx ends, the sink fails or
// MaxAttempts consecutive connects fail. It returns nil when ctx ends.
func (s *TCPSource) Run(ctx context.Context) error {
	label := "tcp://" + s.cfg.Addr
	failures := 0
	for session := 1; ; session++ {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := s.dial(ctx, "tcp", s.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if s.cfg.MaxAttempts > 0 && failures >= s.cfg.MaxAttempts {
				return fmt.Errorf("%w: %s after %d attempts: %v", ErrGaveUp, s.cfg.Addr, failures, err)
			}
			if err := s.retry(ctx, label, failures, err); err != nil {
				return nil
			}
			continue
		}
		failures = 0

		res, err := s.serve(ctx, conn, session)
		if errors.Is(err, errSink) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().
			Str("addr", s.cfg.Addr).
			Int("session", session).
			Int64("bytes", res.Bytes).
			Err(err).
			Msg("tcp source disconnected")
		if err := s.retry(ctx, label, 1, err); err != nil {
			return nil
		}
	}
}

var errSink = errors.New("sink failed")

func (s *TCPSource) serve(ctx context.Context, conn net.Conn, session int) (Result, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	key := s.cfg.Addr + "#" + strconv.Itoa(session)
	ch, _ := s.mux.Open(key)
	defer s.mux.Remove(key)
	log.Info().Str("addr", s.cfg.Addr).Str("channel", key).Msg("tcp source connected")

	r := &deadlineReader{conn: conn, timeout: s.cfg.ReadTimeout}
	sink := SinkFunc(func(l *line.TraceLine) error {
		if err := s.sink.WriteLine(l); err != nil {
			return fmt.Errorf("%w: %w", errSink, err)
		}
		return nil
	})
	return Pump(ctx, r, ch, sink, PumpConfig{ChunkSize: s.cfg.ChunkSize, Source: "tcp"})
}

func (s *TCPSource) retry(ctx context.Context, label string, attempt int, cause error) error {
	delay := NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
	log.Debug().Str("addr", s.cfg.Addr).Int("attempt", attempt).Dur("delay", delay).Err(cause).Msg("tcp source retrying")
	observability.RecordReconnect(label)
	return s.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// deadlineReader arms a read deadline before every read.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}
