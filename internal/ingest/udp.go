package ingest

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// MaxDatagramSize is the largest UDP payload read in one call.
const MaxDatagramSize = 65535

// UDPSource decodes datagrams per remote address. Every sender gets its own
// mux channel; datagrams of one sender are consecutive chunks of its stream.
type UDPSource struct {
	conn   net.PacketConn
	mux    *channel.Mux
	sink   Sink
	buffer []byte
}

func ListenUDP(addr string, mux *channel.Mux, sink Sink) (*UDPSource, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	return &UDPSource{
		conn:   conn,
		mux:    mux,
		sink:   sink,
		buffer: make([]byte, MaxDatagramSize),
	}, nil
}

func (u *UDPSource) Addr() net.Addr { return u.conn.LocalAddr() }

// Run reads datagrams until ctx ends or the socket fails, then flushes every
// sender's channel. It closes the socket before returning.
func (u *UDPSource) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = u.conn.Close() })
	defer stop()
	defer u.conn.Close()

	deliveries := make(map[string]*delivery)
	var runErr error
	for {
		n, addr, err := u.conn.ReadFrom(u.buffer)
		if err != nil {
			if ctx.Err() == nil {
				runErr = fmt.Errorf("udp read: %w", err)
			}
			break
		}
		key := addr.String()
		d, ok := deliveries[key]
		if !ok {
			ch, _ := u.mux.Open(key)
			d = &delivery{ch: ch, sink: u.sink, misses: ch.Misses()}
			deliveries[key] = d
			log.Info().Str("peer", key).Msg("udp sender seen")
		}
		d.res.Bytes += int64(n)
		observability.RecordIngestBytes("udp", n)
		if err := d.deliver(d.ch.Decode(u.buffer[:n])); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(deliveries))
	for key := range deliveries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		d := deliveries[key]
		if err := d.deliver(d.ch.Flush()); err != nil {
			return err
		}
		u.mux.Remove(key)
	}
	return runErr
}
