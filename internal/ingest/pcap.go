package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/observability"
	"github.com/google/gopacket"
	"github.com/google/gopacket/ip4defrag"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog/log"
)

// DefaultDLTPort is the UDP port DLT loggers send to.
const DefaultDLTPort = 3490

var ErrNotPcap = errors.New("not a pcap or pcapng capture")

var (
	pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}
	pcapMagics  = [][]byte{
		{0xD4, 0xC3, 0xB2, 0xA1},
		{0xA1, 0xB2, 0xC3, 0xD4},
		{0x4D, 0x3C, 0xB2, 0xA1},
		{0xA1, 0xB2, 0x3C, 0x4D},
	}
)

// PcapConfig selects the DLT traffic of a capture.
type PcapConfig struct {
	// Port filters on the UDP destination port. Zero accepts every port.
	Port int
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// PcapSource decodes the UDP payloads of a pcap or pcapng capture. Every
// connection, keyed by source and destination endpoint, has its own channel
// and its datagrams are consecutive chunks of one network framed stream.
// Lines are stamped with the capture time of the packet that completed them.
type PcapSource struct {
	reader   packetReader
	linkType func(gopacket.CaptureInfo) layers.LinkType
	format   string
	mux      *channel.Mux
	sink     Sink
	cfg      PcapConfig
	defrag   *ip4defrag.IPv4Defragmenter
}

// NewPcapSource reads the capture header from r. The mux must use network
// framing.
func NewPcapSource(r io.Reader, mux *channel.Mux, sink Sink, cfg PcapConfig) (*PcapSource, error) {
	if mux.Framing() != dlt.FramingNetwork {
		return nil, fmt.Errorf("pcap source needs network framing, mux uses %s", mux.Framing())
	}
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	src := &PcapSource{
		mux:    mux,
		sink:   sink,
		cfg:    cfg,
		defrag: ip4defrag.NewIPv4Defragmenter(),
	}
	switch {
	case bytes.Equal(head, pcapngMagic):
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("pcapng header: %w", err)
		}
		src.reader = ng
		src.format = "pcapng"
		src.linkType = func(ci gopacket.CaptureInfo) layers.LinkType {
			if intf, err := ng.Interface(ci.InterfaceIndex); err == nil {
				return intf.LinkType
			}
			return ng.LinkType()
		}
	case isPcapMagic(head):
		legacy, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("pcap header: %w", err)
		}
		src.reader = legacy
		src.format = "pcap"
		src.linkType = func(gopacket.CaptureInfo) layers.LinkType { return legacy.LinkType() }
	default:
		return nil, ErrNotPcap
	}
	return src, nil
}

func isPcapMagic(head []byte) bool {
	for _, m := range pcapMagics {
		if bytes.Equal(head, m) {
			return true
		}
	}
	return false
}

func (p *PcapSource) Format() string { return p.format }

type pcapConn struct {
	*delivery
	last time.Time
}

// Run decodes packets until the capture ends, a read fails or ctx ends, then
// flushes every connection in key order. The result sums all connections;
// Bytes counts UDP payload bytes.
func (p *PcapSource) Run(ctx context.Context) (Result, error) {
	conns := make(map[string]*pcapConn)
	var readErr error
	var packets uint64
	for ctx.Err() == nil {
		data, ci, err := p.reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("%s read: %w", p.format, err)
			break
		}
		packets++
		key, payload, ok := p.datagram(data, ci)
		if !ok {
			continue
		}
		c, ok := conns[key]
		if !ok {
			ch, _ := p.mux.Open(key)
			c = &pcapConn{delivery: &delivery{ch: ch, sink: p.sink, misses: ch.Misses()}}
			conns[key] = c
			log.Info().Str("connection", key).Msg("pcap connection seen")
		}
		c.last = ci.Timestamp
		c.res.Bytes += int64(len(payload))
		observability.RecordIngestBytes("pcap", len(payload))
		if err := c.deliver(stamp(c.ch.Decode(payload), ci.Timestamp)); err != nil {
			return sum(conns), err
		}
	}

	keys := make([]string, 0, len(conns))
	for key := range conns {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c := conns[key]
		if err := c.deliver(stamp(c.ch.Flush(), c.last)); err != nil {
			return sum(conns), err
		}
		p.mux.Remove(key)
	}
	log.Debug().Str("format", p.format).Uint64("packets", packets).Int("connections", len(conns)).Msg("capture read")
	return sum(conns), readErr
}

// datagram locates the UDP payload of an IPv4 packet, reassembling fragments.
// It reports false for packets that carry no DLT payload yet.
func (p *PcapSource) datagram(data []byte, ci gopacket.CaptureInfo) (string, []byte, bool) {
	pkt := gopacket.NewPacket(data, p.linkType(ci), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok || ip.Protocol != layers.IPProtocolUDP {
		return "", nil, false
	}
	whole, err := p.defrag.DefragIPv4WithTimestamp(ip, ci.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("src", ip.SrcIP.String()).Uint16("id", ip.Id).Msg("ip fragment discarded")
		return "", nil, false
	}
	if whole == nil {
		return "", nil, false
	}
	udp := &layers.UDP{}
	if err := udp.DecodeFromBytes(whole.Payload, gopacket.NilDecodeFeedback); err != nil {
		log.Debug().Err(err).Msg("udp header unreadable")
		return "", nil, false
	}
	if p.cfg.Port != 0 && int(udp.DstPort) != p.cfg.Port {
		return "", nil, false
	}
	key := fmt.Sprintf("%s:%d->%s:%d", whole.SrcIP, int(udp.SrcPort), whole.DstIP, int(udp.DstPort))
	return key, udp.Payload, len(udp.Payload) > 0
}

func stamp(lines []*line.TraceLine, ts time.Time) []*line.TraceLine {
	for _, l := range lines {
		if !l.Features().Has(dlt.FeatureTimeStamp) {
			l.SetTimeStamp(ts)
		}
	}
	return lines
}

func sum(conns map[string]*pcapConn) Result {
	var total Result
	for _, c := range conns {
		total.Bytes += c.res.Bytes
		total.Lines += c.res.Lines
		total.SkippedBytes += c.res.SkippedBytes
		total.Misses += c.res.Misses
	}
	return total
}

// DecodePcap decodes one capture file, which may be gzip or zstd compressed.
func DecodePcap(ctx context.Context, path string, mux *channel.Mux, sink Sink, cfg PcapConfig) (Result, error) {
	r, err := OpenFile(path)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	src, err := NewPcapSource(r, mux, sink, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("open capture (%s): %w", path, err)
	}
	res, err := src.Run(ctx)
	log.Info().
		Str("path", path).
		Str("format", src.Format()).
		Int64("bytes", res.Bytes).
		Uint64("lines", res.Lines).
		Int64("skipped_bytes", res.SkippedBytes).
		Uint64("catalogue_misses", res.Misses).
		Msg("capture decoded")
	return res, err
}
