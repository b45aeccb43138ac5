package ingest

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/klauspost/compress/gzip"
)

var (
	loggerA = net.IPv4(10, 0, 0, 1)
	loggerB = net.IPv4(10, 0, 0, 2)
	viewer  = net.IPv4(10, 0, 0, 9)
)

type packet struct {
	at   time.Time
	data []byte
}

func ethernet(t *testing.T, ip *layers.IPv4, rest ...gopacket.SerializableLayer) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 9},
		EthernetType: layers.EthernetTypeIPv4,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	all := append([]gopacket.SerializableLayer{eth, ip}, rest...)
	if err := gopacket.SerializeLayers(buf, opts, all...); err != nil {
		t.Fatalf("serialize packet: %v", err)
	}
	return buf.Bytes()
}

func udpPacket(t *testing.T, src net.IP, sport, dport uint16, payload []byte) []byte {
	t.Helper()
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: src, DstIP: viewer}
	udp := &layers.UDP{SrcPort: layers.UDPPort(sport), DstPort: layers.UDPPort(dport)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("udp checksum layer: %v", err)
	}
	return ethernet(t, ip, udp, gopacket.Payload(payload))
}

// fragments splits one UDP datagram into two IPv4 fragments at split bytes.
func fragments(t *testing.T, src net.IP, payload []byte, split int) [][]byte {
	t.Helper()
	seg := gopacket.NewSerializeBuffer()
	udp := &layers.UDP{SrcPort: 4000, DstPort: DefaultDLTPort}
	if err := gopacket.SerializeLayers(seg, gopacket.SerializeOptions{FixLengths: true}, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize udp: %v", err)
	}
	raw := seg.Bytes()
	first := &layers.IPv4{Version: 4, TTL: 64, Id: 7, Flags: layers.IPv4MoreFragments, Protocol: layers.IPProtocolUDP, SrcIP: src, DstIP: viewer}
	second := &layers.IPv4{Version: 4, TTL: 64, Id: 7, FragOffset: uint16(split / 8), Protocol: layers.IPProtocolUDP, SrcIP: src, DstIP: viewer}
	return [][]byte{
		ethernet(t, first, gopacket.Payload(raw[:split])),
		ethernet(t, second, gopacket.Payload(raw[split:])),
	}
}

func writePcap(t *testing.T, packets []packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("pcap header: %v", err)
	}
	for _, p := range packets {
		ci := gopacket.CaptureInfo{Timestamp: p.at, CaptureLength: len(p.data), Length: len(p.data)}
		if err := w.WritePacket(ci, p.data); err != nil {
			t.Fatalf("pcap packet: %v", err)
		}
	}
	return buf.Bytes()
}

func writePcapNg(t *testing.T, packets []packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := pcapgo.NewNgWriter(&buf, layers.LinkTypeEthernet)
	if err != nil {
		t.Fatalf("pcapng header: %v", err)
	}
	for _, p := range packets {
		ci := gopacket.CaptureInfo{Timestamp: p.at, CaptureLength: len(p.data), Length: len(p.data)}
		if err := w.WritePacket(ci, p.data); err != nil {
			t.Fatalf("pcapng packet: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("pcapng flush: %v", err)
	}
	return buf.Bytes()
}

// interleaved has logger A's record split around logger B's record, plus a
// datagram to another port.
func interleaved(t *testing.T, start time.Time) []packet {
	a := stream(t, dlt.FramingNetwork, "from-a")
	b := stream(t, dlt.FramingNetwork, "from-b")
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }
	return []packet{
		{at(0), udpPacket(t, loggerA, 4000, DefaultDLTPort, a[:5])},
		{at(1), udpPacket(t, loggerB, 4000, DefaultDLTPort, b)},
		{at(2), udpPacket(t, loggerA, 4000, 53, stream(t, dlt.FramingNetwork, "other-port"))},
		{at(3), udpPacket(t, loggerA, 4000, DefaultDLTPort, a[5:])},
	}
}

func TestPcapSourceSeparatesConnections(t *testing.T) {
	testlog.Start(t)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		format string
		encode func(*testing.T, []packet) []byte
	}{
		{"pcap", writePcap},
		{"pcapng", writePcapNg},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			mux := channel.NewMux(dlt.FramingNetwork)
			sink := &Collector{}
			src, err := NewPcapSource(bytes.NewReader(tc.encode(t, interleaved(t, start))), mux, sink, PcapConfig{Port: DefaultDLTPort})
			if err != nil {
				t.Fatalf("new source: %v", err)
			}
			if src.Format() != tc.format {
				t.Fatalf("format = %q want %q", src.Format(), tc.format)
			}
			res, err := src.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff([]string{"from-b", "from-a"}, texts(sink.Lines)); diff != "" {
				t.Fatalf("lines mismatch (-want +got):\n%s", diff)
			}
			if got := sink.Lines[0].TimeStamp(); !got.Equal(start.Add(time.Millisecond)) {
				t.Fatalf("from-b stamped %v", got)
			}
			if got := sink.Lines[1].TimeStamp(); !got.Equal(start.Add(3 * time.Millisecond)) {
				t.Fatalf("from-a stamped %v", got)
			}
			if res.Lines != 2 || res.SkippedBytes != 0 {
				t.Fatalf("unexpected result %+v", res)
			}
			if mux.Len() != 0 {
				t.Fatalf("channels left after run: %d", mux.Len())
			}
		})
	}
}

func TestPcapSourceReassemblesFragments(t *testing.T) {
	testlog.Start(t)
	long := strings.Repeat("fragmented ", 128)
	frags := fragments(t, loggerA, stream(t, dlt.FramingNetwork, long), 800)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	capture := writePcap(t, []packet{{start, frags[0]}, {start.Add(time.Millisecond), frags[1]}})

	sink := &Collector{}
	src, err := NewPcapSource(bytes.NewReader(capture), channel.NewMux(dlt.FramingNetwork), sink, PcapConfig{Port: DefaultDLTPort})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if _, err := src.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.Lines) != 1 || sink.Lines[0].Text() != long {
		t.Fatalf("expected one reassembled line, got %d lines", len(sink.Lines))
	}
}

func TestNewPcapSourceRejects(t *testing.T) {
	testlog.Start(t)
	_, err := NewPcapSource(bytes.NewReader(stream(t, dlt.FramingFile, "x")), channel.NewMux(dlt.FramingNetwork), &Collector{}, PcapConfig{})
	if !errors.Is(err, ErrNotPcap) {
		t.Fatalf("expected ErrNotPcap, got %v", err)
	}
	capture := writePcap(t, nil)
	if _, err := NewPcapSource(bytes.NewReader(capture), channel.NewMux(dlt.FramingFile), &Collector{}, PcapConfig{}); err == nil {
		t.Fatalf("expected framing error")
	}
}

func TestDecodePcapCompressedWithoutPortFilter(t *testing.T) {
	testlog.Start(t)
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(writePcap(t, interleaved(t, time.Unix(1700000000, 0).UTC()))); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	path := filepath.Join(t.TempDir(), "trace.pcap.gz")
	if err := os.WriteFile(path, gz.Bytes(), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	sink := &Collector{}
	res, err := DecodePcap(context.Background(), path, channel.NewMux(dlt.FramingNetwork), sink, PcapConfig{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"from-b", "other-port", "from-a"}, texts(sink.Lines)); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if res.Lines != 3 {
		t.Fatalf("result lines = %d", res.Lines)
	}
}
