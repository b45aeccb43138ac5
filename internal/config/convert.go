package config

import (
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/ingest"
)

// InputFraming returns the parsed input framing of a validated config.
func (c DumpConfig) InputFraming() dlt.Framing {
	f, _ := dlt.ParseFraming(c.Input.Framing)
	return f
}

// OutputFraming returns the parsed output framing of a validated config.
func (c DumpConfig) OutputFraming() dlt.Framing {
	f, _ := dlt.ParseFraming(c.Output.Framing)
	return f
}

// IngestPcap converts the pcap port filter for ingest.NewPcapSource.
func (c DumpConfig) IngestPcap() ingest.PcapConfig {
	switch {
	case c.Input.Port < 0:
		return ingest.PcapConfig{}
	case c.Input.Port == 0:
		return ingest.PcapConfig{Port: ingest.DefaultDLTPort}
	}
	return ingest.PcapConfig{Port: c.Input.Port}
}

// IngestTCP converts the [tcp] section for ingest.NewTCPSource.
func (c DumpConfig) IngestTCP() ingest.TCPConfig {
	out := ingest.DefaultTCPConfig()
	out.Addr = c.Input.Addr
	out.ChunkSize = c.Input.ChunkSize
	out.MaxAttempts = c.TCP.MaxAttempts
	if d, err := parseDuration(c.TCP.ConnectTimeout); err == nil {
		out.ConnectTimeout = d
	}
	if d, err := parseDuration(c.TCP.ReadTimeout); err == nil {
		out.ReadTimeout = d
	}
	if d, err := parseDuration(c.TCP.Backoff.Initial); err == nil {
		out.Backoff.InitialDelay = d
	}
	if d, err := parseDuration(c.TCP.Backoff.Max); err == nil {
		out.Backoff.MaxDelay = d
	}
	out.Backoff.Multiplier = c.TCP.Backoff.Multiplier
	out.Backoff.Jitter = c.TCP.Backoff.Jitter
	return out
}
