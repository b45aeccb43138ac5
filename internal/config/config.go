package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/pelletier/go-toml/v2"
)

// Input kinds.
const (
	InputFile = "file"
	InputPcap = "pcap"
	InputTCP  = "tcp"
	InputUDP  = "udp"
)

// Output formats.
const (
	FormatText = "text"
	FormatDLT  = "dlt"
)

// DumpConfig is the dltdump configuration file.
type DumpConfig struct {
	Input     InputConfig     `toml:"input"`
	Catalogue CatalogueConfig `toml:"catalogue"`
	Output    OutputConfig    `toml:"output"`
	Status    StatusConfig    `toml:"status"`
	TCP       TCPConfig       `toml:"tcp"`
}

type InputConfig struct {
	Kind      string   `toml:"kind"`
	Framing   string   `toml:"framing"`
	Paths     []string `toml:"paths"`
	Addr      string   `toml:"addr"`
	ChunkSize int      `toml:"chunk_size"`
	// Port is the UDP destination port kept from pcap input. Zero means
	// 3490, -1 keeps every port.
	Port int `toml:"port"`
}

type CatalogueConfig struct {
	Paths []string `toml:"paths"`
}

type OutputConfig struct {
	Format string `toml:"format"`
	// Path is the output file; empty writes to stdout.
	Path string `toml:"path"`
	// Framing of re-encoded output when Format is "dlt".
	Framing string `toml:"framing"`
	EcuID   string `toml:"ecu"`
}

// StatusConfig enables the HTTP status server when Addr is set.
type StatusConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

type TCPConfig struct {
	ConnectTimeout string        `toml:"connect_timeout"`
	ReadTimeout    string        `toml:"read_timeout"`
	MaxAttempts    int           `toml:"max_attempts"`
	Backoff        BackoffConfig `toml:"backoff"`
}

type BackoffConfig struct {
	Initial    string  `toml:"initial"`
	Multiplier float64 `toml:"multiplier"`
	Max        string  `toml:"max"`
	Jitter     bool    `toml:"jitter"`
}

// ValidationError reports one invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func DefaultDumpConfig() DumpConfig {
	cfg := DumpConfig{}
	applyDumpDefaults(&cfg)
	return cfg
}

func LoadDumpConfig(path string) (DumpConfig, error) {
	var cfg DumpConfig
	if err := loadToml(path, &cfg); err != nil {
		return DumpConfig{}, err
	}
	applyDumpDefaults(&cfg)
	if err := ValidateDumpConfig(cfg); err != nil {
		return DumpConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyDumpDefaults(cfg *DumpConfig) {
	if cfg.Input.Kind == "" {
		cfg.Input.Kind = InputFile
	}
	if cfg.Input.Framing == "" {
		if cfg.Input.Kind == InputFile {
			cfg.Input.Framing = "file"
		} else {
			cfg.Input.Framing = "network"
		}
	}
	if cfg.Input.ChunkSize == 0 {
		cfg.Input.ChunkSize = 64 * 1024
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatText
	}
	if cfg.Output.Framing == "" {
		cfg.Output.Framing = "file"
	}
	if cfg.TCP.ConnectTimeout == "" {
		cfg.TCP.ConnectTimeout = "5s"
	}
	if cfg.TCP.Backoff.Initial == "" {
		cfg.TCP.Backoff.Initial = "250ms"
	}
	if cfg.TCP.Backoff.Max == "" {
		cfg.TCP.Backoff.Max = "5s"
	}
	if cfg.TCP.Backoff.Multiplier == 0 {
		cfg.TCP.Backoff.Multiplier = 2.0
	}
}

func ValidateDumpConfig(cfg DumpConfig) error {
	switch strings.TrimSpace(cfg.Input.Kind) {
	case InputFile, InputPcap:
		if len(cfg.Input.Paths) == 0 {
			return &ValidationError{Field: "input.paths", Reason: "required for " + cfg.Input.Kind + " input"}
		}
	case InputTCP, InputUDP:
		if strings.TrimSpace(cfg.Input.Addr) == "" {
			return &ValidationError{Field: "input.addr", Reason: "required for " + cfg.Input.Kind + " input"}
		}
	default:
		return &ValidationError{Field: "input.kind", Reason: fmt.Sprintf("unknown kind %q", cfg.Input.Kind)}
	}
	if _, err := dlt.ParseFraming(cfg.Input.Framing); err != nil {
		return &ValidationError{Field: "input.framing", Reason: err.Error()}
	}
	if cfg.Input.Kind == InputPcap && cfg.Input.Framing != "network" {
		return &ValidationError{Field: "input.framing", Reason: "pcap input carries network framed records"}
	}
	if cfg.Input.Port < -1 || cfg.Input.Port > 65535 {
		return &ValidationError{Field: "input.port", Reason: fmt.Sprintf("invalid port %d", cfg.Input.Port)}
	}
	if cfg.Input.ChunkSize < 0 {
		return &ValidationError{Field: "input.chunk_size", Reason: "must not be negative"}
	}
	switch cfg.Output.Format {
	case FormatText, FormatDLT:
	default:
		return &ValidationError{Field: "output.format", Reason: fmt.Sprintf("unknown format %q", cfg.Output.Format)}
	}
	if _, err := dlt.ParseFraming(cfg.Output.Framing); err != nil {
		return &ValidationError{Field: "output.framing", Reason: err.Error()}
	}
	if len(cfg.Output.EcuID) > dlt.IDLen {
		return &ValidationError{Field: "output.ecu", Reason: "longer than 4 characters"}
	}
	durations := map[string]string{
		"tcp.connect_timeout": cfg.TCP.ConnectTimeout,
		"tcp.read_timeout":    cfg.TCP.ReadTimeout,
		"tcp.backoff.initial": cfg.TCP.Backoff.Initial,
		"tcp.backoff.max":     cfg.TCP.Backoff.Max,
	}
	for field, v := range durations {
		if _, err := parseDuration(v); err != nil {
			return &ValidationError{Field: field, Reason: err.Error()}
		}
	}
	if cfg.TCP.MaxAttempts < 0 {
		return &ValidationError{Field: "tcp.max_attempts", Reason: "must not be negative"}
	}
	if cfg.TCP.Backoff.Multiplier < 1.0 {
		return &ValidationError{Field: "tcp.backoff.multiplier", Reason: "must be at least 1"}
	}
	return nil
}

// parseDuration accepts an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
