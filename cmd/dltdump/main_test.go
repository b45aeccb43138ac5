package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/dltctl/internal/config"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/danmuck/dltctl/internal/dlt/encoder"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/testutil/testlog"
)

func writeCapture(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	w := encoder.NewWriter(&buf, dlt.FramingFile)
	for _, text := range []string{"boot", "ready"} {
		l := line.New(line.Verbose{Args: []args.Arg{args.NewString(text)}})
		l.SetAppID("APP1")
		l.SetCtxID("CTX1")
		l.SetType(dlt.LogInfo)
		if err := w.WriteLine(l); err != nil {
			t.Fatalf("write line: %v", err)
		}
	}
	buf.Write([]byte{0xDE, 0xAD})

	path := filepath.Join(dir, "capture.dlt")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	return path
}

func TestParseFlagsOverridesConfig(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dump.toml")
	if err := config.WriteTemplate(cfgPath, config.KindDump, false); err != nil {
		t.Fatalf("template: %v", err)
	}

	cfg, err := parseFlags([]string{"-c", cfgPath, "--output-format", "dlt", "--ecu", "ECU9", "a.dlt", "b.dlt"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Output.Format != config.FormatDLT || cfg.Output.EcuID != "ECU9" {
		t.Fatalf("output flags not applied: %+v", cfg.Output)
	}
	if len(cfg.Input.Paths) != 2 || cfg.Input.Paths[0] != "a.dlt" {
		t.Fatalf("positional paths not applied: %v", cfg.Input.Paths)
	}

	cfg, err = parseFlags([]string{"-i", "tcp", "-a", "127.0.0.1:3490"})
	if err != nil {
		t.Fatalf("parse tcp flags: %v", err)
	}
	if cfg.InputFraming() != dlt.FramingNetwork {
		t.Fatalf("tcp input should default to network framing, got %s", cfg.Input.Framing)
	}

	cfg, err = parseFlags([]string{"-i", "pcap", "--port=-1", "trace.pcap"})
	if err != nil {
		t.Fatalf("parse pcap flags: %v", err)
	}
	if cfg.InputFraming() != dlt.FramingNetwork || cfg.IngestPcap().Port != 0 {
		t.Fatalf("unexpected pcap input %+v", cfg.Input)
	}

	if _, err := parseFlags([]string{"-i", "udp"}); err == nil {
		t.Fatalf("expected missing addr error")
	}
}

func TestRunTextOutput(t *testing.T) {
	testlog.Start(t)
	path := writeCapture(t, t.TempDir())
	cfg, err := parseFlags([]string{path})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %q", out.String())
	}
	if !strings.HasSuffix(rows[0], "APP1 CTX1 0 log info verbose boot") {
		t.Fatalf("unexpected first row %q", rows[0])
	}
	if !strings.HasSuffix(rows[2], "Skipped: 2 bytes; End of stream") {
		t.Fatalf("unexpected last row %q", rows[2])
	}
}

func TestRunReencodesCapture(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := writeCapture(t, dir)
	outPath := filepath.Join(dir, "out.dlt")
	cfg, err := parseFlags([]string{"-F", "dlt", "-o", outPath, path})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := run(context.Background(), cfg, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	in, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(in[:len(in)-2], out) {
		t.Fatalf("re-encoded capture differs:\n in=% x\nout=% x", in, out)
	}
}
