package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/dltctl/internal/config"
	"github.com/danmuck/dltctl/internal/observability"
	"github.com/spf13/pflag"
)

func main() {
	// Logs go to stderr; stdout carries decoded output.
	observability.InitLogger("dltdump")

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dltdump: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "dltdump: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags loads the optional config file and applies flags on top of it.
// Positional arguments replace the configured input paths.
func parseFlags(argv []string) (config.DumpConfig, error) {
	fs := pflag.NewFlagSet("dltdump", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "dltdump config file")
	kind := fs.StringP("input", "i", "", "input kind: file|pcap|tcp|udp")
	framing := fs.StringP("framing", "f", "", "input framing: file|serial|network")
	addr := fs.StringP("addr", "a", "", "tcp server or udp listen address")
	chunk := fs.Int("chunk-size", 0, "read size in bytes")
	port := fs.Int("port", 0, "udp destination port of pcap input (default 3490, -1 any)")
	catalogues := fs.StringSlice("catalogue", nil, "frame catalogue file or directory (repeatable)")
	format := fs.StringP("output-format", "F", "", "output format: text|dlt")
	output := fs.StringP("output", "o", "", "output file (default stdout)")
	outFraming := fs.String("output-framing", "", "framing of dlt output")
	ecu := fs.String("ecu", "", "storage header ECU id of dlt output")
	statusAddr := fs.String("status-addr", "", "serve health, metrics and channel stats on this address")
	maxAttempts := fs.Int("max-attempts", 0, "consecutive tcp connect failures before giving up (0 retries forever)")
	if err := fs.Parse(argv); err != nil {
		return config.DumpConfig{}, err
	}

	cfg := config.DefaultDumpConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadDumpConfig(*configPath)
		if err != nil {
			return config.DumpConfig{}, err
		}
	}

	if fs.Changed("input") {
		cfg.Input.Kind = *kind
		if !fs.Changed("framing") && *configPath == "" && *kind != config.InputFile {
			cfg.Input.Framing = "network"
		}
	}
	if fs.Changed("framing") {
		cfg.Input.Framing = *framing
	}
	if fs.Changed("addr") {
		cfg.Input.Addr = *addr
	}
	if fs.Changed("chunk-size") {
		cfg.Input.ChunkSize = *chunk
	}
	if fs.Changed("port") {
		cfg.Input.Port = *port
	}
	if fs.Changed("catalogue") {
		cfg.Catalogue.Paths = *catalogues
	}
	if fs.Changed("output-format") {
		cfg.Output.Format = *format
	}
	if fs.Changed("output") {
		cfg.Output.Path = *output
	}
	if fs.Changed("output-framing") {
		cfg.Output.Framing = *outFraming
	}
	if fs.Changed("ecu") {
		cfg.Output.EcuID = *ecu
	}
	if fs.Changed("status-addr") {
		cfg.Status.Addr = *statusAddr
	}
	if fs.Changed("max-attempts") {
		cfg.TCP.MaxAttempts = *maxAttempts
	}
	if fs.NArg() > 0 {
		cfg.Input.Paths = fs.Args()
	}

	if err := config.ValidateDumpConfig(cfg); err != nil {
		return config.DumpConfig{}, err
	}
	return cfg, nil
}
