package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/config"
	"github.com/danmuck/dltctl/internal/dlt/catalogue"
	"github.com/danmuck/dltctl/internal/dlt/decoder"
	"github.com/danmuck/dltctl/internal/dlt/encoder"
	"github.com/danmuck/dltctl/internal/dlt/line"
	"github.com/danmuck/dltctl/internal/ingest"
	"github.com/danmuck/dltctl/internal/server"
	"github.com/rs/zerolog/log"
)

type flusher interface {
	Flush() error
}

func run(ctx context.Context, cfg config.DumpConfig, stdout io.Writer) error {
	var opts []decoder.Option
	if len(cfg.Catalogue.Paths) > 0 {
		cat, warnings, err := catalogue.Load(cfg.Catalogue.Paths...)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			log.Warn().Str("path", w.Path).Msg(w.Reason)
		}
		log.Info().Int("frames", cat.Len()).Msg("catalogue loaded")
		opts = append(opts, decoder.WithFrames(cat))
	}
	mux := channel.NewMux(cfg.InputFraming(), opts...)

	out := stdout
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	sink, err := newSink(cfg, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	var status *server.Server
	if cfg.Status.Addr != "" {
		status = server.New("dltdump", cfg.Status.Addr, mux, cfg.Status.CorsOrigins)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := status.Serve(ctx); err != nil {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	runErr := ingestAll(ctx, cfg, mux, sink, status)
	cancel()
	wg.Wait()
	if f, ok := sink.(flusher); ok {
		if err := f.Flush(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func newSink(cfg config.DumpConfig, out io.Writer) (ingest.Sink, error) {
	switch cfg.Output.Format {
	case config.FormatText:
		return ingest.NewTextSink(out), nil
	case config.FormatDLT:
		var opts []encoder.Option
		if cfg.Output.EcuID != "" {
			opts = append(opts, encoder.WithStorageEcuID(cfg.Output.EcuID))
		}
		return &dltSink{w: encoder.NewWriter(out, cfg.OutputFraming(), opts...)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}
}

// dltSink re-encodes decoded lines. Skipped lines have no wire form and are
// dropped.
type dltSink struct {
	w *encoder.Writer
}

func (s *dltSink) WriteLine(l *line.TraceLine) error {
	if l.Kind() == line.KindSkipped {
		return nil
	}
	return s.w.WriteLine(l)
}

func ingestAll(ctx context.Context, cfg config.DumpConfig, mux *channel.Mux, sink ingest.Sink, status *server.Server) error {
	ready := func() {
		if status != nil {
			status.SetReady(true)
		}
	}
	switch cfg.Input.Kind {
	case config.InputFile:
		ready()
		for _, path := range cfg.Input.Paths {
			if _, err := ingest.DecodeFile(ctx, path, mux, sink, cfg.Input.ChunkSize); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	case config.InputPcap:
		ready()
		for _, path := range cfg.Input.Paths {
			if _, err := ingest.DecodePcap(ctx, path, mux, sink, cfg.IngestPcap()); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	case config.InputTCP:
		ready()
		return ingest.NewTCPSource(cfg.IngestTCP(), mux, sink).Run(ctx)
	case config.InputUDP:
		src, err := ingest.ListenUDP(cfg.Input.Addr, mux, sink)
		if err != nil {
			return err
		}
		log.Info().Str("addr", src.Addr().String()).Msg("udp source listening")
		ready()
		return src.Run(ctx)
	default:
		return fmt.Errorf("unknown input kind %q", cfg.Input.Kind)
	}
}
