package main

import (
	"fmt"
	"os"

	"github.com/danmuck/dltctl/internal/config"
	"github.com/danmuck/dltctl/internal/dlt/encoder"
	"github.com/danmuck/dltctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	observability.InitLogger("dltgen")

	fs := pflag.NewFlagSet("dltgen", pflag.ExitOnError)
	scriptPath := fs.StringP("script", "s", "", "line script (see configgen --kind dltgen)")
	output := fs.StringP("output", "o", "", "output file, overrides the script")
	framing := fs.StringP("framing", "f", "", "output framing, overrides the script")
	ecu := fs.String("ecu", "", "storage header ECU id, overrides the script")
	_ = fs.Parse(os.Args[1:])

	if *scriptPath == "" {
		fmt.Fprintln(os.Stderr, "dltgen: --script is required")
		os.Exit(2)
	}
	s, err := config.LoadScript(*scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dltgen: %v\n", err)
		os.Exit(1)
	}
	if fs.Changed("output") {
		s.Output = *output
	}
	if fs.Changed("framing") {
		s.Framing = *framing
	}
	if fs.Changed("ecu") {
		s.EcuID = *ecu
	}

	n, err := generate(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dltgen: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("output", s.Output).Int("lines", n).Msg("capture written")
}

// generate encodes the script lines into s.Output and returns the line count.
func generate(s *config.Script) (int, error) {
	if s.Output == "" {
		return 0, fmt.Errorf("script has no output path")
	}
	f, err := dltFraming(s.Framing)
	if err != nil {
		return 0, err
	}
	lines, err := s.TraceLines()
	if err != nil {
		return 0, err
	}

	out, err := os.Create(s.Output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	var opts []encoder.Option
	if s.EcuID != "" {
		opts = append(opts, encoder.WithStorageEcuID(s.EcuID))
	}
	w := encoder.NewWriter(out, f, opts...)
	for i, l := range lines {
		if err := w.WriteLine(l); err != nil {
			_ = out.Close()
			return i, fmt.Errorf("line %d: %w", i, err)
		}
	}
	return w.Lines(), out.Close()
}
