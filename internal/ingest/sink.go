package ingest

import (
	"bufio"
	"io"

	"github.com/danmuck/dltctl/internal/dlt/line"
)

// Sink receives decoded lines in stream order.
type Sink interface {
	WriteLine(l *line.TraceLine) error
}

type SinkFunc func(l *line.TraceLine) error

func (f SinkFunc) WriteLine(l *line.TraceLine) error { return f(l) }

// TextSink writes one dump row per line.
type TextSink struct {
	w *bufio.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: bufio.NewWriter(w)}
}

func (s *TextSink) WriteLine(l *line.TraceLine) error {
	if _, err := s.w.WriteString(l.String()); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *TextSink) Flush() error { return s.w.Flush() }

// Collector keeps every line in memory.
type Collector struct {
	Lines []*line.TraceLine
}

func (c *Collector) WriteLine(l *line.TraceLine) error {
	c.Lines = append(c.Lines, l)
	return nil
}
