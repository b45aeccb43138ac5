package encoder

import (
	"io"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/line"
)

// Writer encodes lines onto an io.Writer, one Write call per record.
type Writer struct {
	w     io.Writer
	enc   *Encoder
	buf   []byte
	lines int
	bytes int64
}

func NewWriter(w io.Writer, f dlt.Framing, opts ...Option) *Writer {
	return &Writer{w: w, enc: New(f, opts...), buf: make([]byte, MaxRecordLen)}
}

// WriteLine encodes l and writes the record. Encoding errors leave the
// underlying writer untouched.
func (w *Writer) WriteLine(l *line.TraceLine) error {
	n, err := w.enc.Encode(w.buf, l)
	if err != nil {
		return err
	}
	m, err := w.w.Write(w.buf[:n])
	w.bytes += int64(m)
	if err != nil {
		return err
	}
	if m != n {
		return io.ErrShortWrite
	}
	w.lines++
	return nil
}

// Lines returns the number of records written.
func (w *Writer) Lines() int { return w.lines }

// Bytes returns the number of bytes written.
func (w *Writer) Bytes() int64 { return w.bytes }
