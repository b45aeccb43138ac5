package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// Compression of a capture file, detected from its leading bytes.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// NewReader returns a reader over the decompressed content of r.
func NewReader(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, CompressionGzip, fmt.Errorf("gzip reader: %w", err)
		}
		return zr, CompressionGzip, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, CompressionZstd, fmt.Errorf("zstd reader: %w", err)
		}
		return zr.IOReadCloser(), CompressionZstd, nil
	default:
		return io.NopCloser(br), CompressionNone, nil
	}
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenFile opens a capture file, transparently decompressing gzip and zstd.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture (%s): %w", path, err)
	}
	r, comp, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open capture (%s): %w", path, err)
	}
	log.Debug().Str("path", path).Str("compression", string(comp)).Msg("capture opened")
	return fileReader{ReadCloser: r, f: f}, nil
}

// DecodeFile pumps one capture file through the mux channel named by its path.
// The channel is removed from the mux once the file is done.
func DecodeFile(ctx context.Context, path string, mux *channel.Mux, sink Sink, chunkSize int) (Result, error) {
	r, err := OpenFile(path)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	ch, _ := mux.Open(path)
	defer mux.Remove(path)
	res, err := Pump(ctx, r, ch, sink, PumpConfig{ChunkSize: chunkSize, Source: "file"})
	log.Info().
		Str("path", path).
		Int64("bytes", res.Bytes).
		Uint64("lines", res.Lines).
		Int64("skipped_bytes", res.SkippedBytes).
		Uint64("catalogue_misses", res.Misses).
		Msg("capture decoded")
	return res, err
}
