/*
Package oracle measures how well a buffer compresses.

Each Compressor is a pure function of its input: the same bytes always
produce the same size for a given compressor. Only the size is of interest so
the compressed output is discarded.
*/
package oracle

import (
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Default is the name of the compressor used when none is configured.
const Default = "zlib"

// Compressor returns the compressed size in bytes of b.
type Compressor interface {
	CompressedSize(b []byte) (int, error)
}

// counter is an io.Writer that only counts.
type counter int

func (c *counter) Write(p []byte) (int, error) {
	*c += counter(len(p))
	return len(p), nil
}

func streamSize(w io.WriteCloser, n *counter, b []byte) (int, error) {
	if _, err := w.Write(b); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return int(*n), nil
}

// Zlib compresses with deflate in a zlib container at the default level,
// matching zlib's compress().
type Zlib struct {
	w *zlib.Writer
	n counter
}

// NewZlib returns a new Zlib compressor. It is not safe for concurrent use.
func NewZlib() *Zlib {
	z := new(Zlib)
	z.w, _ = zlib.NewWriterLevel(&z.n, zlib.DefaultCompression)
	return z
}

// CompressedSize implements Compressor.
func (z *Zlib) CompressedSize(b []byte) (int, error) {
	z.n = 0
	z.w.Reset(&z.n)
	return streamSize(z.w, &z.n, b)
}

// Zstd compresses with zstd at the default level.
type Zstd struct {
	enc *zstd.Encoder
	buf []byte
}

// NewZstd returns a new Zstd compressor. It is not safe for concurrent use.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &Zstd{enc: enc}, nil
}

// CompressedSize implements Compressor.
func (z *Zstd) CompressedSize(b []byte) (int, error) {
	z.buf = z.enc.EncodeAll(b, z.buf[:0])
	return len(z.buf), nil
}

// LZ4 compresses with an LZ4 frame at the default level.
type LZ4 struct {
	w *lz4.Writer
	n counter
}

// NewLZ4 returns a new LZ4 compressor. It is not safe for concurrent use.
func NewLZ4() *LZ4 {
	l := new(LZ4)
	l.w = lz4.NewWriter(&l.n)
	return l
}

// CompressedSize implements Compressor.
func (l *LZ4) CompressedSize(b []byte) (int, error) {
	l.n = 0
	l.w.Reset(&l.n)
	return streamSize(l.w, &l.n, b)
}

var compressors = map[string]func() (Compressor, error){
	"zlib": func() (Compressor, error) { return NewZlib(), nil },
	"zstd": func() (Compressor, error) { return NewZstd() },
	"lz4":  func() (Compressor, error) { return NewLZ4(), nil },
}

// New returns a new instance of the named compressor. Each call returns an
// independent instance so separate goroutines should each call New.
func New(name string) (Compressor, error) {
	if name == "" {
		name = Default
	}
	f, ok := compressors[name]
	if !ok {
		return nil, fmt.Errorf("oracle: unknown compressor %q", name)
	}
	return f()
}

// Names returns the names accepted by New in sorted order.
func Names() []string {
	names := make([]string, 0, len(compressors))
	for k := range compressors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
