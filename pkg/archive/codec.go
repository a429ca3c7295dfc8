package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/zlib"
)

// Codec compresses payloads when an archive is built and decompresses them
// when they are read. The codec is not recorded in the archive; readers and
// builders must agree on it.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	// Decompress fills dst with the decompressed form of src and returns the
	// number of bytes written. A result shorter or longer than len(dst), or a
	// failed checksum, is an error.
	Decompress(dst, src []byte) (int, error)
}

// Zlib is the default codec, a zlib-wrapped DEFLATE stream.
type Zlib struct {
	Level int // zlib level; 0 selects zlib.DefaultCompression
}

func (Zlib) Name() string { return "zlib" }

func (c Zlib) Compress(src []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close compressor: %w", err)
	}
	return buf.Bytes(), nil
}

func (Zlib) Decompress(dst, src []byte) (int, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	n, err := io.ReadFull(zr, dst)
	if err != nil {
		return n, fmt.Errorf("%w: got %d of %d bytes: %v", ErrDecompression, n, len(dst), err)
	}
	// Reading to EOF verifies the Adler-32 trailer.
	var extra [1]byte
	m, err := io.ReadFull(zr, extra[:])
	switch {
	case m > 0:
		return n, fmt.Errorf("%w: stream longer than %d bytes", ErrDecompression, len(dst))
	case !errors.Is(err, io.EOF):
		return n, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return n, nil
}

// Zstd stores payloads as zstd frames.
type Zstd struct {
	Level int // 0 selects zstd.BestSpeed
}

func (Zstd) Name() string { return "zstd" }

func (c Zstd) Compress(src []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = zstd.BestSpeed
	}
	out, err := zstd.CompressLevel(nil, src, level)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return out, nil
}

func (Zstd) Decompress(dst, src []byte) (int, error) {
	out, err := zstd.Decompress(nil, src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	n := copy(dst, out)
	if len(out) != len(dst) {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrDecompression, len(out), len(dst))
	}
	return n, nil
}

// CodecByName returns the codec registered under name ("zlib" or "zstd").
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "zlib", "deflate":
		return Zlib{}, nil
	case "zstd":
		return Zstd{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
