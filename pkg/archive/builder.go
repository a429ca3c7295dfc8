package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

var ErrEmptyArchive = errors.New("archive: nothing to write")

// SkipCompressionFunc returns true when a file should be stored raw.
type SkipCompressionFunc func(name string, size int64) bool

// DefaultSkipCompression skips files smaller than minSize and formats that
// are already compressed.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(name string, size int64) bool {
		if minSize > 0 && size < minSize {
			return true
		}
		_, ok := precompressedExts[strings.ToLower(filepath.Ext(name))]
		return ok
	}
}

// SkipExtensions stores files with any of the given extensions raw.
func SkipExtensions(exts ...string) SkipCompressionFunc {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return func(name string, _ int64) bool {
		_, ok := set[strings.ToLower(filepath.Ext(name))]
		return ok
	}
}

var precompressedExts = map[string]struct{}{
	".gz":   {},
	".jpeg": {},
	".jpg":  {},
	".mp3":  {},
	".ogg":  {},
	".png":  {},
	".pvr":  {},
	".webp": {},
	".zip":  {},
	".zst":  {},
}

// Builder collects files and writes them as an archive pair.
type Builder struct {
	basePath    string
	codec       Codec
	skip        []SkipCompressionFunc
	concurrency int
	logger      *slog.Logger

	items  []buildItem
	byHash map[uint32]string
}

type buildItem struct {
	name     string
	path     string
	data     []byte
	compress bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCodec sets the codec used for compressed entries.
func WithCodec(c Codec) BuilderOption {
	return func(b *Builder) {
		b.codec = c
	}
}

// WithSkipCompression adds predicates deciding which files added with
// AddFile are stored raw.
func WithSkipCompression(fns ...SkipCompressionFunc) BuilderOption {
	return func(b *Builder) {
		b.skip = append(b.skip, fns...)
	}
}

// WithConcurrency bounds the number of files compressed at once.
// Values < 1 use GOMAXPROCS.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		b.concurrency = n
	}
}

// WithBuilderLogger sets the logger for build progress.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a builder writing basePath+".arc" and basePath+".fat".
func NewBuilder(basePath string, opts ...BuilderOption) *Builder {
	b := &Builder{
		basePath: basePath,
		codec:    Zlib{},
		byHash:   make(map[uint32]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.concurrency < 1 {
		b.concurrency = runtime.GOMAXPROCS(0)
	}
	return b
}

func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	return len(b.items)
}

// Add queues an in-memory payload under a logical name. When compress is set
// the payload is compressed unless that would not make it smaller.
func (b *Builder) Add(name string, data []byte, compress bool) error {
	if err := b.reserve(name); err != nil {
		return err
	}
	b.items = append(b.items, buildItem{name: NormalizeName(name), data: data, compress: compress})
	return nil
}

// AddFile queues a file from disk. Whether it is compressed is decided by the
// skip-compression predicates.
func (b *Builder) AddFile(sf SourceFile) error {
	if err := b.reserve(sf.Name); err != nil {
		return err
	}
	compress := true
	for _, fn := range b.skip {
		if fn != nil && fn(sf.Name, sf.Size) {
			compress = false
			break
		}
	}
	b.items = append(b.items, buildItem{name: NormalizeName(sf.Name), path: sf.Path, compress: compress})
	return nil
}

func (b *Builder) reserve(name string) error {
	normalized := NormalizeName(name)
	if len(normalized) >= NameSize {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	h := Hash(normalized)
	if prev, ok := b.byHash[h]; ok {
		return fmt.Errorf("%w: %q and %q both hash to %08x", ErrDuplicateHash, prev, normalized, h)
	}
	b.byHash[h] = normalized
	return nil
}

type preparedItem struct {
	stored     []byte
	size       uint32
	compressed bool
}

// Build compresses the queued files and writes the archive pair. Payloads
// are laid out in the order they were added; the index is sorted by hash.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	if len(b.items) == 0 {
		return nil, ErrEmptyArchive
	}

	prepared := make([]preparedItem, len(b.items))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for i := range b.items {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := b.prepare(&b.items[i])
			if err != nil {
				return err
			}
			prepared[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(b.basePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	dw, err := createDataWriter(b.basePath + DataExt)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(b.items))
	var compressedCount int
	for i, p := range prepared {
		off, err := dw.append(p.stored)
		if err != nil {
			dw.close()
			return nil, err
		}
		e := Entry{
			Hash:       Hash(b.items[i].name),
			Offset:     off,
			FileSize:   p.size,
			Compressed: p.compressed,
		}
		if p.compressed {
			e.CompressedSize = uint32(len(p.stored))
			compressedCount++
		}
		if err := e.SetName(b.items[i].name); err != nil {
			dw.close()
			return nil, err
		}
		entries = append(entries, e)
	}

	dataSize := dw.size()
	if err := dw.close(); err != nil {
		return nil, err
	}
	if dataSize == 0 {
		return nil, fmt.Errorf("%w: all %d files are empty", ErrEmptyArchive, len(entries))
	}

	index, err := NewIndex(entries)
	if err != nil {
		return nil, err
	}
	if err := writeIndexFile(b.basePath+IndexExt, index.entries); err != nil {
		return nil, err
	}

	b.log().Info("archive built",
		slog.String("base", b.basePath),
		slog.String("codec", b.codec.Name()),
		slog.Int("entries", len(entries)),
		slog.Int("compressed", compressedCount),
		slog.Int64("data_bytes", dataSize))
	return index, nil
}

func (b *Builder) prepare(item *buildItem) (preparedItem, error) {
	data := item.data
	if item.path != "" {
		var err error
		data, err = os.ReadFile(item.path)
		if err != nil {
			return preparedItem{}, fmt.Errorf("read file %s: %w", item.path, err)
		}
	}
	if int64(len(data)) > MaxDataSize {
		return preparedItem{}, fmt.Errorf("%w: %s is %d bytes", ErrArchiveTooLarge, item.name, len(data))
	}

	p := preparedItem{stored: data, size: uint32(len(data))}
	if !item.compress || len(data) == 0 {
		return p, nil
	}

	packed, err := b.codec.Compress(data)
	if err != nil {
		return preparedItem{}, fmt.Errorf("compress %s: %w", item.name, err)
	}
	if len(packed) >= len(data) {
		b.log().Debug("storing raw, compression did not help",
			slog.String("name", item.name), slog.Int("size", len(data)), slog.Int("packed", len(packed)))
		return p, nil
	}
	p.stored = packed
	p.compressed = true
	return p, nil
}
