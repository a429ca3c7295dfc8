// Package filemanager mounts Proteus archives and resolves logical asset
// names to their bytes.
//
// Archives are searched in registration order and a later archive's entry
// replaces an earlier one with the same hash, so patch archives registered
// after the base data override it. A Manager is not safe for concurrent use:
// every mounted archive shares one data file handle between reads.
package filemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/proteus-engine/proteus/pkg/archive"
	"github.com/proteus-engine/proteus/pkg/platform"
)

// MaxCachedPayload is the largest payload kept by the payload cache.
const MaxCachedPayload = 1 << 20

var (
	ErrCapacity           = errors.New("filemanager: all archive slots in use")
	ErrRegistrationClosed = errors.New("filemanager: registration complete")
	ErrNotFound           = errors.New("filemanager: file not found")
)

// Manager owns the mounted archives.
type Manager struct {
	maxArchives int
	codec       archive.Codec
	resolver    *platform.Resolver
	logger      *slog.Logger
	cacheSize   int

	archives []*archive.Archive
	complete bool
	last     lastLookup
	cache    *lru.Cache[payloadKey, []byte]
}

// lastLookup memoizes the most recent successful hash search.
type lastLookup struct {
	valid bool
	hash  uint32
	slot  int
	entry int
}

type payloadKey struct {
	slot  int
	entry int
}

// ArchiveInfo describes a mounted archive.
type ArchiveInfo struct {
	Slot     int
	Name     string
	Entries  int
	DataSize int64
}

// New returns a Manager with no archives mounted.
func New(opts ...Option) *Manager {
	m := &Manager{
		maxArchives: DefaultMaxArchives,
		codec:       archive.Zlib{},
		resolver:    platform.NewResolver(platform.PC, ""),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.archives = make([]*archive.Archive, 0, m.maxArchives)
	if m.cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		m.cache, _ = lru.New[payloadKey, []byte](m.cacheSize)
	}
	return m
}

func (m *Manager) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// RegisterArchive mounts the archive pair baseName+".arc" / baseName+".fat"
// into the next free slot. On failure a warning is logged, nothing is
// mounted, and the cause is returned; callers may ignore it and carry on
// without the archive.
func (m *Manager) RegisterArchive(baseName string) error {
	if m.complete {
		m.log().Warn("archive registered after registration completed", slog.String("archive", baseName))
		return fmt.Errorf("register %s: %w", baseName, ErrRegistrationClosed)
	}

	a, err := archive.Open(baseName, m.codec)
	if err != nil {
		m.log().Warn("archive not mounted", slog.String("archive", baseName), slog.Any("error", err))
		return fmt.Errorf("register %s: %w", baseName, err)
	}

	if len(m.archives) >= m.maxArchives {
		a.Close()
		m.log().Warn("archive not mounted, no free slot",
			slog.String("archive", baseName), slog.Int("slots", m.maxArchives))
		return fmt.Errorf("register %s: %w (%d)", baseName, ErrCapacity, m.maxArchives)
	}

	m.archives = append(m.archives, a)
	m.log().Info("archive mounted",
		slog.String("archive", baseName),
		slog.Int("slot", len(m.archives)-1),
		slog.Int("entries", a.Index().Len()),
		slog.Int64("data_bytes", a.DataSize()))
	return nil
}

// SetRegistrationComplete marks the manager ready. Later RegisterArchive
// calls are rejected.
func (m *Manager) SetRegistrationComplete() {
	m.complete = true
	m.log().Debug("archive registration complete", slog.Int("archives", len(m.archives)))
}

// RegistrationComplete reports whether SetRegistrationComplete was called.
func (m *Manager) RegistrationComplete() bool {
	return m.complete
}

// Count returns the number of mounted archives.
func (m *Manager) Count() int {
	return len(m.archives)
}

// MaxArchives returns the number of mount slots.
func (m *Manager) MaxArchives() int {
	return m.maxArchives
}

// Archives describes the mounted archives in slot order.
func (m *Manager) Archives() []ArchiveInfo {
	infos := make([]ArchiveInfo, len(m.archives))
	for i, a := range m.archives {
		infos[i] = ArchiveInfo{
			Slot:     i,
			Name:     a.Name(),
			Entries:  a.Index().Len(),
			DataSize: a.DataSize(),
		}
	}
	return infos
}

// Walk calls fn for every entry of every mounted archive, in slot order and
// then hash order, until fn returns false. Entries shadowed by a later
// archive are visited too.
func (m *Manager) Walk(fn func(info ArchiveInfo, e *archive.Entry) bool) {
	for _, info := range m.Archives() {
		for _, e := range m.archives[info.Slot].Index().Entries() {
			if !fn(info, e) {
				return
			}
		}
	}
}

// Hash returns the lookup key for filename.
func (m *Manager) Hash(filename string) uint32 {
	return archive.Hash(filename)
}

// Exists reports whether filename is packed in any mounted archive and, if
// so, its uncompressed size. A hit is remembered for the following Read.
func (m *Manager) Exists(filename string) (bool, uint32) {
	slot, entry, ok := m.lookup(archive.Hash(filename))
	if !ok {
		return false, 0
	}
	return true, m.archives[slot].Index().Entry(entry).FileSize
}

// lookup searches every archive for hash. The last archive holding it wins.
func (m *Manager) lookup(hash uint32) (slot, entry int, ok bool) {
	for i, a := range m.archives {
		if j, found := a.Index().Find(hash); found {
			slot, entry, ok = i, j, true
		}
	}
	if ok {
		m.last = lastLookup{valid: true, hash: hash, slot: slot, entry: entry}
	}
	return slot, entry, ok
}

// Read copies the uncompressed payload of the entry with the given hash into
// buf and returns its size. buf must hold at least the size reported by
// Exists. Read panics if no mounted archive holds hash; callers check with
// Exists first.
//
// A failed decompression or short read is logged and returned as an error
// together with the number of bytes actually produced.
func (m *Manager) Read(buf []byte, hash uint32) (int, error) {
	if !m.last.valid || m.last.hash != hash {
		if _, _, ok := m.lookup(hash); !ok {
			panic(fmt.Sprintf("filemanager: read of %08x which is not in any mounted archive", hash))
		}
	}
	slot, entryIdx := m.last.slot, m.last.entry
	a := m.archives[slot]
	e := a.Index().Entry(entryIdx)

	key := payloadKey{slot: slot, entry: entryIdx}
	if m.cache != nil {
		if data, ok := m.cache.Get(key); ok && len(buf) >= len(data) {
			return copy(buf, data), nil
		}
	}

	n, err := a.ReadEntry(e, buf)
	if err != nil {
		m.log().Warn("archive read failed",
			slog.String("archive", a.Name()),
			slog.String("file", e.Name()),
			slog.Int("read", n),
			slog.Any("error", err))
		return n, fmt.Errorf("read %08x from %s: %w", hash, a.Name(), err)
	}

	if m.cache != nil && e.FileSize <= MaxCachedPayload {
		data := make([]byte, e.FileSize)
		copy(data, buf)
		m.cache.Add(key, data)
	}

	m.log().Debug("archive read",
		slog.String("archive", a.Name()),
		slog.String("file", e.Name()),
		slog.Bool("compressed", e.Compressed),
		slog.Uint64("size", uint64(e.FileSize)))
	return int(e.FileSize), nil
}

// ReadSlot returns the uncompressed payload of e from the archive mounted in
// slot, whether or not a later archive shadows it. Neither the last-lookup
// cache nor the payload cache is consulted.
func (m *Manager) ReadSlot(slot int, e *archive.Entry) ([]byte, error) {
	if slot < 0 || slot >= len(m.archives) {
		return nil, fmt.Errorf("read slot %d: %d archives mounted", slot, len(m.archives))
	}
	a := m.archives[slot]
	data, err := a.ReadAll(e)
	if err != nil {
		m.log().Warn("archive read failed",
			slog.String("archive", a.Name()),
			slog.String("file", e.Name()),
			slog.Any("error", err))
		return data, fmt.Errorf("read %08x from %s: %w", e.Hash, a.Name(), err)
	}
	return data, nil
}

// Load returns the contents of filename from the mounted archives, or from
// the loose file at GetSystemPath(filename) when no archive holds it.
func (m *Manager) Load(filename string) ([]byte, error) {
	if ok, size := m.Exists(filename); ok {
		buf := make([]byte, size)
		n, err := m.Read(buf, archive.Hash(filename))
		if err != nil {
			return buf[:n], err
		}
		return buf, nil
	}

	path := m.GetSystemPath(filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w: %w", filename, ErrNotFound, err)
		}
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	m.log().Debug("loose file loaded", slog.String("file", filename), slog.String("path", path))
	return data, nil
}

// GetSystemPath maps filename to a physical path for the configured platform.
func (m *Manager) GetSystemPath(filename string) string {
	return m.resolver.SystemPath(filename)
}

// Close closes every mounted archive. The manager is empty afterwards.
func (m *Manager) Close() error {
	var errs []error
	for _, a := range m.archives {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
		}
	}
	m.archives = m.archives[:0]
	m.last = lastLookup{}
	if m.cache != nil {
		m.cache.Purge()
	}
	return errors.Join(errs...)
}
