package filemanager

import (
	"log/slog"

	"github.com/proteus-engine/proteus/pkg/archive"
	"github.com/proteus-engine/proteus/pkg/platform"
)

// DefaultMaxArchives is the number of archives that can be mounted at once
// unless WithMaxArchives says otherwise.
const DefaultMaxArchives = 8

// Option configures a Manager.
type Option func(*Manager)

// WithMaxArchives sets the number of mount slots. Values < 1 are ignored.
func WithMaxArchives(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxArchives = n
		}
	}
}

// WithCodec sets the codec used for compressed entries. It must match the
// codec the archives were built with.
func WithCodec(c archive.Codec) Option {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithResolver sets the platform path resolver used by GetSystemPath and by
// Load's loose-file fallback.
func WithResolver(r *platform.Resolver) Option {
	return func(m *Manager) {
		if r != nil {
			m.resolver = r
		}
	}
}

// WithLogger sets the logger for mount and read diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPayloadCache keeps the decompressed payloads of up to n recently read
// entries in memory. Entries larger than MaxCachedPayload are never cached.
func WithPayloadCache(n int) Option {
	return func(m *Manager) {
		m.cacheSize = n
	}
}
