// Package config loads the YAML mount configuration used by the tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/proteus-engine/proteus/pkg/archive"
	"github.com/proteus-engine/proteus/pkg/filemanager"
	"github.com/proteus-engine/proteus/pkg/platform"
)

// Config describes which archives to mount and how.
type Config struct {
	Platform     string   `yaml:"platform"`
	DataRoot     string   `yaml:"data_root"`
	Codec        string   `yaml:"codec"`
	MaxArchives  int      `yaml:"max_archives"`
	PayloadCache int      `yaml:"payload_cache"`
	Archives     []string `yaml:"archives"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Platform:    platform.PC.String(),
		DataRoot:    "data",
		Codec:       "zlib",
		MaxArchives: filemanager.DefaultMaxArchives,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := platform.Parse(c.Platform); err != nil {
		return fmt.Errorf("config platform: %w", err)
	}
	if _, err := archive.CodecByName(c.Codec); err != nil {
		return fmt.Errorf("config codec: %w", err)
	}
	if c.MaxArchives < 1 {
		return fmt.Errorf("config max_archives: must be positive, got %d", c.MaxArchives)
	}
	if c.PayloadCache < 0 {
		return fmt.Errorf("config payload_cache: must not be negative, got %d", c.PayloadCache)
	}
	if len(c.Archives) > c.MaxArchives {
		return fmt.Errorf("config archives: %d listed, max_archives is %d", len(c.Archives), c.MaxArchives)
	}
	return nil
}

// Options converts the configuration into file manager options.
func (c *Config) Options(logger *slog.Logger) ([]filemanager.Option, error) {
	p, err := platform.Parse(c.Platform)
	if err != nil {
		return nil, err
	}
	codec, err := archive.CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	return []filemanager.Option{
		filemanager.WithResolver(platform.NewResolver(p, c.DataRoot)),
		filemanager.WithCodec(codec),
		filemanager.WithMaxArchives(c.MaxArchives),
		filemanager.WithPayloadCache(c.PayloadCache),
		filemanager.WithLogger(logger),
	}, nil
}

// Open creates a file manager, registers every listed archive in order, and
// completes registration. Archives that fail to mount are logged by the
// manager and skipped.
func (c *Config) Open(logger *slog.Logger) (*filemanager.Manager, error) {
	opts, err := c.Options(logger)
	if err != nil {
		return nil, err
	}
	m := filemanager.New(opts...)
	for _, name := range c.Archives {
		_ = m.RegisterArchive(name)
	}
	m.SetRegistrationComplete()
	return m, nil
}
