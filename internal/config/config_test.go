package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteus-engine/proteus/pkg/archive"
)

func TestParse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Full", func(t *testing.T) {
		cfg, err := Parse([]byte(`
platform: android
data_root: assets
codec: zstd
max_archives: 3
payload_cache: 16
archives: [base, patch]
`))
		require.NoError(t, err)
		assert.Equal(t, &Config{
			Platform:     "android",
			DataRoot:     "assets",
			Codec:        "zstd",
			MaxArchives:  3,
			PayloadCache: 16,
			Archives:     []string{"base", "patch"},
		}, cfg)
	})

	invalid := map[string]string{
		"unknown key":      "compression: 9\n",
		"bad platform":     "platform: amiga\n",
		"bad codec":        "codec: lz4\n",
		"zero slots":       "max_archives: 0\n",
		"negative cache":   "payload_cache: -1\n",
		"too many mounted": "max_archives: 1\narchives: [a, b]\n",
	}
	for name, doc := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base")
	b := archive.NewBuilder(base, archive.WithCodec(archive.Zstd{}))
	require.NoError(t, b.Add("scripts/init.lua", []byte("print('hi')"), true))
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	path := filepath.Join(dir, "mount.yaml")
	doc := "codec: zstd\narchives:\n  - " + base + "\n  - " + filepath.Join(dir, "missing") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	m, err := cfg.Open(nil)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 1, m.Count())
	assert.True(t, m.RegistrationComplete())

	data, err := m.Load("Scripts/Init.lua")
	require.NoError(t, err)
	assert.Equal(t, []byte("print('hi')"), data)
}
