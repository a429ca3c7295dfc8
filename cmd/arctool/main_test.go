package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTool(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPackListCatExtract(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(filepath.Join(input, "Sounds"), 0755))
	explosion := []byte{0x01, 0x02, 0x03}
	jump := bytes.Repeat([]byte{0x04}, 1000)
	require.NoError(t, os.WriteFile(filepath.Join(input, "Sounds", "explosion.wav"), explosion, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "Sounds", "jump.wav"), jump, 0644))

	base := filepath.Join(dir, "out", "sounds")
	for _, codec := range []string{"zlib", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			out, err := runTool(t, "pack", "--codec", codec, input, base)
			require.NoError(t, err)
			assert.Contains(t, out, "2 entries")

			out, err = runTool(t, "list", "--codec", codec, base+".fat")
			require.NoError(t, err)
			assert.Contains(t, out, "sounds/explosion.wav")
			assert.Contains(t, out, "sounds/jump.wav")
			assert.Contains(t, out, "packed")

			out, err = runTool(t, "cat", "--codec", codec, base, "--file", `Sounds\Jump.wav`)
			require.NoError(t, err)
			assert.Equal(t, string(jump), out)

			_, err = runTool(t, "cat", "--codec", codec, base, "--file", "sounds/missing.wav")
			assert.Error(t, err)

			extracted := filepath.Join(dir, "extract-"+codec)
			_, err = runTool(t, "extract", "--codec", codec, base, extracted)
			require.NoError(t, err)
			got, err := os.ReadFile(filepath.Join(extracted, "sounds", "explosion.wav"))
			require.NoError(t, err)
			assert.Equal(t, explosion, got)

			_, err = runTool(t, "extract", "--codec", codec, base, extracted)
			assert.ErrorContains(t, err, "not empty")
		})
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(input, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "a.txt"), []byte(strings.Repeat("a", 500)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "b.txt"), []byte("b"), 0644))

	base := filepath.Join(dir, "base")
	_, err := runTool(t, "pack", input, base)
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "mount.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("archives:\n  - "+base+"\n"), 0644))

	out, err := runTool(t, "verify", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Verified 2 entries in 1 archives (0 shadowed)")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("archives:\n  - "+filepath.Join(dir, "nope")+"\n"), 0644))
	_, err = runTool(t, "verify", "--config", bad)
	assert.ErrorContains(t, err, "mounted 0 of 1")
}

func TestVerifyPatchOverride(t *testing.T) {
	dir := t.TempDir()
	baseIn := filepath.Join(dir, "base-in")
	patchIn := filepath.Join(dir, "patch-in")
	require.NoError(t, os.MkdirAll(baseIn, 0755))
	require.NoError(t, os.MkdirAll(patchIn, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(baseIn, "a.txt"), []byte("abc"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(baseIn, "b.txt"), []byte("only in base"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(patchIn, "a.txt"), []byte(strings.Repeat("p", 500)), 0644))

	base := filepath.Join(dir, "base")
	patch := filepath.Join(dir, "patch")
	_, err := runTool(t, "pack", baseIn, base)
	require.NoError(t, err)
	_, err = runTool(t, "pack", patchIn, patch)
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "mount.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("archives:\n  - "+base+"\n  - "+patch+"\n"), 0644))

	out, err := runTool(t, "verify", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Verified 3 entries in 2 archives (1 shadowed)")

	out, err = runTool(t, "cat", base, patch, "--file", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("p", 500), out)
}
