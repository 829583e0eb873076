package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/internal/config"
	"github.com/HugeFrog24/stimconv/stim"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestNewRegistryConfiguresConverters(t *testing.T) {
	cfg := config.Default()
	cfg.TmpDir = "/scratch"
	cfg.Whisper.MaxDuration = time.Minute
	reg := newRegistry(cfg)

	v2a, ok := reg.GetConverter(stim.Video, stim.Audio).(*converters.VideoToAudioConverter)
	require.True(t, ok)
	assert.Equal(t, "/scratch", v2a.OutputDir)

	whisper, ok := reg.GetConverter(stim.Audio, stim.ComplexText).(*converters.WhisperConverter)
	require.True(t, ok)
	assert.Equal(t, time.Minute, whisper.MaxDuration)

	ocr, ok := reg.GetConverter(stim.Image, stim.Text).(*converters.TesseractConverter)
	require.True(t, ok)
	assert.Equal(t, "/scratch", ocr.TmpDir)

	assert.Len(t, reg.Registrations(), len(converters.Builtins()))
}

func TestCleanupTmpDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.wav"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "frames"), 0o755))

	cleanupTmpDir(dir, zap.NewNop())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvertersCommand(t *testing.T) {
	out := execute(t, "converters", "--from", "image", "--to", "text")
	assert.Regexp(t, `(?s)TesseractConverter.*VisionTextConverter`, out)

	out = execute(t, "converters", "--from", "video", "--to", "text")
	assert.Contains(t, out, "No direct converter; chain:")
	assert.Regexp(t, `(?s)VideoToAudioConverter.*WhisperConverter.*ComplexTextToTextConverter`, out)
}

func TestConvertCommandCachesText(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvCacheBackend, "badger")
	t.Setenv(config.EnvCacheDir, filepath.Join(dir, "cache"))
	require.NoError(t, os.WriteFile("notes.txt", []byte("to be or not"), 0o644))

	out := execute(t, "convert", "notes.txt", "--to", "complex_text", "--converter", "")
	assert.Contains(t, out, "notes.txt_words [complex_text, computed")
	assert.Contains(t, out, "not")

	// A new process reads the result back from the on-disk cache.
	out = execute(t, "convert", "notes.txt", "--to", "complex_text", "--converter", "")
	assert.Contains(t, out, "notes.txt_words [complex_text, cached")

	out = execute(t, "cache", "clear")
	assert.Contains(t, out, "Cleared badger cache")

	out = execute(t, "convert", "notes.txt", "--to", "complex_text", "--converter", "")
	assert.Contains(t, out, "computed")
}
