package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emojipress/tools"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "smile.gif")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), 0644))
	gif := filepath.Join(dir, "wave.gif")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a\x01\x00\x01\x00"), 0644))

	out, err := execute(t, "detect", png, gif)
	require.NoError(t, err)
	assert.Contains(t, out, png+": png\n")
	assert.Contains(t, out, gif+": unknown\n")
}

func TestDetectCommandNeedsFile(t *testing.T) {
	_, err := execute(t, "detect")
	assert.Error(t, err)
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, "tools")
	require.NoError(t, err)
	for _, name := range tools.Known {
		assert.Contains(t, out, name)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	opts := &options{}
	cmd := newRootCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{
		"-i", "in", "-o", "out", "-s", "120", "-q", "70", "-f", "webp",
		"--report-dir", "reports", "--quiet", "--no-builtin",
	}))

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, "in", cfg.InputDir)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 120, cfg.TargetSize)
	assert.Equal(t, 70, cfg.Quality)
	assert.Equal(t, "webp", cfg.Format)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.False(t, cfg.Verbose)
	assert.False(t, cfg.Builtin)
}

func TestLoadConfigDefaults(t *testing.T) {
	opts := &options{}
	cmd := newRootCommand(opts)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, "origins", cfg.InputDir)
	assert.Equal(t, 60, cfg.TargetSize)
	assert.Equal(t, 50, cfg.Quality)
	assert.True(t, cfg.Builtin)
}

func TestLoadConfigRejectsBadFlags(t *testing.T) {
	opts := &options{}
	cmd := newRootCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"-q", "150"}))

	_, err := loadConfig(cmd, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality")
}

func TestBannerShownWhenQuiet(t *testing.T) {
	input := t.TempDir()

	// Fails without tools or without images; the banner comes first either way
	out, err := execute(t, "--quiet", "-i", input, "-o", t.TempDir(), "--report-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, "Input:   "+input)
	assert.Contains(t, out, "Target:  60×60")
}

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "none", joinOrNone(nil))
	assert.Equal(t, "sips, cwebp", joinOrNone([]string{"sips", "cwebp"}))
}
