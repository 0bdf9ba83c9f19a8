package compressor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"emojipress/config"
	"emojipress/converter"
	"emojipress/report"
	"emojipress/tools"
)

// stubConverter halves every file and fails on names containing "bad"
type stubConverter struct {
	calls [][2]string
}

func (s *stubConverter) Convert(_ context.Context, input, output string) (*converter.Result, error) {
	s.calls = append(s.calls, [2]string{input, output})

	if strings.Contains(filepath.Base(input), "bad") {
		return nil, converter.ErrUnsupportedFormat
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}

	format := converter.OutputAVIF
	if strings.Contains(input, "webp") {
		format = converter.OutputWebP
		output = strings.TrimSuffix(output, ".avif") + ".webp"
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(output, make([]byte, info.Size()/2), 0644); err != nil {
		return nil, err
	}

	return &converter.Result{
		Input:        input,
		Output:       output,
		OutputFormat: format,
		OriginalSize: info.Size(),
		NewSize:      info.Size() / 2,
	}, nil
}

type recordingObserver struct {
	started map[string]int
	done    []report.FileResult
}

func (r *recordingObserver) PlatformStarted(p config.Platform, files int) {
	r.started[p.Name] = files
}

func (r *recordingObserver) FileDone(_ config.Platform, res report.FileResult) {
	r.done = append(r.done, res)
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "origins")
	cfg.OutputDir = filepath.Join(root, "output")
	return cfg
}

func testToolbox() *tools.Toolbox {
	return tools.NewToolbox(map[string]string{tools.Avifenc: "/usr/bin/avifenc"})
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"b.png", "a.png", "C.PNG", "z.jpg", "y.GIF", "x.webp",
		"mixed.Png", "notes.txt", "a.png.temp_orig.png",
	} {
		writeFile(t, filepath.Join(dir, name), 10)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	files, err := ListImages(dir)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	assert.Equal(t, []string{"a.png", "b.png", "C.PNG", "z.jpg", "x.webp", "y.GIF"}, names)
}

func TestRun(t *testing.T) {
	cfg := setup(t)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "smile.png"), 4000)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "wink.webp"), 2000)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "bad.gif"), 100)
	writeFile(t, filepath.Join(cfg.InputDir, "B站", "doge.jpg"), 1000)
	// 知乎 has an empty directory, the other platforms none at all
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.InputDir, "知乎"), 0755))

	conv := &stubConverter{}
	obs := &recordingObserver{started: map[string]int{}}
	c := New(cfg, testToolbox(), conv, zaptest.NewLogger(t))
	c.SetObserver(obs)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	r, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"贴吧", "B站"}, r.PlatformOrder())
	assert.Equal(t, 4, r.Summary.TotalFiles)
	assert.Equal(t, 3, r.Summary.SuccessfulFiles)
	assert.Equal(t, int64(7000), r.Summary.TotalOriginalSize)
	assert.Equal(t, int64(3500), r.Summary.TotalNewSize)
	assert.Equal(t, []string{"avifenc"}, r.Configuration.AvailableTools)
	assert.Equal(t, "emoji_compression_report_20260102_030405.json", r.Filename())

	tieba := r.DetailedResults["贴吧"]
	require.Len(t, tieba, 3)
	// png group before webp before gif
	assert.Equal(t, "smile.png", tieba[0].OriginalFile)
	assert.Equal(t, "smile.avif", tieba[0].NewFile)
	assert.Equal(t, "AVIF", tieba[0].OutputFormat)
	assert.Equal(t, "60×60", tieba[0].TargetSize)
	assert.Equal(t, 50.0, tieba[0].CompressionRatio)
	assert.Equal(t, "wink.webp", tieba[1].NewFile)
	assert.Equal(t, "WebP", tieba[1].OutputFormat)
	assert.False(t, tieba[2].Success)
	assert.Contains(t, tieba[2].Error, "unsupported")

	// Outputs land in the platform's mapped directory
	assert.Equal(t, filepath.Join(cfg.OutputDir, "tieba", "smile.avif"), conv.calls[0][1])
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "bilibili", "doge.avif"))

	assert.Equal(t, map[string]int{"贴吧": 3, "B站": 1}, obs.started)
	assert.Len(t, obs.done, 4)
}

func TestRunWithoutTools(t *testing.T) {
	cfg := setup(t)
	c := New(cfg, tools.NewToolbox(nil), &stubConverter{}, zaptest.NewLogger(t))

	_, err := c.Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoTools))
}

func TestRunNothingProcessed(t *testing.T) {
	cfg := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.InputDir, "抖音"), 0755))
	writeFile(t, filepath.Join(cfg.InputDir, "抖音", "readme.txt"), 10)

	c := New(cfg, testToolbox(), &stubConverter{}, zaptest.NewLogger(t))

	_, err := c.Run(context.Background())
	assert.True(t, errors.Is(err, ErrNothingProcessed))
}

func TestRunCancelled(t *testing.T) {
	cfg := setup(t)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "a.png"), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := &stubConverter{}
	c := New(cfg, testToolbox(), conv, zaptest.NewLogger(t))

	_, err := c.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, conv.calls)
}

// cancellingConverter cancels the run once it has converted after files
type cancellingConverter struct {
	stubConverter
	after  int
	cancel context.CancelFunc
}

func (c *cancellingConverter) Convert(ctx context.Context, input, output string) (*converter.Result, error) {
	res, err := c.stubConverter.Convert(ctx, input, output)
	if len(c.calls) == c.after {
		c.cancel()
	}
	return res, err
}

func TestRunCancelledKeepsPartialReport(t *testing.T) {
	cfg := setup(t)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "a.png"), 100)
	writeFile(t, filepath.Join(cfg.InputDir, "贴吧", "b.png"), 100)
	writeFile(t, filepath.Join(cfg.InputDir, "知乎", "c.png"), 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := &cancellingConverter{after: 1, cancel: cancel}
	c := New(cfg, testToolbox(), conv, zaptest.NewLogger(t))

	r, err := c.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, r)
	assert.Len(t, conv.calls, 1)
	assert.Equal(t, []string{"贴吧"}, r.PlatformOrder())
	assert.Equal(t, 1, r.Summary.TotalFiles)
	assert.Equal(t, 1, r.Summary.SuccessfulFiles)
}

func TestProcessFileFailure(t *testing.T) {
	cfg := setup(t)
	c := New(cfg, testToolbox(), &stubConverter{}, zaptest.NewLogger(t))

	res := c.ProcessFile(context.Background(), cfg.Platforms[0], filepath.Join(cfg.InputDir, "贴吧", "bad.png"))
	assert.False(t, res.Success)
	assert.Equal(t, "bad.png", res.OriginalFile)
	assert.Empty(t, res.NewFile)
}
