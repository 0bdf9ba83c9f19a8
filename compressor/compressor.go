// Package compressor walks the platform directories and converts every
// image found, sequentially, collecting per-file results.
package compressor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"emojipress/common"
	"emojipress/config"
	"emojipress/converter"
	"emojipress/report"
	"emojipress/tools"
)

var (
	ErrNoTools          = errors.New("no conversion tools found")
	ErrNothingProcessed = errors.New("no files were processed")
)

// FileConverter converts a single file; implemented by converter.Converter
type FileConverter interface {
	Convert(ctx context.Context, input, output string) (*converter.Result, error)
}

// Observer is told about progress; all methods are called from Run's goroutine
type Observer interface {
	PlatformStarted(p config.Platform, files int)
	FileDone(p config.Platform, result report.FileResult)
}

// Compressor converts the images of every configured platform
type Compressor struct {
	cfg      *config.Config
	tools    *tools.Toolbox
	conv     FileConverter
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// New creates a compressor
func New(cfg *config.Config, tb *tools.Toolbox, conv FileConverter, logger *zap.Logger) *Compressor {
	return &Compressor{
		cfg:    cfg,
		tools:  tb,
		conv:   conv,
		logger: logger,
		now:    time.Now,
	}
}

// SetObserver registers a progress observer
func (c *Compressor) SetObserver(o Observer) {
	c.observer = o
}

// InputDir returns the directory holding the platform's source images
func (c *Compressor) InputDir(p config.Platform) string {
	return filepath.Join(c.cfg.InputDir, p.Name)
}

// OutputDir returns the directory receiving the platform's converted images
func (c *Compressor) OutputDir(p config.Platform) string {
	return filepath.Join(c.cfg.OutputDir, p.Dir)
}

// Run converts every platform in order and builds the report. When the run
// stops early, e.g. on cancellation, the report covers the files already
// converted and is returned together with the error.
func (c *Compressor) Run(ctx context.Context) (*report.Report, error) {
	if c.tools.Empty() {
		return nil, ErrNoTools
	}

	c.logger.Info("starting",
		zap.String("input", c.cfg.InputDir),
		zap.String("output", c.cfg.OutputDir),
		zap.String("target", c.cfg.TargetLabel()),
		zap.Int("quality", c.cfg.Quality),
		zap.Strings("tools", c.tools.Available()),
	)

	var platforms []report.PlatformResults
	for _, p := range c.cfg.Platforms {
		results, err := c.ProcessPlatform(ctx, p)
		if len(results) > 0 {
			platforms = append(platforms, report.PlatformResults{Name: p.Name, Results: results})
		}
		if err != nil {
			if len(platforms) == 0 {
				return nil, err
			}
			c.logger.Warn("run interrupted, reporting partial results", zap.Error(err))
			return c.buildReport(platforms), err
		}
	}

	if len(platforms) == 0 {
		return nil, ErrNothingProcessed
	}
	return c.buildReport(platforms), nil
}

func (c *Compressor) buildReport(platforms []report.PlatformResults) *report.Report {
	cfg := report.Configuration{
		InputDirectory:  c.cfg.InputDir,
		OutputDirectory: c.cfg.OutputDir,
		TargetSize:      c.cfg.TargetLabel(),
		Quality:         c.cfg.Quality,
		Format:          c.cfg.Format,
		AvailableTools:  c.tools.Available(),
	}
	return report.Build(cfg, platforms, c.cfg.Quality, c.now())
}

// ProcessPlatform converts every image of one platform. A missing or empty
// input directory yields no results and no error. On cancellation the
// results gathered so far are returned with the context error.
func (c *Compressor) ProcessPlatform(ctx context.Context, p config.Platform) ([]report.FileResult, error) {
	log := c.logger.With(zap.String("platform", p.Name))
	dir := c.InputDir(p)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Warn("platform directory does not exist", zap.String("dir", dir))
		return nil, nil
	}

	files, err := ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		log.Warn("no images in platform directory", zap.String("dir", dir))
		return nil, nil
	}

	log.Info("processing platform", zap.Int("files", len(files)), zap.String("target", c.cfg.TargetLabel()))
	if c.observer != nil {
		c.observer.PlatformStarted(p, len(files))
	}

	results := make([]report.FileResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := c.ProcessFile(ctx, p, file)
		results = append(results, result)
		if c.observer != nil {
			c.observer.FileDone(p, result)
		}
	}

	c.logPlatformSummary(log, results)
	return results, nil
}

// ProcessFile converts one image of a platform into the platform's output dir
func (c *Compressor) ProcessFile(ctx context.Context, p config.Platform, file string) report.FileResult {
	name := filepath.Base(file)
	log := c.logger.With(zap.String("platform", p.Name), zap.String("file", name))

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	output := filepath.Join(c.OutputDir(p), stem+".avif")

	res, err := c.conv.Convert(ctx, file, output)
	if err != nil {
		log.Warn("conversion failed", zap.Error(err))
		return report.FileResult{
			OriginalFile: name,
			Error:        err.Error(),
		}
	}

	result := report.FileResult{
		OriginalFile:     name,
		NewFile:          filepath.Base(res.Output),
		OutputFormat:     string(res.OutputFormat),
		OriginalSize:     res.OriginalSize,
		NewSize:          res.NewSize,
		CompressionRatio: report.Ratio(res.OriginalSize, res.NewSize),
		TargetSize:       c.cfg.TargetLabel(),
		Success:          true,
	}

	log.Info("converted",
		zap.Int64("from", result.OriginalSize),
		zap.Int64("to", result.NewSize),
		zap.String("format", result.OutputFormat),
		zap.String("ratio", fmt.Sprintf("%.1f%%", result.CompressionRatio)),
	)
	return result
}

func (c *Compressor) logPlatformSummary(log *zap.Logger, results []report.FileResult) {
	stats := report.Stats(results)
	if stats.SuccessfulFiles == 0 {
		return
	}

	formats := make([]string, 0, len(stats.Formats))
	for f, n := range stats.Formats {
		formats = append(formats, fmt.Sprintf("%s:%d", f, n))
	}
	sort.Strings(formats)

	log.Info("platform done",
		zap.String("converted", fmt.Sprintf("%d/%d", stats.SuccessfulFiles, stats.TotalFiles)),
		zap.String("original", report.Bytes(stats.OriginalSize)),
		zap.String("compressed", report.Bytes(stats.NewSize)),
		zap.String("ratio", fmt.Sprintf("%.1f%%", stats.CompressionRatio)),
		zap.String("saved", report.Bytes(stats.Saved())),
		zap.String("formats", strings.Join(formats, ", ")),
	)
}

// ListImages returns the images directly inside dir, grouped by extension
// (lower-case spelling first) and sorted by name within a group
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		name string
		rank int
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || common.IsIntermediate(e.Name()) {
			continue
		}
		if rank := common.ExtensionRank(e.Name()); rank >= 0 {
			found = append(found, candidate{e.Name(), rank})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].rank != found[j].rank {
			return found[i].rank < found[j].rank
		}
		return found[i].name < found[j].name
	})

	files := make([]string, len(found))
	for i, f := range found {
		files[i] = filepath.Join(dir, f.name)
	}
	return files, nil
}
