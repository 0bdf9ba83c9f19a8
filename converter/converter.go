// Package converter turns one source image into a resized AVIF or WebP file.
//
// Every step is a chain of external binaries tried in order; whatever is
// installed wins. The pipeline is:
//  1. sniff the real format of the input
//  2. bring it to PNG (dwebp, avifdec, or an in-process decoder)
//  3. fit it into a size×size box (sips, convert, magick, or in-process)
//  4. encode to AVIF with avifenc, falling back to WebP with cwebp
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"emojipress/common"
	"emojipress/config"
	"emojipress/tools"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecodeFailed      = errors.New("conversion to png failed")
	ErrEncodeFailed      = errors.New("encoding failed")
)

// OutputFormat is the format of a produced file as shown in reports
type OutputFormat string

const (
	OutputAVIF OutputFormat = "AVIF"
	OutputWebP OutputFormat = "WebP"
)

// ResizeBuiltin names the in-process resizer in results
const ResizeBuiltin = "builtin"

// Options controls encoder parameters and fallbacks
type Options struct {
	TargetSize  int
	Quality     int
	WebPQuality int
	AVIFSpeed   int
	WebPMethod  int
	Format      string
	Builtin     bool
}

// OptionsFromConfig derives converter options from the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TargetSize:  cfg.TargetSize,
		Quality:     cfg.Quality,
		WebPQuality: cfg.WebPQuality(),
		AVIFSpeed:   cfg.Encoders.AVIFSpeed,
		WebPMethod:  cfg.Encoders.WebPMethod,
		Format:      cfg.Format,
		Builtin:     cfg.Builtin,
	}
}

// Result describes one converted file
type Result struct {
	Input        string
	Output       string
	SourceFormat common.Format
	OutputFormat OutputFormat
	OriginalSize int64
	NewSize      int64
	// ResizeTool is empty when the image kept its original dimensions
	ResizeTool string
}

// Converter runs the single-file pipeline
type Converter struct {
	tools  *tools.Toolbox
	runner tools.Runner
	opts   Options
	logger *zap.Logger
}

// New creates a converter using the given toolbox and runner
func New(tb *tools.Toolbox, runner tools.Runner, opts Options, logger *zap.Logger) *Converter {
	return &Converter{
		tools:  tb,
		runner: runner,
		opts:   opts,
		logger: logger,
	}
}

// Convert processes input and writes the result next to output, whose
// extension is swapped to match the format actually produced.
func (c *Converter) Convert(ctx context.Context, input, output string) (*Result, error) {
	source := common.DetectFormat(input)
	log := c.logger.With(zap.String("file", filepath.Base(input)))

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tempOrig := common.IntermediateName(input, "orig")
	tempResized := common.IntermediateName(input, "resized")
	defer cleanup(input, tempOrig, tempResized)

	png, err := c.toPNG(ctx, log, source, input, tempOrig)
	if err != nil {
		return nil, err
	}

	resized, resizeTool := c.resize(ctx, log, png, tempResized)

	outPath, outFormat, err := c.encode(ctx, log, resized, output)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	var newSize int64
	if out, err := os.Stat(outPath); err == nil {
		newSize = out.Size()
	}

	return &Result{
		Input:        input,
		Output:       outPath,
		SourceFormat: source,
		OutputFormat: outFormat,
		OriginalSize: info.Size(),
		NewSize:      newSize,
		ResizeTool:   resizeTool,
	}, nil
}

// toPNG returns a path to a PNG rendition of input
func (c *Converter) toPNG(ctx context.Context, log *zap.Logger, source common.Format, input, tmp string) (string, error) {
	switch source {
	case common.FormatPNG:
		return input, nil

	case common.FormatWebP:
		if c.tools.Has(tools.Dwebp) {
			err := c.runner.Run(ctx, tools.Dwebp, input, "-o", tmp)
			if err == nil {
				log.Info("WebP -> PNG converted", zap.String("tool", tools.Dwebp))
				return tmp, nil
			}
			log.Warn("dwebp failed", zap.Error(err))
		}
		if c.opts.Builtin {
			err := transcodePNG(input, tmp)
			if err == nil {
				log.Info("WebP -> PNG converted", zap.String("tool", "builtin"))
				return tmp, nil
			}
			log.Warn("builtin WebP decode failed", zap.Error(err))
		}
		return "", fmt.Errorf("%w: webp", ErrDecodeFailed)

	case common.FormatAVIF:
		if c.tools.Has(tools.Avifdec) {
			err := c.runner.Run(ctx, tools.Avifdec, input, tmp)
			if err == nil {
				log.Info("AVIF -> PNG converted", zap.String("tool", tools.Avifdec))
				return tmp, nil
			}
			log.Warn("avifdec failed", zap.Error(err))
		}
		return "", fmt.Errorf("%w: avif", ErrDecodeFailed)

	case common.FormatJPEG:
		if c.opts.Builtin {
			err := transcodePNG(input, tmp)
			if err == nil {
				return tmp, nil
			}
			log.Warn("builtin JPEG decode failed, passing bytes through", zap.Error(err))
		}
		// Downstream tools sniff content, so the JPEG bytes work under a .png name
		if err := copyFile(input, tmp, 0644); err != nil {
			return "", fmt.Errorf("%w: jpeg: %v", ErrDecodeFailed, err)
		}
		return tmp, nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
}

// resize fits png into the target box, returning the path to use next and
// the tool that did it. When every resizer fails the original PNG is kept.
func (c *Converter) resize(ctx context.Context, log *zap.Logger, png, tmp string) (string, string) {
	size := c.opts.TargetSize
	box := fmt.Sprintf("%dx%d", size, size)

	steps := []struct {
		tool string
		args []string
	}{
		{tools.Sips, []string{"-Z", fmt.Sprint(size), png, "--out", tmp}},
		{tools.Convert, []string{png, "-resize", box, tmp}},
		{tools.Magick, []string{png, "-resize", box, tmp}},
	}

	for _, step := range steps {
		if !c.tools.Has(step.tool) {
			continue
		}
		if err := c.runner.Run(ctx, step.tool, step.args...); err != nil {
			log.Warn("resize failed", zap.String("tool", step.tool), zap.Error(err))
			continue
		}
		log.Info("resized", zap.String("tool", step.tool), zap.String("box", box))
		return tmp, step.tool
	}

	if c.opts.Builtin {
		err := resizePNG(png, tmp, size)
		if err == nil {
			log.Info("resized", zap.String("tool", ResizeBuiltin), zap.String("box", box))
			return tmp, ResizeBuiltin
		}
		log.Warn("builtin resize failed", zap.Error(err))
	}

	log.Warn("resize failed, keeping original dimensions")
	return png, ""
}

// encode writes the final file, preferring AVIF and falling back to WebP
func (c *Converter) encode(ctx context.Context, log *zap.Logger, png, output string) (string, OutputFormat, error) {
	if c.opts.Format == config.FormatAVIF && c.tools.Has(tools.Avifenc) {
		out := common.SwapExt(output, ".avif")
		err := c.runner.Run(ctx, tools.Avifenc,
			"-q", fmt.Sprint(c.opts.Quality),
			"-s", fmt.Sprint(c.opts.AVIFSpeed),
			png, out,
		)
		if err == nil {
			log.Info("PNG -> AVIF encoded")
			return out, OutputAVIF, nil
		}
		log.Warn("avifenc failed, falling back to WebP", zap.Error(err))
		os.Remove(out)
	}

	if c.tools.Has(tools.Cwebp) {
		out := common.SwapExt(output, ".webp")
		err := c.runner.Run(ctx, tools.Cwebp,
			"-q", fmt.Sprint(c.opts.WebPQuality),
			"-m", fmt.Sprint(c.opts.WebPMethod),
			png, "-o", out,
		)
		if err == nil {
			log.Info("PNG -> WebP encoded")
			return out, OutputWebP, nil
		}
		log.Warn("cwebp failed", zap.Error(err))
		os.Remove(out)
	}

	return "", "", ErrEncodeFailed
}

// cleanup removes intermediates; the input itself is never touched
func cleanup(input string, temps ...string) {
	for _, tmp := range temps {
		if tmp == input {
			continue
		}
		if _, err := os.Stat(tmp); err == nil {
			os.Remove(tmp)
		}
	}
}
