// Package cli wires configuration, tools and the pipeline into cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emojipress/compressor"
	"emojipress/config"
	"emojipress/converter"
	"emojipress/deployer"
	"emojipress/logging"
	"emojipress/notify"
	"emojipress/report"
	"emojipress/tools"
)

type options struct {
	configPath string
	input      string
	output     string
	size       int
	quality    int
	format     string
	reportDir  string
	quiet      bool
	progress   bool
	noBuiltin  bool
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emojipress",
		Short: "Batch-convert platform emoji folders into small AVIF/WebP files",
		Long: `emojipress reads every platform folder under the input directory, fits
each image into a square box and encodes it with whichever of avifenc,
cwebp, dwebp, avifdec, sips and ImageMagick are installed. A JSON report
with per-file and per-platform statistics is written after every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVarP(&opts.input, "input", "i", "", "input directory (default: origins)")
	f.StringVarP(&opts.output, "output", "o", "", "output directory (default: output)")
	f.IntVarP(&opts.size, "size", "s", 0, "target size in pixels (default: 60)")
	f.IntVarP(&opts.quality, "quality", "q", 0, "compression quality 0-100 (default: 50)")
	f.StringVarP(&opts.format, "format", "f", "", "preferred output format: avif or webp")
	f.StringVar(&opts.reportDir, "report-dir", "", "directory receiving the JSON report")
	f.BoolVar(&opts.quiet, "quiet", false, "hide progress logging")
	f.BoolVar(&opts.noBuiltin, "no-builtin", false, "disable in-process decode/resize fallbacks")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar per platform")

	cmd.AddCommand(newToolsCommand(), newDetectCommand(), newWatchCommand(opts))
	return cmd
}

// loadConfig layers flags over the config file, environment and defaults
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputDir = opts.input
	}
	if flags.Changed("output") {
		cfg.OutputDir = opts.output
	}
	if flags.Changed("size") {
		cfg.TargetSize = opts.size
	}
	if flags.Changed("quality") {
		cfg.Quality = opts.quality
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("report-dir") {
		cfg.ReportDir = opts.reportDir
	}
	if opts.quiet {
		cfg.Verbose = false
	}
	if opts.noBuiltin {
		cfg.Builtin = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app holds everything a command needs after setup
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	tools      *tools.Toolbox
	compressor *compressor.Compressor
	notifier   *notify.Dispatcher
	deployer   *deployer.Deployer
}

func setup(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tb := tools.Detect(nil, logger)
	runner := tools.NewExecRunner(logger)
	conv := converter.New(tb, runner, converter.OptionsFromConfig(cfg), logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		tools:      tb,
		compressor: compressor.New(cfg, tb, conv, logger),
		notifier:   notify.NewDispatcher(cfg.Notify, logger),
		deployer:   deployer.NewDeployer(cfg.Deploy, runner, logger),
	}, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runConvert(cmd *cobra.Command, opts *options) error {
	a, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	out := cmd.OutOrStdout()
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	printBanner(out, a)

	if opts.progress {
		a.compressor.SetObserver(newProgressObserver(cmd.ErrOrStderr()))
	}

	r, err := a.compressor.Run(ctx)
	switch {
	case errors.Is(err, compressor.ErrNoTools):
		printInstallHints(out)
		return err
	case errors.Is(err, compressor.ErrNothingProcessed):
		fmt.Fprintln(out, failure("No files were processed, check the input directory"))
		return err
	case err != nil && r == nil:
		return err
	case err != nil:
		// Interrupted: keep a record of what is already on disk
		fmt.Fprintln(out, failure("Run interrupted, saving a partial report"))
		if _, saveErr := saveReport(out, a, r); saveErr != nil {
			a.logger.Error("failed to save partial report", zap.Error(saveErr))
		}
		return err
	}

	if _, err := saveReport(out, a, r); err != nil {
		return err
	}

	if err := a.notifier.Notify(ctx, r); err != nil {
		a.logger.Warn("some notifications failed", zap.Error(err))
	}
	if err := a.deployer.Deploy(ctx, a.cfg.OutputDir); err != nil {
		a.logger.Error("deployment failed", zap.Error(err))
	}

	fmt.Fprintln(out, success(fmt.Sprintf("\nDone! Every emoji now fits %s.", a.cfg.TargetLabel())))
	return nil
}

// saveReport prints r and writes its JSON file to the report dir
func saveReport(out io.Writer, a *app, r *report.Report) (string, error) {
	r.WriteText(out)

	path, err := r.Save(a.cfg.ReportDir)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(out, "\nReport saved to %s\n", path)
	fmt.Fprintf(out, "Converted files are in %s/\n", a.cfg.OutputDir)
	return path, nil
}

func printBanner(w io.Writer, a *app) {
	fmt.Fprintln(w, heading("emojipress"))
	fmt.Fprintln(w, report.Rule())
	fmt.Fprintf(w, "  Input:   %s\n", a.cfg.InputDir)
	fmt.Fprintf(w, "  Output:  %s\n", a.cfg.OutputDir)
	fmt.Fprintf(w, "  Target:  %s\n", a.cfg.TargetLabel())
	fmt.Fprintf(w, "  Quality: %d\n", a.cfg.Quality)
	fmt.Fprintf(w, "  Format:  %s\n", a.cfg.Format)
	fmt.Fprintf(w, "  Tools:   %s\n", joinOrNone(a.tools.Available()))
}

func printInstallHints(w io.Writer) {
	fmt.Fprintln(w, failure("No conversion tools found. Install at least one of:"))
	fmt.Fprintln(w, "  - libavif:     brew install libavif   / apt install libavif-bin")
	fmt.Fprintln(w, "  - webp:        brew install webp      / apt install webp")
	fmt.Fprintln(w, "  - ImageMagick: brew install imagemagick (optional)")
}
