package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emojipress/compressor"
	"emojipress/watcher"
)

func newWatchCommand(opts *options) *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert images as they are dropped into platform folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			out := cmd.OutOrStdout()
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if a.tools.Empty() {
				printInstallHints(out)
				return compressor.ErrNoTools
			}

			printBanner(out, a)

			if initial {
				r, err := a.compressor.Run(ctx)
				switch {
				case errors.Is(err, compressor.ErrNothingProcessed):
					a.logger.Info("initial run found nothing to convert")
				case err != nil:
					if r != nil {
						if _, saveErr := saveReport(out, a, r); saveErr != nil {
							a.logger.Error("failed to save partial report", zap.Error(saveErr))
						}
					}
					return err
				default:
					if _, err := saveReport(out, a, r); err != nil {
						a.logger.Error("failed to save report", zap.Error(err))
					}
				}
			}

			w, err := watcher.NewWatcher(a.cfg, a.compressor, a.logger)
			if err != nil {
				return err
			}
			n, err := w.Start()
			if err != nil {
				w.Stop()
				return err
			}
			fmt.Fprintf(out, "Watching %d platform folders, press Ctrl+C to stop\n", n)

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out, muted("Stopping watcher..."))
					return w.Stop()
				case ev := <-w.Events():
					printEvent(cmd, ev)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", false, "convert existing images before watching")
	return cmd
}

func printEvent(cmd *cobra.Command, ev watcher.Event) {
	out := cmd.OutOrStdout()
	r := ev.Result
	if !r.Success {
		fmt.Fprintf(out, "%s [%s] %s: %s\n", failure("✗"), ev.Platform, r.OriginalFile, r.Error)
		return
	}
	fmt.Fprintf(out, "%s [%s] %s → %s (%s, %.1f%% smaller)\n",
		success("✓"), ev.Platform, r.OriginalFile, r.NewFile, r.OutputFormat, r.CompressionRatio)
}
