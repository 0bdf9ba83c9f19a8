package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emojipress/common"
	"emojipress/tools"
)

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the conversion tools found on PATH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tb := tools.Detect(nil, zap.NewNop())
			printTools(cmd, tb)
			if tb.Empty() {
				printInstallHints(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func printTools(cmd *cobra.Command, tb *tools.Toolbox) {
	out := cmd.OutOrStdout()
	for _, name := range tools.Known {
		if tb.Has(name) {
			fmt.Fprintf(out, "%s %-8s %s\n", success("✓"), name, muted(tb.Path(name)))
		} else {
			fmt.Fprintf(out, "%s %-8s %s\n", failure("✗"), name, muted("not found"))
		}
	}
}

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Print the real format of files by their magic bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				fmt.Fprintf(out, "%s: %s\n", path, common.DetectFormat(path))
			}
			return nil
		},
	}
}
