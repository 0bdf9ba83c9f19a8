package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
)

const ruleWidth = 70

// Bytes renders a byte count for humans, keeping the sign of negative savings
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Rule is the horizontal separator between console sections
func Rule() string {
	return strings.Repeat("=", ruleWidth)
}

// Headline is a one-line summary of the run
func (r *Report) Headline() string {
	s := r.Summary
	return fmt.Sprintf("%d/%d files converted to %s, %s saved (%.1f%%)",
		s.SuccessfulFiles, s.TotalFiles, s.TargetSize, Bytes(s.SpaceSaved), s.OverallCompressionRatio)
}

// WriteText renders the final report for the console
func (r *Report) WriteText(w io.Writer) {
	s := r.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, Rule())
	fmt.Fprintln(w, color.Bold.Sprint("Compression report"))
	fmt.Fprintln(w, Rule())

	fmt.Fprintln(w, color.Cyan.Sprint("Overall"))
	fmt.Fprintf(w, "  Files:        %d\n", s.TotalFiles)
	fmt.Fprintf(w, "  Converted:    %d\n", s.SuccessfulFiles)
	fmt.Fprintf(w, "  Success rate: %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "  Target size:  %s\n", s.TargetSize)

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Cyan.Sprint("Output formats"))
	for _, f := range r.formatOrder {
		fmt.Fprintf(w, "  %s: %d files\n", f, s.FormatDistribution[f])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Cyan.Sprint("Storage"))
	fmt.Fprintf(w, "  Original:     %s\n", Bytes(s.TotalOriginalSize))
	fmt.Fprintf(w, "  Compressed:   %s\n", Bytes(s.TotalNewSize))
	fmt.Fprintf(w, "  Saved:        %s\n", Bytes(s.SpaceSaved))
	fmt.Fprintf(w, "  Ratio:        %.1f%%\n", s.OverallCompressionRatio)

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Cyan.Sprint("Platforms"))
	fmt.Fprintln(w, r.platformTable())
}

func (r *Report) platformTable() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Platform", "OK/Total", "Ratio", "Main format", "Saved")

	for _, name := range r.platformOrder {
		p := r.Platforms[name]
		t.Row(
			name,
			fmt.Sprintf("%d/%d", p.SuccessfulFiles, p.TotalFiles),
			fmt.Sprintf("%.1f%%", p.CompressionRatio),
			p.MainFormat,
			Bytes(p.Saved()),
		)
	}
	return t.Render()
}

// PlainText renders the report without terminal colors
func (r *Report) PlainText() string {
	var b strings.Builder
	r.WriteText(&b)
	return color.ClearCode(b.String())
}
