package cli

import (
	"strings"

	"github.com/gookit/color"
)

var (
	headingStyle = color.New(color.FgCyan, color.OpBold)
	successStyle = color.New(color.FgGreen, color.OpBold)
	failureStyle = color.New(color.FgRed, color.OpBold)
	mutedStyle   = color.New(color.FgGray)
)

func heading(s string) string { return headingStyle.Sprint(s) }
func success(s string) string { return successStyle.Sprint(s) }
func failure(s string) string { return failureStyle.Sprint(s) }
func muted(s string) string   { return mutedStyle.Sprint(s) }

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
