package cli

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"emojipress/config"
	"emojipress/report"
)

// progressObserver draws one bar per platform
type progressObserver struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int
	done  int
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (o *progressObserver) PlatformStarted(p config.Platform, files int) {
	o.finish()
	o.total, o.done = files, 0
	o.bar = progressbar.NewOptions(files,
		progressbar.OptionSetWriter(o.w),
		progressbar.OptionSetDescription(p.Name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { io.WriteString(o.w, "\n") }),
	)
}

func (o *progressObserver) FileDone(_ config.Platform, _ report.FileResult) {
	if o.bar != nil {
		o.done++
		o.bar.Add(1)
	}
}

func (o *progressObserver) finish() {
	if o.bar != nil && o.done < o.total {
		o.bar.Finish()
	}
	o.bar = nil
}
