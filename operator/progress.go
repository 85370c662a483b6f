package operator

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress draws a batch progress bar.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress returns a bar of total steps labelled desc, drawn on w.
func NewProgress(w io.Writer, total int, desc string) *Progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", desc)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &Progress{bar: bar}
}

// Update moves the bar to done of total. Its signature matches
// translate.Options.OnProgress.
func (p *Progress) Update(done, total int) {
	if p == nil {
		return
	}
	if int64(total) != p.bar.GetMax64() {
		p.bar.ChangeMax(total)
	}
	_ = p.bar.Set(done)
}

// Finish completes the bar and ends its line.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
