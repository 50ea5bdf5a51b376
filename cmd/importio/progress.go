package main

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

const progressWidth = 30

// progressBar adapts a terminal progress bar to core.Observer. The total
// is either a row count or a byte count; the bar only shows the ratio.
type progressBar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

func (p *progressBar) OnStart(total int64) {
	done := total < 1
	if done {
		total = 1
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
	if done {
		_ = p.bar.Set64(total)
	}
}

func (p *progressBar) OnRowProcessed(progress int64) {
	if p.bar == nil {
		return
	}
	if limit := p.bar.GetMax64(); progress > limit {
		progress = limit
	}
	_ = p.bar.Set64(progress)
}

func (p *progressBar) OnFinish() {
	p.clear()
}

// clear erases the bar so the report starts on a clean line.
func (p *progressBar) clear() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Clear()
	p.bar = nil
}
