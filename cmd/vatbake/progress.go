package main

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Faultbox/midgard-vat/internal/logger"
)

// logStep is the percentage between progress log lines when no terminal
// is attached.
const logStep = 10

// progress renders bake progress as a bar on a terminal and as log lines
// otherwise.
type progress struct {
	bar      *progressbar.ProgressBar
	title    string
	nextLog  int
	finished bool
}

func newProgress(w io.Writer, title string) *progress {
	p := &progress{title: title}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(title),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

// Report is a vat.ProgressFunc.
func (p *progress) Report(percent int) {
	if p.bar != nil {
		_ = p.bar.Set(percent)
		return
	}
	if percent >= p.nextLog {
		logger.Info(p.title, zap.Int("percent", percent))
		p.nextLog = (percent/logStep + 1) * logStep
	}
}

// Finish clears the bar.
func (p *progress) Finish() {
	if p.bar != nil && !p.finished {
		_ = p.bar.Finish()
	}
	p.finished = true
}
