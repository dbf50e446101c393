package engine

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/datallboy/gohls/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// CLIProgress renders progress events on a terminal, or as plain lines when
// the output is not a TTY (pipes, Docker logs).
type CLIProgress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
	bytes       int64
}

func NewCLIProgress(out *os.File) *CLIProgress {
	return &CLIProgress{
		out:         out,
		interactive: term.IsTerminal(int(out.Fd())),
	}
}

// newPlainProgress always renders plain lines to w.
func newPlainProgress(w io.Writer) *CLIProgress {
	return &CLIProgress{out: w}
}

// Observe is meant to be passed as the run's progress callback.
func (p *CLIProgress) Observe(ev domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bytes += ev.Bytes

	if !p.interactive {
		p.renderLine(ev)
		return
	}

	if p.bar == nil {
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("segments"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	if ev.Outcome == domain.OutcomeFailed {
		fmt.Fprintf(p.out, "\n❌ Failed to download %s: %s\n", ev.Filename, ev.Reason)
	}

	p.bar.Describe(fmt.Sprintf("%s | %s", ev.Filename, humanize.Bytes(uint64(p.bytes))))
	_ = p.bar.Set(ev.Decided)
}

func (p *CLIProgress) renderLine(ev domain.ProgressEvent) {
	switch ev.Outcome {
	case domain.OutcomeSkipped:
		fmt.Fprintf(p.out, "⏭️  Progress: %d/%d (%.1f%%) - Skipped: %s (already exists)\n", ev.Decided, ev.Total, ev.Percent, ev.Filename)
	case domain.OutcomeDownloaded:
		fmt.Fprintf(p.out, "✓ Progress: %d/%d (%.1f%%) - Downloaded: %s (%s)\n", ev.Decided, ev.Total, ev.Percent, ev.Filename, humanize.Bytes(uint64(ev.Bytes)))
	case domain.OutcomeFailed:
		fmt.Fprintf(p.out, "❌ Progress: %d/%d (%.1f%%) - Failed: %s: %s\n", ev.Decided, ev.Total, ev.Percent, ev.Filename, ev.Reason)
	}
}

// Finish closes the bar, if one was drawn.
func (p *CLIProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
	}
}

// Bytes is the total downloaded so far.
func (p *CLIProgress) Bytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}
