package cli

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/teamcutter/cellar/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func withSpinner(ctx context.Context, desc string) (stop func()) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				spinner.Finish()
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
	return func() {
		close(done)
		spinner.Finish()
	}
}

// newProgressSink renders the pipeline's phased 0..1 sweep as one bar,
// relabelled whenever the phase changes.
func newProgressSink() domain.ProgressFunc {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionClearOnFinish(),
	)
	var lastPhase string
	return func(phase string, fraction float64) {
		if phase != lastPhase {
			lastPhase = phase
			bar.Describe(phase)
		}
		_ = bar.Set(int(fraction * 100))
	}
}
