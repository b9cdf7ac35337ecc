package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker renders transient progress on stderr while files are scanned,
// parsed, and rewritten. Bars render only when stderr is attached to a
// terminal, so piped and redirected runs stay silent, and every bar is
// cleared once its phase finishes.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
}

// interactive reports whether stderr is a terminal.
func interactive() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// NewSpinner creates a spinner for phases with no known total, like
// walking a source tree. The label shows immediately and is cleared by
// FinishSuccess.
func NewSpinner(label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(interactive()),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	bar.RenderBlank()
	return &Tracker{bar: bar, label: label}
}

// NewTracker creates a progress bar over a known number of files.
func NewTracker(label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(interactive() && total > 0),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label}
}

// Tick records one finished unit of work. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t.bar != nil {
		t.bar.Add(1)
	}
}

// FinishSuccess clears the bar, leaving stderr as it was.
func (t *Tracker) FinishSuccess() {
	if t.bar == nil {
		return
	}
	t.bar.Finish()
	t.bar.Clear()
}
