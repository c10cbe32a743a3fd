package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// UploadBar renders a backup upload as an mpb progress bar with byte
// counters, percentage, speed and ETA. On a non-terminal (piped output) it
// degrades to plain start/finish lines. Implements Reporter.
type UploadBar struct {
	progress   *mpb.Progress
	bar        *mpb.Bar
	isTerminal bool
	filename   string
	total      int64
	lastBytes  int64
	lastUpdate time.Time
}

// NewUploadBar creates the upload display. Call Wait after the upload
// settles to flush the bar.
func NewUploadBar(filename string) *UploadBar {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableWindowsANSI(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadBar{
		progress:   p,
		isTerminal: isTerminal,
		filename:   filename,
	}
}

// Start creates the bar once the total size is known.
func (u *UploadBar) Start(total int64, description string) {
	u.total = total
	u.lastUpdate = time.Now()

	if !u.isTerminal {
		fmt.Fprintf(os.Stderr, "Uploading %s (%.1f MiB)\n", u.filename, float64(total)/(1024*1024))
		return
	}

	u.bar = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("%s (%.1f MiB)", u.filename, float64(total)/(1024*1024)), decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			decor.Name("  ETA "),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)
}

// Update advances the bar. EwmaIncrBy needs the elapsed interval to keep
// speed and ETA honest, so updates carry the time delta.
func (u *UploadBar) Update(current int64) {
	if u.bar == nil {
		return
	}
	now := time.Now()
	u.bar.EwmaIncrBy(int(current-u.lastBytes), now.Sub(u.lastUpdate))
	u.lastBytes = current
	u.lastUpdate = now
}

// Finish fills the bar to completion.
func (u *UploadBar) Finish() {
	if u.bar != nil {
		u.bar.SetCurrent(u.total)
	} else if !u.isTerminal {
		fmt.Fprintf(os.Stderr, "Upload of %s complete\n", u.filename)
	}
}

// Error aborts the bar so it does not linger at a partial fill.
func (u *UploadBar) Error(err error) {
	if err == nil {
		return
	}
	if u.bar != nil {
		u.bar.Abort(false)
	}
	fmt.Fprintf(os.Stderr, "\nUpload failed: %v\n", err)
}

// SetDescription is fixed at creation for the single-file bar.
func (u *UploadBar) SetDescription(desc string) {}

// Wait blocks until the bar has rendered its final state.
func (u *UploadBar) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints above the live bar.
func (u *UploadBar) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}
