// Package progress provides progress reporting for backup uploads, with
// terminal and event-bus backends behind one interface.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/events"
)

// Reporter receives byte-level progress during an upload.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress renders a single progress bar on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a terminal progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current byte position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message below the bar.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the bar label.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// BusProgress publishes progress onto the event bus so observers (status
// lines, alternate frontends) can render it. Updates are throttled; the
// terminal event always goes out.
type BusProgress struct {
	eventBus  *events.EventBus
	filename  string
	total     int64
	lastSent  time.Time
	lastBytes int64
}

// NewBusProgress creates an event-bus progress reporter for one upload.
func NewBusProgress(eventBus *events.EventBus, filename string) *BusProgress {
	return &BusProgress{
		eventBus: eventBus,
		filename: filename,
	}
}

// Start records the total and publishes the zero-progress event.
func (p *BusProgress) Start(total int64, description string) {
	p.total = total
	p.lastBytes = 0
	p.publish(0, false)
}

// Update publishes the current position, rate-limited.
func (p *BusProgress) Update(current int64) {
	if time.Since(p.lastSent) < constants.ProgressUpdateInterval && current < p.total {
		return
	}
	p.publish(current, false)
}

// Finish publishes the 100% event.
func (p *BusProgress) Finish() {
	p.publish(p.total, true)
}

// Error publishes an upload error event.
func (p *BusProgress) Error(err error) {
	if err == nil {
		return
	}
	p.eventBus.Publish(&events.UploadEvent{
		BaseEvent:    events.BaseEvent{EventType: events.EventUploadProgress, Time: time.Now()},
		Filename:     p.filename,
		BytesCurrent: p.lastBytes,
		BytesTotal:   p.total,
		Percent:      percent(p.lastBytes, p.total),
		Err:          err,
	})
}

// SetDescription is unused by the bus backend.
func (p *BusProgress) SetDescription(desc string) {}

func (p *BusProgress) publish(current int64, force bool) {
	p.lastSent = time.Now()
	p.lastBytes = current
	p.eventBus.Publish(&events.UploadEvent{
		BaseEvent:    events.BaseEvent{EventType: events.EventUploadProgress, Time: p.lastSent},
		Filename:     p.filename,
		BytesCurrent: current,
		BytesTotal:   p.total,
		Percent:      percent(current, p.total),
	})
}

func percent(current, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(current * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// NoOpProgress discards all progress (background and test use).
type NoOpProgress struct{}

// NewNoOpProgress creates a reporter that does nothing.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// ProgressReader wraps an io.Reader to report bytes as they are consumed.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
	}
}

// Read implements io.Reader, forwarding the running byte count.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (pr *ProgressReader) BytesRead() int64 {
	return pr.current
}

// MultiReporter fans progress out to several reporters (e.g. a terminal bar
// plus the event bus).
type MultiReporter []Reporter

func (m MultiReporter) Start(total int64, description string) {
	for _, r := range m {
		r.Start(total, description)
	}
}

func (m MultiReporter) Update(current int64) {
	for _, r := range m {
		r.Update(current)
	}
}

func (m MultiReporter) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

func (m MultiReporter) Error(err error) {
	for _, r := range m {
		r.Error(err)
	}
}

func (m MultiReporter) SetDescription(desc string) {
	for _, r := range m {
		r.SetDescription(desc)
	}
}
