// Package upload submits backup files for validation. Every submission runs
// local checks first, then streams the file with continuous progress; there
// is no cancellation and no automatic retry.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/proofback/proofback-cli/internal/events"
	"github.com/proofback/proofback-cli/internal/models"
	"github.com/proofback/proofback-cli/internal/progress"
)

// ErrUploadInFlight - a submission is already running; the controller
// handles one backup at a time.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// State is the submission lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Service is the slice of the API client the controller needs.
type Service interface {
	UploadBackup(ctx context.Context, path string, reporter progress.Reporter) (*models.TestRun, error)
}

// Controller runs one backup submission at a time.
type Controller struct {
	svc      Service
	eventBus *events.EventBus

	mu       sync.Mutex
	state    State
	filename string
	percent  int
	result   *models.TestRun
	errMsg   string
}

// NewController creates an idle controller.
func NewController(svc Service, bus *events.EventBus) *Controller {
	return &Controller{svc: svc, eventBus: bus, state: StateIdle}
}

// Status returns the current lifecycle state and progress percentage.
func (c *Controller) Status() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.percent
}

// Result returns the run created by the last successful submission, or nil.
func (c *Controller) Result() *models.TestRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// ErrorMessage returns the failure reason of the last submission, or "".
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Submit validates and uploads one backup file. A settled state (succeeded
// or failed) is left in place for inspection and replaced on the next
// attempt. reporter may be nil.
func (c *Controller) Submit(ctx context.Context, path string, reporter progress.Reporter) (*models.TestRun, error) {
	filename := filepath.Base(path)

	c.mu.Lock()
	if c.state == StateValidating || c.state == StateUploading {
		c.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	c.state = StateValidating
	c.filename = filename
	c.percent = 0
	c.result = nil
	c.errMsg = ""
	c.mu.Unlock()

	if err := ValidateBackupFile(path); err != nil {
		c.settle(nil, err)
		return nil, err
	}

	c.mu.Lock()
	c.state = StateUploading
	c.mu.Unlock()

	// Track percent locally alongside whatever display the caller provided.
	tracking := progress.MultiReporter{&stateReporter{c: c}}
	if reporter != nil {
		tracking = append(tracking, reporter)
	}

	run, err := c.svc.UploadBackup(ctx, path, tracking)
	c.settle(run, err)
	if err != nil {
		return nil, fmt.Errorf("upload of %s failed: %w", filename, err)
	}
	return run, nil
}

// settle records the terminal outcome and publishes it.
func (c *Controller) settle(run *models.TestRun, err error) {
	c.mu.Lock()
	filename := c.filename
	if err != nil {
		c.state = StateFailed
		c.errMsg = err.Error()
	} else {
		c.state = StateSucceeded
		c.percent = 100
		c.result = run
	}
	c.mu.Unlock()

	if c.eventBus == nil {
		return
	}
	ev := &events.UploadEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventUploadSettled, Time: time.Now()},
		Filename:  filename,
		Err:       err,
	}
	if run != nil {
		ev.RunID = run.ID
		ev.Percent = 100
	}
	c.eventBus.Publish(ev)
}

// stateReporter mirrors byte progress into the controller's percent field.
type stateReporter struct {
	c     *Controller
	total int64
}

func (r *stateReporter) Start(total int64, description string) {
	r.total = total
}

func (r *stateReporter) Update(current int64) {
	if r.total <= 0 {
		return
	}
	pct := int(current * 100 / r.total)
	if pct > 100 {
		pct = 100
	}
	r.c.mu.Lock()
	if r.c.state == StateUploading {
		r.c.percent = pct
	}
	r.c.mu.Unlock()
}

func (r *stateReporter) Finish()                    {}
func (r *stateReporter) Error(err error)            {}
func (r *stateReporter) SetDescription(desc string) {}
