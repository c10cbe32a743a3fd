// Package runs tracks the caller's validation run history: one filtered,
// paginated snapshot of test runs plus aggregate counters, kept consistent
// under concurrent queries.
package runs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/proofback/proofback-cli/internal/api"
	"github.com/proofback/proofback-cli/internal/events"
	"github.com/proofback/proofback-cli/internal/models"
)

// Service is the slice of the API client the tracker needs.
type Service interface {
	ListTestRuns(ctx context.Context, q api.RunQuery) (*models.TestRunPage, error)
	GetTestRun(ctx context.Context, id string) (*models.TestRun, error)
	GetRunStats(ctx context.Context) (*models.RunStats, error)
	DownloadReport(ctx context.Context, id string, format models.ReportFormat, w io.Writer) error
}

// Filter narrows the run history. Zero value means no filtering.
type Filter struct {
	Status    models.RunStatus
	Search    string
	DateRange models.DateRange
}

// Tracker holds the current page of run history. Queries carry sequence
// numbers so a slow response can never overwrite the result of a newer one.
type Tracker struct {
	svc      Service
	eventBus *events.EventBus

	mu         sync.Mutex
	filter     Filter
	page       int
	runs       []models.TestRun
	totalPages int
	stats      *models.RunStats
	issuedSeq  uint64 // last query issued
	appliedSeq uint64 // last query whose response was applied
}

// NewTracker creates a tracker starting at page 1 with no filters. The event
// bus is optional.
func NewTracker(svc Service, bus *events.EventBus) *Tracker {
	return &Tracker{
		svc:      svc,
		eventBus: bus,
		page:     1,
	}
}

// SetFilter replaces the filter, resets to page 1 and re-queries.
func (t *Tracker) SetFilter(ctx context.Context, f Filter) error {
	return t.SetView(ctx, f, 1)
}

// SetView replaces the filter and page together with a single query, for
// callers that know both up front.
func (t *Tracker) SetView(ctx context.Context, f Filter, page int) error {
	if page < 1 {
		page = 1
	}
	t.mu.Lock()
	t.filter = f
	t.page = page
	t.mu.Unlock()
	return t.Refresh(ctx)
}

// SetPage moves to the given page (clamped to 1) and re-queries.
func (t *Tracker) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	t.mu.Lock()
	t.page = page
	t.mu.Unlock()
	return t.Refresh(ctx)
}

// Refresh re-issues the list query for the current filter and page. If a
// newer query is issued while this one is in flight, the stale response is
// discarded and Refresh returns nil without touching the snapshot.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	t.issuedSeq++
	seq := t.issuedSeq
	q := api.RunQuery{
		Page:      t.page,
		Status:    t.filter.Status,
		Search:    t.filter.Search,
		DateRange: t.filter.DateRange,
	}
	t.mu.Unlock()

	page, err := t.svc.ListTestRuns(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to refresh run history: %w", err)
	}

	t.mu.Lock()
	if seq != t.issuedSeq || seq <= t.appliedSeq {
		t.mu.Unlock()
		return nil
	}
	t.appliedSeq = seq
	t.runs = t.mergeSnapshotLocked(page.TestRuns)
	t.totalPages = page.TotalPages
	count := len(t.runs)
	curPage, totalPages := t.page, t.totalPages
	t.mu.Unlock()

	if t.eventBus != nil {
		t.eventBus.Publish(&events.RunListEvent{
			BaseEvent:  events.BaseEvent{EventType: events.EventRunListUpdated, Time: time.Now()},
			Page:       curPage,
			TotalPages: totalPages,
			Count:      count,
			Seq:        seq,
		})
	}
	return nil
}

// mergeSnapshotLocked applies a fresh page while preserving terminal states:
// if the cache already saw a run finish, a stale snapshot reporting it as
// still running cannot regress it.
func (t *Tracker) mergeSnapshotLocked(fresh []models.TestRun) []models.TestRun {
	prior := make(map[string]models.TestRun, len(t.runs))
	for _, r := range t.runs {
		prior[r.ID] = r
	}

	merged := make([]models.TestRun, len(fresh))
	for i, r := range fresh {
		if old, ok := prior[r.ID]; ok && old.Status.Terminal() && !r.Status.Terminal() {
			merged[i] = old
			continue
		}
		merged[i] = r
	}
	return merged
}

// Runs returns a copy of the current page.
func (t *Tracker) Runs() []models.TestRun {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TestRun, len(t.runs))
	copy(out, t.runs)
	return out
}

// Page returns the current page number and total pages.
func (t *Tracker) Page() (current, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page, t.totalPages
}

// Filter returns the active filter.
func (t *Tracker) Filter() Filter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter
}

// Get fetches full detail for one run and folds it into the cached page,
// subject to the same no-regression rule.
func (t *Tracker) Get(ctx context.Context, id string) (*models.TestRun, error) {
	run, err := t.svc.GetTestRun(ctx, id)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	for i := range t.runs {
		if t.runs[i].ID != run.ID {
			continue
		}
		if !(t.runs[i].Status.Terminal() && !run.Status.Terminal()) {
			t.runs[i] = *run
		}
		break
	}
	t.mu.Unlock()
	return run, nil
}

// RefreshStats re-queries the aggregate counters. The counters cover all of
// the caller's runs regardless of the active filter, so they may briefly
// disagree with a filtered page.
func (t *Tracker) RefreshStats(ctx context.Context) (*models.RunStats, error) {
	stats, err := t.svc.GetRunStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh run statistics: %w", err)
	}

	t.mu.Lock()
	t.stats = stats
	t.mu.Unlock()

	if t.eventBus != nil {
		t.eventBus.Publish(&events.RunStatsEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventRunStatsUpdated, Time: time.Now()},
			Total:     stats.Total,
			Passed:    stats.Passed,
			Failed:    stats.Failed,
			Pending:   stats.Pending,
		})
	}
	return stats, nil
}

// Stats returns the last fetched counters, or nil before the first refresh.
func (t *Tracker) Stats() *models.RunStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// DownloadReport streams the report for a finished run into w. The finished
// check runs locally against the cached status before any network call; a
// run the tracker has not seen is fetched first. Failures leave the cached
// run untouched.
func (t *Tracker) DownloadReport(ctx context.Context, id string, format models.ReportFormat, w io.Writer) error {
	t.mu.Lock()
	var cached *models.TestRun
	for i := range t.runs {
		if t.runs[i].ID == id {
			cached = &t.runs[i]
			break
		}
	}
	var ready, known bool
	if cached != nil {
		known = true
		ready = cached.ReportReady()
	}
	t.mu.Unlock()

	if !known {
		run, err := t.Get(ctx, id)
		if err != nil {
			return err
		}
		ready = run.ReportReady()
	}
	if !ready {
		return fmt.Errorf("run %s has not finished: %w", id, api.ErrReportUnavailable)
	}

	return t.svc.DownloadReport(ctx, id, format, w)
}
