package runs

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/proofback/proofback-cli/internal/api"
	"github.com/proofback/proofback-cli/internal/models"
)

// fakeService scripts API responses for the tracker.
type fakeService struct {
	mu        sync.Mutex
	queries   []api.RunQuery
	pages     []*models.TestRunPage // consumed in order; last one repeats
	listErr   error
	listFn    func(q api.RunQuery) (*models.TestRunPage, error) // overrides pages when set
	runs      map[string]*models.TestRun
	stats     *models.RunStats
	reportErr error
	reports   []string // run IDs whose reports were fetched
}

func (f *fakeService) ListTestRuns(ctx context.Context, q api.RunQuery) (*models.TestRunPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	listFn := f.listFn
	var page *models.TestRunPage
	if listFn == nil && len(f.pages) > 0 {
		page = f.pages[0]
		if len(f.pages) > 1 {
			f.pages = f.pages[1:]
		}
	}
	err := f.listErr
	f.mu.Unlock()

	if listFn != nil {
		return listFn(q)
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &models.TestRunPage{TotalPages: 1}
	}
	return page, nil
}

func (f *fakeService) GetTestRun(ctx context.Context, id string) (*models.TestRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run, ok := f.runs[id]; ok {
		copied := *run
		return &copied, nil
	}
	return nil, api.ErrNotFound
}

func (f *fakeService) GetRunStats(ctx context.Context) (*models.RunStats, error) {
	if f.stats == nil {
		return nil, errors.New("no stats scripted")
	}
	return f.stats, nil
}

func (f *fakeService) DownloadReport(ctx context.Context, id string, format models.ReportFormat, w io.Writer) error {
	f.mu.Lock()
	f.reports = append(f.reports, id)
	f.mu.Unlock()
	if f.reportErr != nil {
		return f.reportErr
	}
	io.WriteString(w, "report:"+id)
	return nil
}

func run(id string, status models.RunStatus) models.TestRun {
	return models.TestRun{ID: id, Filename: id + ".sql", Status: status}
}

func page(total int, runs ...models.TestRun) *models.TestRunPage {
	return &models.TestRunPage{TestRuns: runs, TotalPages: total}
}

func TestSetFilterResetsPage(t *testing.T) {
	svc := &fakeService{pages: []*models.TestRunPage{page(5)}}
	tr := NewTracker(svc, nil)

	if err := tr.SetPage(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetFilter(context.Background(), Filter{Status: models.RunFailed}); err != nil {
		t.Fatal(err)
	}

	last := svc.queries[len(svc.queries)-1]
	if last.Page != 1 {
		t.Errorf("filter change must reset to page 1, queried page %d", last.Page)
	}
	if last.Status != models.RunFailed {
		t.Errorf("query status = %q, want failed", last.Status)
	}
	if cur, _ := tr.Page(); cur != 1 {
		t.Errorf("tracker page = %d, want 1", cur)
	}
}

func TestSetViewIssuesSingleQuery(t *testing.T) {
	svc := &fakeService{pages: []*models.TestRunPage{page(5)}}
	tr := NewTracker(svc, nil)

	err := tr.SetView(context.Background(), Filter{Status: models.RunFailed, Search: "orders"}, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(svc.queries) != 1 {
		t.Fatalf("queries = %d, want exactly 1", len(svc.queries))
	}
	q := svc.queries[0]
	if q.Page != 3 || q.Status != models.RunFailed || q.Search != "orders" {
		t.Errorf("query = %+v, want page 3 with filter applied", q)
	}
	if cur, _ := tr.Page(); cur != 3 {
		t.Errorf("tracker page = %d, want 3", cur)
	}
}

func TestSetPageClampsToOne(t *testing.T) {
	svc := &fakeService{}
	tr := NewTracker(svc, nil)
	if err := tr.SetPage(context.Background(), -2); err != nil {
		t.Fatal(err)
	}
	if got := svc.queries[0].Page; got != 1 {
		t.Errorf("queried page = %d, want 1", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int

	svc := &fakeService{}
	svc.listFn = func(q api.RunQuery) (*models.TestRunPage, error) {
		svc.mu.Lock()
		calls++
		n := calls
		svc.mu.Unlock()
		if n == 1 {
			close(entered)
			<-release
			return page(9, run("old", models.RunPending)), nil
		}
		return page(2, run("new", models.RunPassed)), nil
	}
	tr := NewTracker(svc, nil)

	// First query stalls inside the fake server.
	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	<-entered

	// Second query completes while the first is still in flight.
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Now the stale first response arrives.
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	runs := tr.Runs()
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Errorf("stale response overwrote the newer one: %v", runs)
	}
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	svc := &fakeService{pages: []*models.TestRunPage{
		page(1, run("r1", models.RunPassed)),
		page(1, run("r1", models.RunRunning)), // stale server snapshot
	}}
	tr := NewTracker(svc, nil)

	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	runs := tr.Runs()
	if runs[0].Status != models.RunPassed {
		t.Errorf("terminal run regressed to %q", runs[0].Status)
	}
}

func TestGetFoldsDetailIntoCache(t *testing.T) {
	svc := &fakeService{
		pages: []*models.TestRunPage{page(1, run("r1", models.RunRunning))},
		runs:  map[string]*models.TestRun{"r1": {ID: "r1", Status: models.RunPassed}},
	}
	tr := NewTracker(svc, nil)
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := tr.Get(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RunPassed {
		t.Errorf("detail status = %q", got.Status)
	}
	if cached := tr.Runs()[0]; cached.Status != models.RunPassed {
		t.Errorf("cache not updated, still %q", cached.Status)
	}
}

func TestGetUnknownRun(t *testing.T) {
	svc := &fakeService{}
	tr := NewTracker(svc, nil)
	if _, err := tr.Get(context.Background(), "nope"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDownloadReportGatedOnTerminalStatus(t *testing.T) {
	svc := &fakeService{pages: []*models.TestRunPage{
		page(1, run("pending", models.RunPending), run("done", models.RunFailed)),
	}}
	tr := NewTracker(svc, nil)
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := tr.DownloadReport(context.Background(), "pending", models.ReportJSON, io.Discard)
	if !errors.Is(err, api.ErrReportUnavailable) {
		t.Fatalf("err = %v, want ErrReportUnavailable", err)
	}
	if len(svc.reports) != 0 {
		t.Error("unfinished run must not trigger a report request")
	}

	var buf strings.Builder
	if err := tr.DownloadReport(context.Background(), "done", models.ReportJSON, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "report:done" {
		t.Errorf("body = %q", buf.String())
	}
}

func TestDownloadReportFetchesUncachedRun(t *testing.T) {
	svc := &fakeService{
		runs: map[string]*models.TestRun{"r9": {ID: "r9", Status: models.RunPassed}},
	}
	tr := NewTracker(svc, nil)

	if err := tr.DownloadReport(context.Background(), "r9", models.ReportPDF, io.Discard); err != nil {
		t.Fatal(err)
	}
	if len(svc.reports) != 1 || svc.reports[0] != "r9" {
		t.Errorf("reports fetched = %v", svc.reports)
	}
}

func TestDownloadReportFailureKeepsCache(t *testing.T) {
	svc := &fakeService{
		pages:     []*models.TestRunPage{page(1, run("done", models.RunPassed))},
		reportErr: api.ErrReportUnavailable,
	}
	tr := NewTracker(svc, nil)
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := tr.DownloadReport(context.Background(), "done", models.ReportJSON, io.Discard)
	if !errors.Is(err, api.ErrReportUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got := tr.Runs()[0].Status; got != models.RunPassed {
		t.Errorf("cached run changed to %q after report failure", got)
	}
}

func TestRefreshStats(t *testing.T) {
	svc := &fakeService{stats: &models.RunStats{Total: 10, Passed: 6, Failed: 3, Pending: 1}}
	tr := NewTracker(svc, nil)

	if tr.Stats() != nil {
		t.Error("stats should be nil before first refresh")
	}
	stats, err := tr.RefreshStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Passed != 6 || tr.Stats().Total != 10 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRefreshErrorKeepsSnapshot(t *testing.T) {
	svc := &fakeService{pages: []*models.TestRunPage{page(1, run("keep", models.RunPassed))}}
	tr := NewTracker(svc, nil)
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	svc.mu.Lock()
	svc.listErr = errors.New("boom")
	svc.mu.Unlock()

	if err := tr.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(tr.Runs()) != 1 || tr.Runs()[0].ID != "keep" {
		t.Error("failed refresh must not clear the snapshot")
	}
}
