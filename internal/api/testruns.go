package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/models"
)

// RunQuery describes one page of the test-run history. The zero value asks
// for the first page with no filters.
type RunQuery struct {
	Page      int
	Status    models.RunStatus // "" means all statuses
	Search    string           // matches against original filename
	DateRange models.DateRange // "" means all time
}

// ListTestRuns fetches one page of the caller's test-run history, newest
// first. The page size is fixed server-side.
func (c *Client) ListTestRuns(ctx context.Context, q RunQuery) (*models.TestRunPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(constants.TestRunPageSize))
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.DateRange != "" {
		params.Set("dateRange", string(q.DateRange))
	}

	var result models.TestRunPage
	if err := c.get(ctx, "/test-runs?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("failed to list test runs: %w", err)
	}
	return &result, nil
}

// GetTestRun fetches a single run by ID.
func (c *Client) GetTestRun(ctx context.Context, id string) (*models.TestRun, error) {
	var run models.TestRun
	if err := c.get(ctx, "/test-runs/"+url.PathEscape(id), &run); err != nil {
		return nil, fmt.Errorf("failed to get test run %s: %w", id, err)
	}
	return &run, nil
}

// GetRunStats fetches the caller's aggregate pass/fail counters. The counts
// cover all runs, independent of any history filters.
func (c *Client) GetRunStats(ctx context.Context) (*models.RunStats, error) {
	var stats models.RunStats
	if err := c.get(ctx, "/test-runs/stats", &stats); err != nil {
		return nil, fmt.Errorf("failed to get run statistics: %w", err)
	}
	return &stats, nil
}

// DownloadReport streams the validation report for a finished run into w.
// Returns ErrReportUnavailable when the run has not completed or the report
// artifacts are gone.
func (c *Client) DownloadReport(ctx context.Context, id string, format models.ReportFormat, w io.Writer) error {
	if !format.Valid() {
		return fmt.Errorf("unsupported report format %q", format)
	}

	path := fmt.Sprintf("/test-runs/%s/report/%s", url.PathEscape(id), format)
	resp, err := c.doRequest(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == nethttp.StatusOK:
	case resp.StatusCode == nethttp.StatusNotFound || resp.StatusCode == nethttp.StatusConflict:
		return fmt.Errorf("run %s: %w", id, ErrReportUnavailable)
	default:
		return newAPIError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// DeleteTestRun removes a run and its artifacts. Deleting an already-deleted
// run is not an error.
func (c *Client) DeleteTestRun(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, nethttp.MethodDelete, "/test-runs/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete test run %s: %w", id, err)
	}
	return nil
}
