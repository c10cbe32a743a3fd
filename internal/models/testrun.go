// Package models defines the data types exchanged with the Proofback API.
package models

import (
	"time"
)

// RunStatus represents the lifecycle state of a validation test run.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunPassed  RunStatus = "passed"
	RunFailed  RunStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunPassed, RunFailed:
		return true
	}
	return false
}

// Terminal reports whether the run has finished (passed or failed).
func (s RunStatus) Terminal() bool {
	return s == RunPassed || s == RunFailed
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. Status is monotonic: pending → running → {passed|failed}. A terminal
// status never changes, and nothing re-enters pending.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case RunPending:
		return next == RunRunning || next.Terminal()
	case RunRunning:
		return next.Terminal()
	default:
		// passed/failed are final
		return false
	}
}

// TestRun is a single backup-validation job as reported by the server.
// The server owns these records; the client treats them as read-through
// cache entries invalidated by re-fetch after every mutation.
type TestRun struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"originalFilename"`
	FileSize         int64      `json:"fileSize"`
	Status           RunStatus  `json:"status"`
	DurationSeconds  *float64   `json:"duration,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	DatabaseName     string     `json:"databaseName,omitempty"`
	ResultCount      *int       `json:"resultCount,omitempty"`
}

// ReportReady reports whether a validation report can be requested for this
// run. Reports exist only for terminal runs.
func (r *TestRun) ReportReady() bool {
	return r.Status.Terminal()
}

// ReportFormat is a supported report download format.
type ReportFormat string

const (
	ReportJSON ReportFormat = "json"
	ReportPDF  ReportFormat = "pdf"
)

// Valid reports whether f is a supported report format.
func (f ReportFormat) Valid() bool {
	return f == ReportJSON || f == ReportPDF
}

// DateRange restricts a test-run listing to a recent window.
type DateRange string

const (
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
)

// Valid reports whether d is a supported date range.
func (d DateRange) Valid() bool {
	switch d {
	case DateRangeToday, DateRangeWeek, DateRangeMonth:
		return true
	}
	return false
}

// RunStats is the aggregate returned by GET /test-runs/stats.
type RunStats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// TestRunPage is one page of test-run history.
type TestRunPage struct {
	TestRuns   []TestRun `json:"testRuns"`
	TotalPages int       `json:"totalPages"`
}
