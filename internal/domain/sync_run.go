package domain

import "time"

// SyncRunStatus is the lifecycle state of a sync run.
type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunSucceeded SyncRunStatus = "succeeded"
	SyncRunFailed    SyncRunStatus = "failed"
)

// SyncRun is the audit trail entry for one reconciliation run. Every record
// written by a run carries the run's ID.
type SyncRun struct {
	ID           string
	CompanyID    int64
	DateFrom     time.Time
	DateTo       time.Time
	DryRun       bool
	Status       SyncRunStatus
	Selected     int
	Created      int
	Updated      int
	Skipped      int
	Deleted      int
	ErrorCount   int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Complete copies the report counts onto the run and marks it finished.
func (r *SyncRun) Complete(report *SyncReport, at time.Time) {
	r.Status = SyncRunSucceeded
	r.Selected = report.Selected
	r.Created = report.Created
	r.Updated = report.Updated
	r.Skipped = report.Skipped
	r.Deleted = report.Deleted
	r.ErrorCount = report.ErrorCount
	r.FinishedAt = &at
}

// Fail marks the run as aborted by a fatal error.
func (r *SyncRun) Fail(err error, at time.Time) {
	r.Status = SyncRunFailed
	r.ErrorMessage = err.Error()
	r.FinishedAt = &at
}
