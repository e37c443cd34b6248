package domain

import "time"

// RecordError describes a candidate or local record that could not be applied.
type RecordError struct {
	ExternalIdentity string
	Message          string
}

// SyncReport is the result of one reconciliation run.
type SyncReport struct {
	RunID      string
	CompanyID  int64
	DateFrom   time.Time
	DateTo     time.Time
	DryRun     bool
	Selected   int
	Excluded   int
	Created    int
	Updated    int
	Skipped    int
	Deleted    int
	ErrorCount int
	Errors     []RecordError
	StartedAt  time.Time
	FinishedAt time.Time
}

// AddError appends a record error and keeps ErrorCount in step.
func (r *SyncReport) AddError(identity, message string) {
	r.Errors = append(r.Errors, RecordError{ExternalIdentity: identity, Message: message})
	r.ErrorCount = len(r.Errors)
}

// Applied returns the number of candidates that reached the local store.
func (r *SyncReport) Applied() int {
	return r.Created + r.Updated
}
