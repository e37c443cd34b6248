package dto

import (
	"time"

	"github.com/iho/dealsync/internal/domain"
)

// RecordErrorResponse is one record that could not be applied.
type RecordErrorResponse struct {
	ExternalIdentity string `json:"external_identity"`
	Message          string `json:"message"`
}

// SyncReportResponse represents a sync report in API responses.
type SyncReportResponse struct {
	RunID      string                `json:"run_id"`
	CompanyID  int64                 `json:"company_id"`
	DateFrom   string                `json:"date_from,omitempty"`
	DateTo     string                `json:"date_to,omitempty"`
	DryRun     bool                  `json:"dry_run"`
	Selected   int                   `json:"selected"`
	Excluded   int                   `json:"excluded"`
	Created    int                   `json:"created"`
	Updated    int                   `json:"updated"`
	Skipped    int                   `json:"skipped"`
	Deleted    int                   `json:"deleted"`
	ErrorCount int                   `json:"error_count"`
	Errors     []RecordErrorResponse `json:"errors"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// SyncReportFromDomain converts a domain report to response.
func SyncReportFromDomain(r *domain.SyncReport) *SyncReportResponse {
	errs := make([]RecordErrorResponse, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = RecordErrorResponse{ExternalIdentity: e.ExternalIdentity, Message: e.Message}
	}

	return &SyncReportResponse{
		RunID:      r.RunID,
		CompanyID:  r.CompanyID,
		DateFrom:   formatDate(r.DateFrom),
		DateTo:     formatDate(r.DateTo),
		DryRun:     r.DryRun,
		Selected:   r.Selected,
		Excluded:   r.Excluded,
		Created:    r.Created,
		Updated:    r.Updated,
		Skipped:    r.Skipped,
		Deleted:    r.Deleted,
		ErrorCount: r.ErrorCount,
		Errors:     errs,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// SyncRunResponse represents a sync run audit record in API responses.
type SyncRunResponse struct {
	ID           string     `json:"id"`
	CompanyID    int64      `json:"company_id"`
	DateFrom     string     `json:"date_from,omitempty"`
	DateTo       string     `json:"date_to,omitempty"`
	DryRun       bool       `json:"dry_run"`
	Status       string     `json:"status"`
	Selected     int        `json:"selected"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	Deleted      int        `json:"deleted"`
	ErrorCount   int        `json:"error_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// SyncRunsFromDomain converts domain runs to responses.
func SyncRunsFromDomain(runs []*domain.SyncRun) []*SyncRunResponse {
	result := make([]*SyncRunResponse, len(runs))
	for i, r := range runs {
		result[i] = &SyncRunResponse{
			ID:           r.ID,
			CompanyID:    r.CompanyID,
			DateFrom:     formatDate(r.DateFrom),
			DateTo:       formatDate(r.DateTo),
			DryRun:       r.DryRun,
			Status:       string(r.Status),
			Selected:     r.Selected,
			Created:      r.Created,
			Updated:      r.Updated,
			Skipped:      r.Skipped,
			Deleted:      r.Deleted,
			ErrorCount:   r.ErrorCount,
			ErrorMessage: r.ErrorMessage,
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}
