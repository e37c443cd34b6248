package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iho/dealsync/internal/domain"
)

func TestSyncReportFromDomain(t *testing.T) {
	report := &domain.SyncReport{
		RunID:     "run-1",
		CompanyID: 42,
		DateFrom:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		DateTo:    time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Selected:  3,
		Created:   2,
	}
	report.AddError("9001:2", "boom")

	resp := SyncReportFromDomain(report)

	if resp.DateFrom != "2024-04-01" || resp.DateTo != "2024-04-30" {
		t.Fatalf("unexpected dates: %s %s", resp.DateFrom, resp.DateTo)
	}
	if resp.ErrorCount != 1 || len(resp.Errors) != 1 || resp.Errors[0].ExternalIdentity != "9001:2" {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"error_count":1`, `"external_identity":"9001:2"`, `"created":2`} {
		if !strings.Contains(string(body), key) {
			t.Fatalf("expected %s in %s", key, body)
		}
	}
}

func TestSyncReportFromDomain_EmptyErrorsIsArray(t *testing.T) {
	body, err := json.Marshal(SyncReportFromDomain(&domain.SyncReport{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"errors":[]`) {
		t.Fatalf("expected empty errors array, got %s", body)
	}
}

func TestSyncRunsFromDomain(t *testing.T) {
	finished := time.Date(2024, 5, 1, 9, 1, 0, 0, time.UTC)
	runs := SyncRunsFromDomain([]*domain.SyncRun{
		{ID: "run-1", CompanyID: 42, Status: domain.SyncRunSucceeded, Created: 1, FinishedAt: &finished},
		{ID: "run-2", CompanyID: 42, Status: domain.SyncRunRunning},
	})

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Status != "succeeded" || runs[0].FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	if runs[1].FinishedAt != nil || runs[1].DateFrom != "" {
		t.Fatalf("unexpected running run: %+v", runs[1])
	}
}
