package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/usecase"
)

// SyncRequest triggers a reconciliation run for one company.
type SyncRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	DryRun   bool   `json:"dry_run"`
}

// ToUseCaseInput converts to use case input. Dates use the YYYY-MM-DD layout.
func (r *SyncRequest) ToUseCaseInput(companyID int64) (usecase.SyncInput, error) {
	from, err := parseDate("date_from", r.DateFrom)
	if err != nil {
		return usecase.SyncInput{}, err
	}

	to, err := parseDate("date_to", r.DateTo)
	if err != nil {
		return usecase.SyncInput{}, err
	}

	return usecase.SyncInput{
		CompanyID: companyID,
		DateFrom:  from,
		DateTo:    to,
		DryRun:    r.DryRun,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidDateRange, field)
	}

	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", domain.ErrInvalidDateRange, field, value)
	}

	return t, nil
}
