package domain

import (
	"fmt"
	"time"
)

// Validation constants
const (
	MaxSyncRangeDays = 366
	DefaultPageSize  = 50
	MaxPageSize      = 1000
)

// ValidateCompanyID validates an upstream company id
func ValidateCompanyID(companyID int64) error {
	if companyID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCompany, companyID)
	}

	return nil
}

// ValidateDateRange validates a sync date range and returns it normalized to
// day precision.
func ValidateDateRange(from, to time.Time) (time.Time, time.Time, error) {
	from = NormalizeDate(from)
	to = NormalizeDate(to)

	if from.IsZero() || to.IsZero() {
		return from, to, fmt.Errorf("%w: both dates are required", ErrInvalidDateRange)
	}

	if to.Before(from) {
		return from, to, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from.Format(DateLayout), to.Format(DateLayout))
	}

	if to.Sub(from) > MaxSyncRangeDays*24*time.Hour {
		return from, to, fmt.Errorf("%w: range exceeds %d days", ErrInvalidDateRange, MaxSyncRangeDays)
	}

	return from, to, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
