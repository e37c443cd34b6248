package domain

import "errors"

var (
	// Precondition errors abort a run before any write.
	ErrCredentialMissing   = errors.New("ledger credential is missing")
	ErrCredentialExpired   = errors.New("ledger credential has expired")
	ErrNoCandidates        = errors.New("no candidate records selected")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidCompany      = errors.New("invalid company id")
	ErrSyncInProgress      = errors.New("sync already in progress for company")
	ErrUpstreamUnavailable = errors.New("ledger service unavailable")

	// ErrLockLost aborts a run whose company lock expired or was taken over.
	ErrLockLost = errors.New("sync lock lost")

	// Record errors
	ErrMalformedCandidate  = errors.New("malformed candidate record")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateIdentity   = errors.New("external identity already exists")
	ErrSyncRunNotFound     = errors.New("sync run not found")
)

var preconditionErrors = []error{
	ErrCredentialMissing,
	ErrCredentialExpired,
	ErrNoCandidates,
	ErrInvalidDateRange,
	ErrInvalidCompany,
	ErrSyncInProgress,
	ErrUpstreamUnavailable,
}

// IsPrecondition reports whether err is a fatal precondition error.
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
