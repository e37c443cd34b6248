package usecase

import (
	"context"
	"time"

	"github.com/iho/dealsync/internal/domain"
)

// TransactionRepository defines data access for locally held transactions.
type TransactionRepository interface {
	// ListByDealIDs loads every record whose external deal id is in dealIDs.
	ListByDealIDs(ctx context.Context, companyID int64, dealIDs []int64) ([]*domain.LocalTransaction, error)
	// ListInRange loads every record dated within [from, to].
	ListInRange(ctx context.Context, companyID int64, from, to time.Time) ([]*domain.LocalTransaction, error)
	CreateTx(ctx context.Context, tx Transaction, txn *domain.LocalTransaction) error
	UpdateTx(ctx context.Context, tx Transaction, txn *domain.LocalTransaction) error
	DeleteTx(ctx context.Context, tx Transaction, id string) error
}

// SyncRunRepository defines data access for the sync run audit trail.
type SyncRunRepository interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	Finish(ctx context.Context, run *domain.SyncRun) error
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*domain.SyncRun, error)
}

// AllocationCleaner removes dependent allocation records when a transaction
// is deleted by the sweep. It runs inside the deleting transaction.
type AllocationCleaner interface {
	DeleteByIdentity(ctx context.Context, tx Transaction, companyID int64, identity domain.ExternalIdentity) error
}

// LedgerClient is the external bookkeeping service.
type LedgerClient interface {
	ListDeals(ctx context.Context, companyID int64, query domain.DealQuery) ([]*domain.DealHeader, error)
	GetDeal(ctx context.Context, companyID int64, dealID int64) (*domain.DealHeader, error)
	ListReferenceData(ctx context.Context, companyID int64, refType domain.ReferenceType) ([]domain.ReferenceItem, error)
}

// CredentialSource hands out the current upstream credential.
type CredentialSource interface {
	Credential(ctx context.Context) (domain.Credential, error)
}

// RunLock is a held run lock.
type RunLock interface {
	// Extend resets the lock's TTL. It returns domain.ErrLockLost once the
	// lock has expired or belongs to another holder.
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// RunLocker serializes sync runs for the same company.
type RunLocker interface {
	// Acquire returns domain.ErrSyncInProgress if the lock is held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (RunLock, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SyncMetrics receives reconciliation telemetry.
type SyncMetrics interface {
	ObserveRun(status string, duration time.Duration)
	AddRecords(action string, n int)
	ReferenceLookup(result string)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// CandidateFetcher produces the candidate set for a company and date range.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, companyID int64, from, to time.Time) (*FetchResult, error)
}

// LabelResolver fills display labels on candidates.
type LabelResolver interface {
	Preload(ctx context.Context, companyID int64, types ...domain.ReferenceType)
	ResolveLabels(ctx context.Context, c *domain.Candidate)
	Invalidate()
}

// Reconciler applies a candidate set to the local store.
type Reconciler interface {
	Reconcile(ctx context.Context, input ReconcileInput) (*domain.SyncReport, error)
}
