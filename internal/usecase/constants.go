package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultReferenceTTL is how long resolved reference names stay valid.
	DefaultReferenceTTL = 30 * time.Minute

	// DefaultMissReloadInterval bounds how often an unknown id may trigger a reload.
	DefaultMissReloadInterval = time.Minute

	// DefaultPageSize is the page size used against the deal list endpoint.
	DefaultPageSize = 100

	// DefaultMaxPages caps one listing at DefaultMaxPages*DefaultPageSize deals.
	DefaultMaxPages = 1000

	// Detail fetch pacing.
	DefaultBatchSize      = 5
	DefaultBatchPause     = 200 * time.Millisecond
	DefaultLongPauseEvery = 50
	DefaultLongPause      = 2 * time.Second

	// DefaultRequestTimeout bounds a single upstream attempt.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultCallTimeout bounds one upstream call with all of its retries.
	DefaultCallTimeout = 45 * time.Second

	// DefaultLockTTL is how long a company's run lock survives a crashed holder.
	DefaultLockTTL = 10 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Record actions reported to metrics.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionSkip    = "skip"
	ActionDelete  = "delete"
	ActionExclude = "exclude"
	ActionError   = "error"
)

// systemClock is the wall clock in UTC.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type noopMetrics struct{}

func (noopMetrics) ObserveRun(string, time.Duration) {}
func (noopMetrics) AddRecords(string, int)           {}
func (noopMetrics) ReferenceLookup(string)           {}
