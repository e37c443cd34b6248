package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/domain"
)

// SyncConfig wires a SyncUseCase.
type SyncConfig struct {
	Credentials CredentialSource
	Fetcher     CandidateFetcher
	Resolver    LabelResolver
	Reconciler  Reconciler
	Runs        SyncRunRepository
	Locker      RunLocker // optional
	IDGen       IDGenerator
	Clock       Clock
	Logger      zerolog.Logger
	Metrics     SyncMetrics
	LockTTL     time.Duration
}

// SyncUseCase drives one sync run end to end: preconditions, run lock,
// candidate fetch, label resolution, reconciliation and the audit record.
type SyncUseCase struct {
	credentials CredentialSource
	fetcher     CandidateFetcher
	resolver    LabelResolver
	reconciler  Reconciler
	runs        SyncRunRepository
	locker      RunLocker
	idGen       IDGenerator
	clock       Clock
	logger      zerolog.Logger
	metrics     SyncMetrics
	lockTTL     time.Duration
}

// NewSyncUseCase creates a new SyncUseCase.
func NewSyncUseCase(cfg SyncConfig) *SyncUseCase {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}

	return &SyncUseCase{
		credentials: cfg.Credentials,
		fetcher:     cfg.Fetcher,
		resolver:    cfg.Resolver,
		reconciler:  cfg.Reconciler,
		runs:        cfg.Runs,
		locker:      cfg.Locker,
		idGen:       cfg.IDGen,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		lockTTL:     cfg.LockTTL,
	}
}

// SyncInput represents input for a sync run.
type SyncInput struct {
	CompanyID int64
	DateFrom  time.Time
	DateTo    time.Time
	DryRun    bool
}

// Run executes one sync run. The caller receives either a fatal error or a
// complete report; per-record failures live in the report.
func (uc *SyncUseCase) Run(ctx context.Context, input SyncInput) (*domain.SyncReport, error) {
	// 0. Preconditions, before anything is written
	if err := domain.ValidateCompanyID(input.CompanyID); err != nil {
		return nil, err
	}

	from, to, err := domain.ValidateDateRange(input.DateFrom, input.DateTo)
	if err != nil {
		return nil, err
	}

	if err := uc.checkCredential(ctx); err != nil {
		return nil, err
	}

	// 1. One run per company at a time, held for as long as the run lasts
	runCtx := ctx
	if uc.locker != nil {
		lock, err := uc.locker.Acquire(ctx, LockKey(input.CompanyID), uc.lockTTL)
		if err != nil {
			return nil, err
		}

		var cancel context.CancelCauseFunc
		runCtx, cancel = context.WithCancelCause(ctx)
		stop := uc.holdLock(runCtx, cancel, lock, input.CompanyID)
		defer func() {
			stop()
			cancel(nil)
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				uc.logger.Warn().Err(err).Int64("company_id", input.CompanyID).Msg("failed to release sync lock")
			}
		}()
	}

	// 2. Audit record
	started := uc.clock.Now()
	run := &domain.SyncRun{
		ID:        uc.idGen.Generate(),
		CompanyID: input.CompanyID,
		DateFrom:  from,
		DateTo:    to,
		DryRun:    input.DryRun,
		Status:    domain.SyncRunRunning,
		StartedAt: started,
	}

	if err := uc.runs.Create(runCtx, run); err != nil {
		return nil, fmt.Errorf("recording sync run: %w", err)
	}

	logger := uc.logger.With().
		Str("run_id", run.ID).
		Int64("company_id", input.CompanyID).
		Logger()

	logger.Info().
		Str("date_from", from.Format(domain.DateLayout)).
		Str("date_to", to.Format(domain.DateLayout)).
		Bool("dry_run", input.DryRun).
		Msg("sync run started")

	report, err := uc.run(runCtx, run, input.DryRun)
	if cause := context.Cause(runCtx); errors.Is(cause, domain.ErrLockLost) {
		// A run that lost its lock is failed even if reconciliation finished.
		report, err = nil, cause
	}
	if err != nil {
		uc.finish(ctx, logger, run, nil, err)
		uc.metrics.ObserveRun(string(domain.SyncRunFailed), uc.clock.Now().Sub(started))
		logger.Error().Err(err).Msg("sync run failed")

		return nil, err
	}

	uc.finish(ctx, logger, run, report, nil)
	uc.metrics.ObserveRun(string(domain.SyncRunSucceeded), uc.clock.Now().Sub(started))

	return report, nil
}

// holdLock extends lock every third of its TTL until the returned stop is
// called. A lock taken over by another holder, or one that could not be
// extended for a whole TTL, cancels ctx with domain.ErrLockLost.
func (uc *SyncUseCase) holdLock(ctx context.Context, cancel context.CancelCauseFunc, lock RunLock, companyID int64) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)

		ticker := time.NewTicker(max(uc.lockTTL/3, time.Millisecond))
		defer ticker.Stop()

		lastExtended := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := lock.Extend(ctx, uc.lockTTL)
			if err == nil {
				lastExtended = time.Now()
				continue
			}

			if errors.Is(err, domain.ErrLockLost) || time.Since(lastExtended) >= uc.lockTTL {
				uc.logger.Error().Err(err).Int64("company_id", companyID).Msg("sync lock lost, aborting run")
				if !errors.Is(err, domain.ErrLockLost) {
					err = fmt.Errorf("%w: %v", domain.ErrLockLost, err)
				}
				cancel(err)
				return
			}

			uc.logger.Warn().Err(err).Int64("company_id", companyID).Msg("failed to extend sync lock")
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func (uc *SyncUseCase) run(ctx context.Context, run *domain.SyncRun, dryRun bool) (*domain.SyncReport, error) {
	fetched, err := uc.fetcher.FetchCandidates(ctx, run.CompanyID, run.DateFrom, run.DateTo)
	if err != nil {
		return nil, err
	}

	if len(fetched.Candidates) == 0 {
		if len(fetched.Failed) > 0 {
			return nil, fmt.Errorf("%w: details of all %d deals failed to load: %v",
				domain.ErrUpstreamUnavailable, len(fetched.Failed), fetched.Failed[0].Err)
		}
		return nil, domain.ErrNoCandidates
	}

	uc.resolver.Preload(ctx, run.CompanyID, domain.ReferenceTypes...)
	for _, c := range fetched.Candidates {
		uc.resolver.ResolveLabels(ctx, c)
	}

	return uc.reconciler.Reconcile(ctx, ReconcileInput{
		RunID:       run.ID,
		CompanyID:   run.CompanyID,
		DateFrom:    run.DateFrom,
		DateTo:      run.DateTo,
		Candidates:  fetched.Candidates,
		FailedDeals: fetched.Failed,
		DryRun:      dryRun,
	})
}

// finish closes the audit record. A failure here is logged and does not
// discard a completed report.
func (uc *SyncUseCase) finish(ctx context.Context, logger zerolog.Logger, run *domain.SyncRun, report *domain.SyncReport, runErr error) {
	now := uc.clock.Now()
	if runErr != nil {
		run.Fail(runErr, now)
	} else {
		run.Complete(report, now)
	}

	if err := uc.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("failed to record sync run result")
	}
}

func (uc *SyncUseCase) checkCredential(ctx context.Context) error {
	if uc.credentials == nil {
		return domain.ErrCredentialMissing
	}

	cred, err := uc.credentials.Credential(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCredentialMissing, err)
	}

	return cred.Check(uc.clock.Now())
}

// InvalidateReferences drops every cached reference name.
func (uc *SyncUseCase) InvalidateReferences() {
	uc.resolver.Invalidate()
}

// ListRuns returns a company's sync runs, newest first.
func (uc *SyncUseCase) ListRuns(ctx context.Context, companyID int64, limit, offset int) ([]*domain.SyncRun, error) {
	if err := domain.ValidateCompanyID(companyID); err != nil {
		return nil, err
	}

	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}

	return uc.runs.ListByCompany(ctx, companyID, limit, offset)
}

// LockKey is the run lock key of a company.
func LockKey(companyID int64) string {
	return fmt.Sprintf("sync:%d", companyID)
}
