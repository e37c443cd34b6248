package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/dealsync/internal/domain"
)

// ReconciliationConfig configures a ReconciliationUseCase.
type ReconciliationConfig struct {
	TxManager TransactionManager
	Repo      TransactionRepository
	Cleaner   AllocationCleaner // optional
	Retrier   Retrier           // optional
	IDGen     IDGenerator
	Clock     Clock
	Logger    zerolog.Logger
	Metrics   SyncMetrics

	// ApplyConcurrency caps concurrent apply and delete steps. Values below 2
	// apply sequentially.
	ApplyConcurrency int
}

// ReconciliationUseCase brings the local store in line with a candidate set:
// it creates, updates or skips each candidate and then sweeps local records
// that no longer exist upstream.
type ReconciliationUseCase struct {
	txManager   TransactionManager
	repo        TransactionRepository
	cleaner     AllocationCleaner
	retrier     Retrier
	idGen       IDGenerator
	clock       Clock
	logger      zerolog.Logger
	metrics     SyncMetrics
	concurrency int
}

// NewReconciliationUseCase creates a new reconciliation use case.
func NewReconciliationUseCase(cfg ReconciliationConfig) *ReconciliationUseCase {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Retrier == nil {
		cfg.Retrier = noRetry{}
	}
	if cfg.ApplyConcurrency < 1 {
		cfg.ApplyConcurrency = 1
	}

	return &ReconciliationUseCase{
		txManager:   cfg.TxManager,
		repo:        cfg.Repo,
		cleaner:     cfg.Cleaner,
		retrier:     cfg.Retrier,
		idGen:       cfg.IDGen,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		concurrency: cfg.ApplyConcurrency,
	}
}

// ReconcileInput is one run's candidate set.
type ReconcileInput struct {
	RunID     string
	CompanyID int64
	DateFrom  time.Time
	DateTo    time.Time

	// Candidates in upstream order, with labels already resolved.
	Candidates []*domain.Candidate
	// FailedDeals are deals whose detail could not be fetched. Their local
	// records are kept.
	FailedDeals []FailedDeal

	DryRun bool
}

// step is a decided action for one candidate or one swept record.
type step struct {
	action    string
	identity  domain.ExternalIdentity
	candidate *domain.Candidate
	existing  *domain.LocalTransaction
	err       error // set when the decision itself failed
}

// outcome is the result of executing a step.
type outcome struct {
	action   string
	identity string
	err      error
}

// Reconcile runs load, classify, decide, apply, sweep and report for one
// company. A load failure is fatal; every other failure is recorded in the
// report against the affected record.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, input ReconcileInput) (*domain.SyncReport, error) {
	if len(input.Candidates) == 0 {
		return nil, domain.ErrNoCandidates
	}

	report := &domain.SyncReport{
		RunID:     input.RunID,
		CompanyID: input.CompanyID,
		DateFrom:  input.DateFrom,
		DateTo:    input.DateTo,
		DryRun:    input.DryRun,
		StartedAt: uc.clock.Now(),
	}

	logger := uc.logger.With().
		Str("run_id", input.RunID).
		Int64("company_id", input.CompanyID).
		Bool("dry_run", input.DryRun).
		Logger()

	// 1. Load
	existing, err := uc.loadExisting(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("loading local transactions: %w", err)
	}

	// 2-3. Classify and decide
	steps := uc.decide(input.Candidates, existing, report)

	// 4. Apply
	for i, out := range uc.execute(ctx, input, steps) {
		uc.record(report, out, logger, steps[i].candidate)
	}

	// 5. Sweep, strictly after every apply step has finished.
	sweep := uc.sweepSteps(input, existing)
	for _, out := range uc.execute(ctx, input, sweep) {
		uc.record(report, out, logger, nil)
	}

	// 6. Report
	for _, f := range input.FailedDeals {
		report.AddError(domain.DealIdentityString(f.DealID), f.Err.Error())
		uc.metrics.AddRecords(ActionError, 1)
	}

	report.FinishedAt = uc.clock.Now()

	logger.Info().
		Int("selected", report.Selected).
		Int("excluded", report.Excluded).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("deleted", report.Deleted).
		Int("applied", report.Applied()).
		Int("errors", report.ErrorCount).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliation finished")

	return report, nil
}

// loadExisting returns the local records matching any candidate deal plus
// every record dated inside the run's range, keyed by composite identity.
func (uc *ReconciliationUseCase) loadExisting(ctx context.Context, input ReconcileInput) (map[domain.ExternalIdentity]*domain.LocalTransaction, error) {
	dealIDs := make([]int64, 0, len(input.Candidates))
	seen := make(map[int64]struct{}, len(input.Candidates))
	for _, c := range input.Candidates {
		if _, ok := seen[c.Identity.DealID]; ok {
			continue
		}
		seen[c.Identity.DealID] = struct{}{}
		dealIDs = append(dealIDs, c.Identity.DealID)
	}

	var byDeal, inRange []*domain.LocalTransaction

	err := uc.retrier.Retry(ctx, func() error {
		var err error
		byDeal, err = uc.repo.ListByDealIDs(ctx, input.CompanyID, dealIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !input.DateFrom.IsZero() && !input.DateTo.IsZero() {
		err = uc.retrier.Retry(ctx, func() error {
			var err error
			inRange, err = uc.repo.ListInRange(ctx, input.CompanyID, input.DateFrom, input.DateTo)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	existing := make(map[domain.ExternalIdentity]*domain.LocalTransaction, len(byDeal)+len(inRange))
	for _, txn := range slices.Concat(byDeal, inRange) {
		if _, ok := existing[txn.Identity]; !ok {
			existing[txn.Identity] = txn
		}
	}

	return existing, nil
}

// decide classifies every candidate in input order. Incoming funds are
// filtered out before identity matching.
func (uc *ReconciliationUseCase) decide(candidates []*domain.Candidate, existing map[domain.ExternalIdentity]*domain.LocalTransaction, report *domain.SyncReport) []step {
	steps := make([]step, 0, len(candidates))
	decided := make(map[domain.ExternalIdentity]struct{}, len(candidates))

	for _, c := range candidates {
		if c.IsIncoming() {
			report.Excluded++
			uc.metrics.AddRecords(ActionExclude, 1)
			continue
		}

		report.Selected++

		s := step{identity: c.Identity, candidate: c}

		if err := c.Validate(); err != nil {
			s.action = ActionError
			s.err = err
			steps = append(steps, s)
			continue
		}

		if _, dup := decided[c.Identity]; dup {
			s.action = ActionError
			s.err = fmt.Errorf("%w: %s appears twice in the candidate set", domain.ErrDuplicateIdentity, c.Identity)
			steps = append(steps, s)
			continue
		}
		decided[c.Identity] = struct{}{}

		current, ok := existing[c.Identity]
		switch {
		case !ok:
			s.action = ActionCreate
		case domain.HasChanged(current, c):
			s.action = ActionUpdate
			s.existing = current
		default:
			s.action = ActionSkip
			s.existing = current
		}

		steps = append(steps, s)
	}

	return steps
}

// sweepSteps lists existing records whose identity is absent from the full
// candidate set, incoming candidates included. Records of deals whose detail
// fetch failed are left alone.
func (uc *ReconciliationUseCase) sweepSteps(input ReconcileInput, existing map[domain.ExternalIdentity]*domain.LocalTransaction) []step {
	present := make(map[domain.ExternalIdentity]struct{}, len(input.Candidates))
	for _, c := range input.Candidates {
		present[c.Identity] = struct{}{}
	}

	protected := make(map[int64]struct{}, len(input.FailedDeals))
	for _, f := range input.FailedDeals {
		protected[f.DealID] = struct{}{}
	}

	var steps []step
	for identity, txn := range existing {
		if _, ok := present[identity]; ok {
			continue
		}
		if _, ok := protected[identity.DealID]; ok {
			continue
		}

		steps = append(steps, step{action: ActionDelete, identity: identity, existing: txn})
	}

	slices.SortFunc(steps, func(a, b step) int {
		if a.identity.DealID != b.identity.DealID {
			return cmp.Compare(a.identity.DealID, b.identity.DealID)
		}
		return cmp.Compare(a.identity.DetailID, b.identity.DetailID)
	})

	return steps
}

// execute runs steps with bounded concurrency. Outcomes are stored by index
// so that they come back in step order.
func (uc *ReconciliationUseCase) execute(ctx context.Context, input ReconcileInput, steps []step) []outcome {
	outcomes := make([]outcome, len(steps))

	if uc.concurrency < 2 || input.DryRun {
		for i, s := range steps {
			outcomes[i] = uc.apply(ctx, input, s)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, s := range steps {
		g.Go(func() error {
			outcomes[i] = uc.apply(ctx, input, s)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// apply executes a single step. Errors are carried in the outcome.
func (uc *ReconciliationUseCase) apply(ctx context.Context, input ReconcileInput, s step) outcome {
	out := outcome{action: s.action, identity: s.identity.String()}

	if s.err != nil {
		out.err = s.err
		return out
	}
	if input.DryRun || s.action == ActionSkip {
		return out
	}

	now := uc.clock.Now()

	switch s.action {
	case ActionCreate:
		txn := domain.NewLocalTransaction(uc.idGen.Generate(), s.candidate, input.RunID, now)
		out.err = uc.inTx(ctx, func(tx Transaction) error {
			return uc.repo.CreateTx(ctx, tx, txn)
		})

	case ActionUpdate:
		txn := *s.existing
		txn.ApplyCandidate(s.candidate)
		txn.SyncRunID = input.RunID
		txn.SyncedAt = now
		txn.UpdatedAt = now
		out.err = uc.inTx(ctx, func(tx Transaction) error {
			return uc.repo.UpdateTx(ctx, tx, &txn)
		})

	case ActionDelete:
		out.err = uc.inTx(ctx, func(tx Transaction) error {
			if uc.cleaner != nil {
				if err := uc.cleaner.DeleteByIdentity(ctx, tx, input.CompanyID, s.identity); err != nil {
					return fmt.Errorf("removing allocations: %w", err)
				}
			}
			return uc.repo.DeleteTx(ctx, tx, s.existing.ID)
		})

	default:
		out.err = fmt.Errorf("unknown action %q", s.action)
	}

	return out
}

// inTx runs fn in its own transaction, retrying transient failures.
func (uc *ReconciliationUseCase) inTx(ctx context.Context, fn func(tx Transaction) error) error {
	return uc.retrier.Retry(ctx, func() error {
		ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (uc *ReconciliationUseCase) record(report *domain.SyncReport, out outcome, logger zerolog.Logger, c *domain.Candidate) {
	if out.err != nil {
		event := logger.Warn().
			Err(out.err).
			Str("external_identity", out.identity).
			Str("action", out.action)
		if c != nil {
			event = event.Str("description", c.Description)
		}
		event.Msg("record not reconciled")

		report.AddError(out.identity, out.err.Error())
		uc.metrics.AddRecords(ActionError, 1)
		return
	}

	switch out.action {
	case ActionCreate:
		report.Created++
	case ActionUpdate:
		report.Updated++
	case ActionSkip:
		report.Skipped++
	case ActionDelete:
		report.Deleted++
	}
	uc.metrics.AddRecords(out.action, 1)

	logger.Debug().
		Str("external_identity", out.identity).
		Str("action", out.action).
		Msg("record reconciled")
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }
