package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/infrastructure/postgres/generated"
)

// SyncRunRepository persists the sync run audit trail.
type SyncRunRepository struct {
	queries *generated.Queries
}

// NewSyncRunRepository creates a new sync run repository.
func NewSyncRunRepository(pool *pgxpool.Pool) *SyncRunRepository {
	return newSyncRunRepository(pool)
}

func newSyncRunRepository(db generated.DBTX) *SyncRunRepository {
	return &SyncRunRepository{queries: generated.New(db)}
}

// Create inserts a run in its initial state.
func (r *SyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	err := r.queries.CreateSyncRun(ctx, generated.CreateSyncRunParams{
		ID:        run.ID,
		CompanyID: run.CompanyID,
		DateFrom:  timeToPgDate(run.DateFrom),
		DateTo:    timeToPgDate(run.DateTo),
		DryRun:    run.DryRun,
		Status:    string(run.Status),
		StartedAt: timeToPgTimestamptz(run.StartedAt),
	})
	if err != nil {
		return fmt.Errorf("creating sync run: %w", err)
	}

	return nil
}

// Finish stores the final status and counts of a run.
func (r *SyncRunRepository) Finish(ctx context.Context, run *domain.SyncRun) error {
	n, err := r.queries.FinishSyncRun(ctx, generated.FinishSyncRunParams{
		ID:           run.ID,
		Status:       string(run.Status),
		Selected:     int32(run.Selected),
		Created:      int32(run.Created),
		Updated:      int32(run.Updated),
		Skipped:      int32(run.Skipped),
		Deleted:      int32(run.Deleted),
		ErrorCount:   int32(run.ErrorCount),
		ErrorMessage: run.ErrorMessage,
		FinishedAt:   timePtrToPgTimestamptz(run.FinishedAt),
	})
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}
	if n == 0 {
		return domain.ErrSyncRunNotFound
	}

	return nil
}

// ListByCompany returns the company's runs, newest first.
func (r *SyncRunRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*domain.SyncRun, error) {
	rows, err := r.queries.ListSyncRunsByCompany(ctx, generated.ListSyncRunsByCompanyParams{
		CompanyID: companyID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}

	runs := make([]*domain.SyncRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, &domain.SyncRun{
			ID:           row.ID,
			CompanyID:    row.CompanyID,
			DateFrom:     pgDateToTime(row.DateFrom),
			DateTo:       pgDateToTime(row.DateTo),
			DryRun:       row.DryRun,
			Status:       domain.SyncRunStatus(row.Status),
			Selected:     int(row.Selected),
			Created:      int(row.Created),
			Updated:      int(row.Updated),
			Skipped:      int(row.Skipped),
			Deleted:      int(row.Deleted),
			ErrorCount:   int(row.ErrorCount),
			ErrorMessage: row.ErrorMessage,
			StartedAt:    row.StartedAt.Time,
			FinishedAt:   pgTimestamptzToTimePtr(row.FinishedAt),
		})
	}

	return runs, nil
}
