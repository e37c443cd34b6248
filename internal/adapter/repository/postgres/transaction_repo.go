package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/infrastructure/postgres/generated"
	"github.com/iho/dealsync/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// ListByDealIDs loads every record of the company whose deal id is in dealIDs.
func (r *TransactionRepository) ListByDealIDs(ctx context.Context, companyID int64, dealIDs []int64) ([]*domain.LocalTransaction, error) {
	if len(dealIDs) == 0 {
		return nil, nil
	}

	rows, err := r.queries.ListTransactionsByDealIDs(ctx, generated.ListTransactionsByDealIDsParams{
		CompanyID: companyID,
		DealIds:   dealIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions by deal: %w", err)
	}

	return rowsToTransactions(rows), nil
}

// ListInRange loads every record of the company dated within [from, to].
func (r *TransactionRepository) ListInRange(ctx context.Context, companyID int64, from, to time.Time) ([]*domain.LocalTransaction, error) {
	rows, err := r.queries.ListTransactionsInRange(ctx, generated.ListTransactionsInRangeParams{
		CompanyID: companyID,
		DateFrom:  timeToPgDate(from),
		DateTo:    timeToPgDate(to),
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions in range: %w", err)
	}

	return rowsToTransactions(rows), nil
}

// CreateTx inserts a record within a transaction.
func (r *TransactionRepository) CreateTx(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error {
	err := txQueries(tx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:                txn.ID,
		CompanyID:         txn.CompanyID,
		ExternalDealID:    txn.Identity.DealID,
		ExternalDetailID:  txn.Identity.DetailID,
		Date:              timeToPgDate(txn.Date),
		Description:       txn.Description,
		Amount:            decimalToNumeric(decimal.NewFromInt(txn.Amount)),
		Side:              string(txn.Side),
		AccountLabel:      txn.AccountLabel,
		CounterpartyLabel: txn.CounterpartyLabel,
		Memo:              txn.Memo,
		Tags:              txn.Tags,
		ReceiptIds:        nonNilIDs(txn.ReceiptIDs),
		SyncRunID:         txn.SyncRunID,
		SyncedAt:          timeToPgTimestamptz(txn.SyncedAt),
		CreatedAt:         timeToPgTimestamptz(txn.CreatedAt),
		UpdatedAt:         timeToPgTimestamptz(txn.UpdatedAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentity, txn.Identity)
		}
		return err
	}

	return nil
}

// UpdateTx overwrites the reconciled fields of a record within a transaction.
func (r *TransactionRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error {
	n, err := txQueries(tx).UpdateTransaction(ctx, generated.UpdateTransactionParams{
		ID:                txn.ID,
		Date:              timeToPgDate(txn.Date),
		Description:       txn.Description,
		Amount:            decimalToNumeric(decimal.NewFromInt(txn.Amount)),
		Side:              string(txn.Side),
		AccountLabel:      txn.AccountLabel,
		CounterpartyLabel: txn.CounterpartyLabel,
		Memo:              txn.Memo,
		Tags:              txn.Tags,
		ReceiptIds:        nonNilIDs(txn.ReceiptIDs),
		SyncRunID:         txn.SyncRunID,
		SyncedAt:          timeToPgTimestamptz(txn.SyncedAt),
		UpdatedAt:         timeToPgTimestamptz(txn.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// DeleteTx removes a record within a transaction.
func (r *TransactionRepository) DeleteTx(ctx context.Context, tx usecase.Transaction, id string) error {
	n, err := txQueries(tx).DeleteTransaction(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

func rowsToTransactions(rows []generated.Transaction) []*domain.LocalTransaction {
	out := make([]*domain.LocalTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTransaction(row))
	}
	return out
}

func rowToTransaction(row generated.Transaction) *domain.LocalTransaction {
	return &domain.LocalTransaction{
		ID:        row.ID,
		CompanyID: row.CompanyID,
		Identity: domain.ExternalIdentity{
			DealID:   row.ExternalDealID,
			DetailID: row.ExternalDetailID,
		},
		Date:              pgDateToTime(row.Date),
		Description:       row.Description,
		Amount:            numericToDecimal(row.Amount).IntPart(),
		Side:              domain.Side(row.Side),
		AccountLabel:      row.AccountLabel,
		CounterpartyLabel: row.CounterpartyLabel,
		Memo:              row.Memo,
		Tags:              row.Tags,
		ReceiptIDs:        row.ReceiptIds,
		SyncRunID:         row.SyncRunID,
		SyncedAt:          row.SyncedAt.Time,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}

// receipt_ids is NOT NULL; a nil slice would encode as NULL.
func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
