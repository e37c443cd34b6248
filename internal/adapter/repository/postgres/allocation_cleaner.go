package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/infrastructure/postgres/generated"
	"github.com/iho/dealsync/internal/usecase"
)

// AllocationCleaner implements usecase.AllocationCleaner. Allocations
// reference transactions by foreign key, so they must go first.
type AllocationCleaner struct {
	logger zerolog.Logger
}

// NewAllocationCleaner creates a new AllocationCleaner.
func NewAllocationCleaner(logger zerolog.Logger) *AllocationCleaner {
	return &AllocationCleaner{logger: logger}
}

// DeleteByIdentity removes every allocation of the identified record.
func (c *AllocationCleaner) DeleteByIdentity(ctx context.Context, tx usecase.Transaction, companyID int64, identity domain.ExternalIdentity) error {
	n, err := txQueries(tx).DeleteAllocationsByIdentity(ctx, generated.DeleteAllocationsByIdentityParams{
		CompanyID:        companyID,
		ExternalDealID:   identity.DealID,
		ExternalDetailID: identity.DetailID,
	})
	if err != nil {
		return err
	}

	if n > 0 {
		c.logger.Debug().
			Int64("company_id", companyID).
			Str("identity", identity.String()).
			Int64("allocations", n).
			Msg("removed allocations of deleted transaction")
	}

	return nil
}
