package domain

import (
	"fmt"
	"time"
)

// Candidate is one upstream detail line evaluated during a sync run.
type Candidate struct {
	Identity    ExternalIdentity
	CompanyID   int64
	Side        Side
	Date        time.Time
	Description string
	Amount      int64
	Memo        string

	AccountItemID int64
	PartnerID     int64
	TagIDs        []int64
	ReceiptIDs    []int64

	// Labels filled in by the reference resolver.
	AccountLabel      string
	CounterpartyLabel string
	Tags              string

	// PositionalIdentity is set when the upstream omitted the detail line id
	// and the line's position was used instead.
	PositionalIdentity bool
}

// IsIncoming reports whether the candidate records incoming funds.
func (c *Candidate) IsIncoming() bool {
	return c.Side == SideIncome
}

// Validate rejects candidates that cannot be reconciled.
func (c *Candidate) Validate() error {
	if c.Identity.DealID <= 0 {
		return fmt.Errorf("%w: deal id must be positive", ErrMalformedCandidate)
	}

	if c.Identity.DetailID <= 0 {
		return fmt.Errorf("%w: detail id must be positive", ErrMalformedCandidate)
	}

	if c.Date.IsZero() {
		return fmt.Errorf("%w: missing issue date", ErrMalformedCandidate)
	}

	if c.Side == "" {
		return fmt.Errorf("%w: unknown deal type", ErrMalformedCandidate)
	}

	if c.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrMalformedCandidate)
	}

	return nil
}
