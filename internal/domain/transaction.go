package domain

import (
	"time"
)

// Side carries the direction of a deal; amounts are always magnitudes.
type Side string

const (
	SideExpense Side = "expense"
	SideIncome  Side = "income"
)

// ParseSide maps an upstream deal type onto a Side. Unknown values yield "".
func ParseSide(v any) Side {
	switch NormalizeString(v) {
	case "expense", "EXPENSE", "Expense", "out", "outgoing":
		return SideExpense
	case "income", "INCOME", "Income", "in", "incoming":
		return SideIncome
	default:
		return ""
	}
}

// LocalTransaction is the locally held copy of one upstream detail line.
type LocalTransaction struct {
	ID                string
	CompanyID         int64
	Identity          ExternalIdentity
	Date              time.Time
	Description       string
	Amount            int64
	Side              Side
	AccountLabel      string
	CounterpartyLabel string
	Memo              string
	Tags              string
	ReceiptIDs        []int64
	SyncRunID         string
	SyncedAt          time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ApplyCandidate overwrites every reconciled field with the candidate's
// normalized values. Identity and local id are left untouched.
func (t *LocalTransaction) ApplyCandidate(c *Candidate) {
	t.Date = NormalizeDate(c.Date)
	t.Description = NormalizeString(c.Description)
	t.Amount = NormalizeAmount(c.Amount)
	t.Side = c.Side
	t.AccountLabel = NormalizeString(c.AccountLabel)
	t.CounterpartyLabel = NormalizeString(c.CounterpartyLabel)
	t.Memo = NormalizeString(c.Memo)
	t.Tags = NormalizeString(c.Tags)
	t.ReceiptIDs = NormalizeIDs(c.ReceiptIDs)
}

// NewLocalTransaction builds a record for a candidate with no local match.
func NewLocalTransaction(id string, c *Candidate, runID string, now time.Time) *LocalTransaction {
	t := &LocalTransaction{
		ID:        id,
		CompanyID: c.CompanyID,
		Identity:  c.Identity,
		SyncRunID: runID,
		SyncedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.ApplyCandidate(c)

	return t
}
