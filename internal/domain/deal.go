package domain

import (
	"encoding/json"
	"fmt"
)

// DealHeader is a deal as returned by the external ledger. Optional upstream
// fields are pointers so that absence survives decoding.
type DealHeader struct {
	ID        int64        `json:"id"`
	CompanyID int64        `json:"company_id"`
	IssueDate string       `json:"issue_date"`
	Type      string       `json:"type"`
	PartnerID *int64       `json:"partner_id,omitempty"`
	RefNumber *string      `json:"ref_number,omitempty"`
	Details   []DealDetail `json:"details"`
	Receipts  []Receipt    `json:"receipts,omitempty"`
}

// DealDetail is a single line of a deal.
type DealDetail struct {
	ID            int64       `json:"id"`
	AccountItemID int64       `json:"account_item_id"`
	Amount        json.Number `json:"amount"`
	Description   *string     `json:"description,omitempty"`
	TagIDs        []int64     `json:"tag_ids,omitempty"`
}

// Receipt references a document attached to a deal.
type Receipt struct {
	ID int64 `json:"id"`
}

// DealQuery selects a page of deals.
type DealQuery struct {
	DateFrom string
	DateTo   string
	Limit    int
	Offset   int
}

// Candidates fans a header out into one candidate per detail line.
//
// The detail line's upstream id is its identity. When the upstream omits it,
// the 1-based line position is used and the candidate is flagged as such.
func (d *DealHeader) Candidates(companyID int64) ([]*Candidate, error) {
	if len(d.Details) == 0 {
		return nil, fmt.Errorf("%w: deal %d has no detail lines", ErrMalformedCandidate, d.ID)
	}

	receiptIDs := make([]int64, 0, len(d.Receipts))
	for _, r := range d.Receipts {
		receiptIDs = append(receiptIDs, r.ID)
	}

	var partnerID int64
	if d.PartnerID != nil {
		partnerID = *d.PartnerID
	}

	memo := NormalizeString(d.RefNumber)
	side := ParseSide(d.Type)
	date := NormalizeDate(d.IssueDate)

	candidates := make([]*Candidate, 0, len(d.Details))
	for i, line := range d.Details {
		detailID := line.ID
		positional := false
		if detailID == 0 {
			detailID = int64(i + 1)
			positional = true
		}

		candidates = append(candidates, &Candidate{
			Identity:           ExternalIdentity{DealID: d.ID, DetailID: detailID},
			CompanyID:          companyID,
			Side:               side,
			Date:               date,
			Description:        NormalizeString(line.Description),
			Amount:             NormalizeAmount(line.Amount),
			Memo:               memo,
			AccountItemID:      line.AccountItemID,
			PartnerID:          partnerID,
			TagIDs:             NormalizeIDs(line.TagIDs),
			ReceiptIDs:         NormalizeIDs(receiptIDs),
			PositionalIdentity: positional,
		})
	}

	return candidates, nil
}
