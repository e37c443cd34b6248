package domain

import "slices"

// Field names a reconciled attribute of a local transaction.
type Field string

const (
	FieldDate         Field = "date"
	FieldAmount       Field = "amount"
	FieldDescription  Field = "description"
	FieldAccount      Field = "account"
	FieldCounterparty Field = "counterparty"
	FieldMemo         Field = "memo"
	FieldTags         Field = "tags"
	FieldReceipts     Field = "receipts"
	FieldSide         Field = "side"
)

// Diff lists the fields whose normalized values differ between the stored
// record and the candidate. Comparison is strict equality.
func Diff(existing *LocalTransaction, candidate *Candidate) []Field {
	var changed []Field

	if !SameDay(existing.Date, candidate.Date) {
		changed = append(changed, FieldDate)
	}
	if NormalizeAmount(existing.Amount) != NormalizeAmount(candidate.Amount) {
		changed = append(changed, FieldAmount)
	}
	if NormalizeString(existing.Description) != NormalizeString(candidate.Description) {
		changed = append(changed, FieldDescription)
	}
	if NormalizeString(existing.AccountLabel) != NormalizeString(candidate.AccountLabel) {
		changed = append(changed, FieldAccount)
	}
	if NormalizeString(existing.CounterpartyLabel) != NormalizeString(candidate.CounterpartyLabel) {
		changed = append(changed, FieldCounterparty)
	}
	if NormalizeString(existing.Memo) != NormalizeString(candidate.Memo) {
		changed = append(changed, FieldMemo)
	}
	if NormalizeString(existing.Tags) != NormalizeString(candidate.Tags) {
		changed = append(changed, FieldTags)
	}
	if !slices.Equal(NormalizeIDs(existing.ReceiptIDs), NormalizeIDs(candidate.ReceiptIDs)) {
		changed = append(changed, FieldReceipts)
	}
	if existing.Side != candidate.Side {
		changed = append(changed, FieldSide)
	}

	return changed
}

// HasChanged reports whether any reconciled field differs. A single differing
// field means the whole record is overwritten.
func HasChanged(existing *LocalTransaction, candidate *Candidate) bool {
	return len(Diff(existing, candidate)) > 0
}
