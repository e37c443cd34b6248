package domain

import "strconv"

// ExternalIdentity ties a local record to one detail line of an upstream deal.
type ExternalIdentity struct {
	DealID   int64
	DetailID int64
}

// String renders the identity for logs and wire formats.
func (id ExternalIdentity) String() string {
	return strconv.FormatInt(id.DealID, 10) + ":" + strconv.FormatInt(id.DetailID, 10)
}

// IsZero reports whether the identity is unset.
func (id ExternalIdentity) IsZero() bool {
	return id.DealID == 0 && id.DetailID == 0
}

// DealIdentityString is used for errors that concern every line of a deal.
func DealIdentityString(dealID int64) string {
	return strconv.FormatInt(dealID, 10) + ":*"
}
