package domain

import (
	"fmt"
)

// ReferenceType names a class of upstream reference data.
type ReferenceType string

const (
	ReferencePartner     ReferenceType = "partner"
	ReferenceAccountItem ReferenceType = "account_item"
	ReferenceTag         ReferenceType = "tag"
)

// ReferenceTypes lists every type resolved during a run.
var ReferenceTypes = []ReferenceType{ReferencePartner, ReferenceAccountItem, ReferenceTag}

// ReferenceItem is one id/name pair of reference data.
type ReferenceItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FallbackLabel is the label used when a reference id cannot be resolved.
func FallbackLabel(t ReferenceType, id int64) string {
	return fmt.Sprintf("%s#%d", t, id)
}
