package models

import "github.com/google/uuid"

// MaxBatchSize caps the number of ids a single bulk request may carry
const MaxBatchSize = 100

// TagMode selects how a bulk tag operation combines tags
type TagMode string

const (
	TagAdd     TagMode = "add"
	TagRemove  TagMode = "remove"
	TagReplace TagMode = "replace"
)

// BatchFailure records why one item of a bulk operation failed
type BatchFailure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// BatchResult reports the outcome of a bulk operation. Bulk operations
// are deliberately non-atomic: successes stand even when siblings fail.
type BatchResult struct {
	Total      int            `json:"total"`
	Successful []uuid.UUID    `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
}

// Principal is the authenticated caller resolved by the upstream auth layer
type Principal struct {
	ID   uuid.UUID
	Role string
}

// Privileged reports whether the principal may bypass ownership checks
func (p Principal) Privileged() bool {
	return p.Role == "admin"
}
