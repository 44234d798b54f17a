package lifecycle

import (
	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/store"
)

// NewStatusPatch validates a boundary status value and builds the patch for
// the store. Comparison is case-insensitive; the canonical casing is what
// gets persisted. Membership in the enumerated set is the only rule the
// machine enforces: UnderReview may be skipped, and nothing hard-blocks
// re-opening an Approved or Rejected record — that leniency is deliberate.
// Remarks and reviewedBy are carried only when supplied; omission preserves
// the prior values.
func NewStatusPatch(statusValue string, remarks, reviewedBy *string) (store.StatusPatch, error) {
	status, ok := model.ParseStatus(statusValue)
	if !ok {
		return store.StatusPatch{}, &store.InvalidStatusError{Value: statusValue}
	}
	return store.StatusPatch{
		Status:     status,
		Remarks:    remarks,
		ReviewedBy: reviewedBy,
	}, nil
}
