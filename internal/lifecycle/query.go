package lifecycle

import (
	"strings"

	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/store"
)

// StatusFilterAll is the sentinel list-filter value meaning "no status
// restriction".
const StatusFilterAll = "all"

// ParseListFilter builds a store query from the optional status and
// free-text search parameters of a list request. An empty or "all" status
// filter leaves all records in; anything else must canonicalize to a member
// of the status set. Search text matches case-insensitively as a substring
// against the business identifier, building name, and owner name.
func ParseListFilter(spec *KindSpec, statusFilter, search string) (store.ListQuery, error) {
	q := store.ListQuery{
		Kind:   spec.Kind,
		Search: strings.TrimSpace(search),
	}
	statusFilter = strings.TrimSpace(statusFilter)
	if statusFilter != "" && !strings.EqualFold(statusFilter, StatusFilterAll) {
		status, ok := model.ParseStatus(statusFilter)
		if !ok {
			return store.ListQuery{}, &store.InvalidStatusError{Value: statusFilter}
		}
		q.Status = &status
	}
	return q, nil
}
