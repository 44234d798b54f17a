package store

import (
	"context"
	"fmt"

	"github.com/firedesk/records-service/internal/model"
)

// ListQuery restricts and orders a record listing. Results are always
// ordered by creation time, most recent first.
type ListQuery struct {
	Kind model.RecordKind
	// Status restricts to an exact canonical status when non-nil.
	Status *model.Status
	// Search matches case-insensitively as a substring against the business
	// identifier, building name, and owner name.
	Search string
	// Limit caps the result size; <= 0 means no cap.
	Limit int
}

// StatusPatch is the input to a status transition. Remarks and ReviewedBy
// are only written when non-nil; omission preserves the prior value.
type StatusPatch struct {
	Status     model.Status
	Remarks    *string
	ReviewedBy *string
}

// StatusCounts summarizes a kind's records for dashboards.
type StatusCounts struct {
	Total    int64                  `json:"total"`
	ByStatus map[model.Status]int64 `json:"byStatus"`
}

// RecordStore is the document-store adapter behind the record lifecycle.
//
// Implementations must enforce business-identifier uniqueness with the
// store's own atomicity guarantees (unique index, atomic counter) — never
// with read-then-write logic. Update and delete take the storage primary
// key; dual-key resolution happens in the lifecycle service.
type RecordStore interface {
	// Insert persists a new record and returns it with the assigned primary
	// key. Returns ConflictError when the business identifier already exists.
	Insert(ctx context.Context, rec *model.Record) (*model.Record, error)

	// FindByKey looks a record up by its storage primary key.
	FindByKey(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error)

	// FindByBusinessID looks a record up by its business identifier.
	FindByBusinessID(ctx context.Context, kind model.RecordKind, businessID string) (*model.Record, error)

	// List returns records matching the query, newest first.
	List(ctx context.Context, q ListQuery) ([]model.Record, error)

	// UpdateStatus applies a status transition and refreshes lastUpdated.
	UpdateStatus(ctx context.Context, kind model.RecordKind, key string, patch StatusPatch) (*model.Record, error)

	// UpdateSubject replaces the subject fields and checklist of a record.
	// BusinessID, status, attachments, and createdAt are untouched.
	UpdateSubject(ctx context.Context, kind model.RecordKind, key string, subject model.Subject, checklist model.Checklist) (*model.Record, error)

	// Delete removes the record and returns its last state so the caller can
	// release attachments. Returns NotFoundError when no record matches.
	Delete(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error)

	// CountByStatus returns per-status totals for a kind.
	CountByStatus(ctx context.Context, kind model.RecordKind) (*StatusCounts, error)

	// NextSequence atomically increments and returns the named counter.
	// The first call for a name returns 1.
	NextSequence(ctx context.Context, name string) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Loader creates a RecordStore from the config carried in ctx.
type Loader func(ctx context.Context) (RecordStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
