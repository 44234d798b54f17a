package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/attach"
	registrycache "github.com/firedesk/records-service/internal/registry/cache"
	"github.com/firedesk/records-service/internal/registry/store"
)

// Service runs the record lifecycle against an injected store and file
// store, so the same logic serves the mongo backend in production and the
// in-process map backend in tests.
type Service struct {
	store     store.RecordStore
	files     attach.FileStore
	cache     registrycache.StatsCache
	maxUpload int64
	statsTTL  time.Duration
	now       func() time.Time
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	// MaxUploadSize caps one attachment upload, in bytes.
	MaxUploadSize int64
	// Cache, when non-nil, serves dashboard counts with TTL-bounded staleness.
	Cache registrycache.StatsCache
	// StatsCacheTTL bounds dashboard count staleness.
	StatsCacheTTL time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a record lifecycle service.
func New(st store.RecordStore, files attach.FileStore, opts Options) *Service {
	s := &Service{
		store:     st,
		files:     files,
		cache:     opts.Cache,
		maxUpload: opts.MaxUploadSize,
		statsTTL:  opts.StatsCacheTTL,
		now:       opts.Now,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 * 1024 * 1024
	}
	if s.statsTTL <= 0 {
		s.statsTTL = time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates the submission, binds uploads, mints a business
// identifier, and persists the record with status Submitted. All fields are
// populated atomically: a failed insert leaves no visible record and no
// orphaned files. The returned AttachmentErrors describe optional uploads
// that were rejected without failing the creation.
func (s *Service) Create(ctx context.Context, spec *KindSpec, in SubmissionInput, uploads []Upload) (*model.Record, []*AttachmentError, error) {
	subject, checklist, err := in.Parse(s.now())
	if err != nil {
		return nil, nil, err
	}

	attachments, rejected, err := s.bindAttachments(ctx, spec, uploads)
	if err != nil {
		s.releaseStored(ctx, attachments)
		return nil, rejected, err
	}

	for attempt := 1; ; attempt++ {
		businessID, err := s.mintBusinessID(ctx, spec)
		if err != nil {
			s.releaseStored(ctx, attachments)
			return nil, rejected, err
		}

		now := s.now()
		created, err := s.store.Insert(ctx, &model.Record{
			Kind:        spec.Kind,
			BusinessID:  businessID,
			Subject:     subject,
			Checklist:   checklist,
			Attachments: attachments,
			Status:      model.StatusSubmitted,
			CreatedAt:   now,
			LastUpdated: now,
		})
		if err == nil {
			log.Info("Record created", "kind", spec.Kind, "businessId", businessID)
			return created, rejected, nil
		}

		var conflict *store.ConflictError
		if !errors.As(err, &conflict) || attempt >= maxMintAttempts {
			s.releaseStored(ctx, attachments)
			return nil, rejected, err
		}
		log.Warn("Business identifier collision, regenerating",
			"kind", spec.Kind, "businessId", businessID, "attempt", attempt)
	}
}

// Get looks a record up by a caller-supplied identifier string, which may be
// a storage primary key or a business identifier.
func (s *Service) Get(ctx context.Context, spec *KindSpec, idString string) (*model.Record, error) {
	return s.resolve(ctx, spec, idString)
}

// List returns the kind's records matching the optional status filter and
// search text, newest first.
func (s *Service) List(ctx context.Context, spec *KindSpec, statusFilter, search string) ([]model.Record, error) {
	q, err := ParseListFilter(spec, statusFilter, search)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, q)
}

// UpdateStatus applies a status transition identified by a caller-supplied
// identifier string. Remarks and reviewedBy are updated only when non-nil.
func (s *Service) UpdateStatus(ctx context.Context, spec *KindSpec, idString, statusValue string, remarks, reviewedBy *string) (*model.Record, error) {
	patch, err := NewStatusPatch(statusValue, remarks, reviewedBy)
	if err != nil {
		return nil, err
	}
	rec, err := s.resolve(ctx, spec, idString)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, spec.Kind, rec.ID, patch)
}

// UpdateSubject replaces a record's subject fields and checklist. The
// business identifier, status, attachments, and creation time are preserved.
func (s *Service) UpdateSubject(ctx context.Context, spec *KindSpec, idString string, in SubmissionInput) (*model.Record, error) {
	subject, checklist, err := in.Parse(s.now())
	if err != nil {
		return nil, err
	}
	rec, err := s.resolve(ctx, spec, idString)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateSubject(ctx, spec.Kind, rec.ID, subject, checklist)
}

// Delete removes a record and releases its attachment files. Record removal
// is authoritative; file removal is best-effort and never fails the delete.
func (s *Service) Delete(ctx context.Context, spec *KindSpec, idString string) error {
	rec, err := s.resolve(ctx, spec, idString)
	if err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, spec.Kind, rec.ID)
	if err != nil {
		return err
	}
	s.releaseAttachments(ctx, deleted)
	log.Info("Record deleted", "kind", spec.Kind, "businessId", deleted.BusinessID)
	return nil
}

// Stats returns the kind's per-status counts, served from the cache when
// one is configured.
func (s *Service) Stats(ctx context.Context, spec *KindSpec) (*store.StatusCounts, error) {
	if s.cache != nil && s.cache.Available() {
		if counts, err := s.cache.Get(ctx, spec.Kind); err != nil {
			log.Warn("Stats cache read failed", "kind", spec.Kind, "err", err)
		} else if counts != nil {
			return counts, nil
		}
	}
	counts, err := s.store.CountByStatus(ctx, spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("count records for %s: %w", spec.Kind, err)
	}
	if s.cache != nil && s.cache.Available() {
		if err := s.cache.Set(ctx, spec.Kind, *counts, s.statsTTL); err != nil {
			log.Warn("Stats cache write failed", "kind", spec.Kind, "err", err)
		}
	}
	return counts, nil
}

// resolve performs the dual-key lookup: the identifier string is classified
// exactly once and the classified lookup is the only one tried. A miss is
// NotFound — no fallback to the other strategy, which would hide
// classification ambiguity.
func (s *Service) resolve(ctx context.Context, spec *KindSpec, idString string) (*model.Record, error) {
	switch ClassifyIdentifier(idString) {
	case KeyPrimary:
		return s.store.FindByKey(ctx, spec.Kind, idString)
	default:
		return s.store.FindByBusinessID(ctx, spec.Kind, idString)
	}
}
