// Package memory is an in-process RecordStore used by tests and local
// development. It keeps the arena-with-index shape of the persistent
// backends: records keyed by primary key with a secondary unique index on
// the business identifier, so the lifecycle logic runs unchanged against it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/firedesk/records-service/internal/model"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"github.com/google/uuid"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "memory",
		Loader: func(ctx context.Context) (registrystore.RecordStore, error) {
			return New(), nil
		},
	})
}

// MemoryStore implements RecordStore over process-local maps.
type MemoryStore struct {
	mu           sync.RWMutex
	records      map[string]*model.Record // primary key → record
	byBusinessID map[string]string        // business id → primary key
	counters     map[string]int64
	seqs         map[string]int64 // insertion order, for stable tie-breaks
	nextSeq      int64
}

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{
		records:      map[string]*model.Record{},
		byBusinessID: map[string]string{},
		counters:     map[string]int64{},
		seqs:         map[string]int64{},
	}
}

func (s *MemoryStore) Insert(ctx context.Context, rec *model.Record) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBusinessID[rec.BusinessID]; exists {
		return nil, &registrystore.ConflictError{Message: "business identifier already exists: " + rec.BusinessID}
	}

	stored := clone(rec)
	stored.ID = uuid.New().String()
	s.records[stored.ID] = stored
	s.byBusinessID[stored.BusinessID] = stored.ID
	s.nextSeq++
	s.seqs[stored.ID] = s.nextSeq
	return clone(stored), nil
}

func (s *MemoryStore) FindByKey(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok || rec.Kind != kind {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	return clone(rec), nil
}

func (s *MemoryStore) FindByBusinessID(ctx context.Context, kind model.RecordKind, businessID string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byBusinessID[businessID]
	if !ok {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: businessID}
	}
	rec := s.records[key]
	if rec.Kind != kind {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: businessID}
	}
	return clone(rec), nil
}

func (s *MemoryStore) List(ctx context.Context, q registrystore.ListQuery) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Record
	search := strings.ToLower(q.Search)
	for _, rec := range s.records {
		if rec.Kind != q.Kind {
			continue
		}
		if q.Status != nil && rec.Status != *q.Status {
			continue
		}
		if search != "" && !matches(rec, search) {
			continue
		}
		out = append(out, *clone(rec))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seqs[out[i].ID] > s.seqs[out[j].ID]
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(rec *model.Record, search string) bool {
	for _, field := range []string{rec.BusinessID, rec.Subject.BuildingName, rec.Subject.OwnerName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, kind model.RecordKind, key string, patch registrystore.StatusPatch) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Kind != kind {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	rec.Status = patch.Status
	if patch.Remarks != nil {
		rec.Remarks = *patch.Remarks
	}
	if patch.ReviewedBy != nil {
		rec.ReviewedBy = *patch.ReviewedBy
	}
	rec.LastUpdated = time.Now()
	return clone(rec), nil
}

func (s *MemoryStore) UpdateSubject(ctx context.Context, kind model.RecordKind, key string, subject model.Subject, checklist model.Checklist) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Kind != kind {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	rec.Subject = subject
	rec.Checklist = cloneChecklist(checklist)
	rec.LastUpdated = time.Now()
	return clone(rec), nil
}

func (s *MemoryStore) Delete(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Kind != kind {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	delete(s.records, key)
	delete(s.byBusinessID, rec.BusinessID)
	delete(s.seqs, key)
	return rec, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context, kind model.RecordKind) (*registrystore.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := &registrystore.StatusCounts{ByStatus: map[model.Status]int64{}}
	for _, status := range model.Statuses() {
		counts.ByStatus[status] = 0
	}
	for _, rec := range s.records {
		if rec.Kind != kind {
			continue
		}
		counts.Total++
		counts.ByStatus[rec.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) NextSequence(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	return s.counters[name], nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func clone(rec *model.Record) *model.Record {
	out := *rec
	out.Checklist = cloneChecklist(rec.Checklist)
	out.Attachments = make(model.AttachmentSet, len(rec.Attachments))
	for slot, files := range rec.Attachments {
		out.Attachments[slot] = append([]string(nil), files...)
	}
	return &out
}

func cloneChecklist(checklist model.Checklist) model.Checklist {
	out := make(model.Checklist, len(checklist))
	for category, items := range checklist {
		copied := make(map[string]bool, len(items))
		for item, value := range items {
			copied[item] = value
		}
		out[category] = copied
	}
	return out
}
