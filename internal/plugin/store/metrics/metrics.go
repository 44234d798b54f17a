package metrics

import (
	"context"
	"time"

	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/store"
	"github.com/firedesk/records-service/internal/security"
)

// Wrap returns a RecordStore that records StoreLatency for every operation.
func Wrap(inner store.RecordStore) store.RecordStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.RecordStore
}

func observe(op string, start time.Time) {
	if security.StoreLatency != nil {
		security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *metricsStore) Insert(ctx context.Context, rec *model.Record) (*model.Record, error) {
	defer observe("insert", time.Now())
	return m.inner.Insert(ctx, rec)
}

func (m *metricsStore) FindByKey(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	defer observe("find_by_key", time.Now())
	return m.inner.FindByKey(ctx, kind, key)
}

func (m *metricsStore) FindByBusinessID(ctx context.Context, kind model.RecordKind, businessID string) (*model.Record, error) {
	defer observe("find_by_business_id", time.Now())
	return m.inner.FindByBusinessID(ctx, kind, businessID)
}

func (m *metricsStore) List(ctx context.Context, q store.ListQuery) ([]model.Record, error) {
	defer observe("list", time.Now())
	return m.inner.List(ctx, q)
}

func (m *metricsStore) UpdateStatus(ctx context.Context, kind model.RecordKind, key string, patch store.StatusPatch) (*model.Record, error) {
	defer observe("update_status", time.Now())
	return m.inner.UpdateStatus(ctx, kind, key, patch)
}

func (m *metricsStore) UpdateSubject(ctx context.Context, kind model.RecordKind, key string, subject model.Subject, checklist model.Checklist) (*model.Record, error) {
	defer observe("update_subject", time.Now())
	return m.inner.UpdateSubject(ctx, kind, key, subject, checklist)
}

func (m *metricsStore) Delete(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	defer observe("delete", time.Now())
	return m.inner.Delete(ctx, kind, key)
}

func (m *metricsStore) CountByStatus(ctx context.Context, kind model.RecordKind) (*store.StatusCounts, error) {
	defer observe("count_by_status", time.Now())
	return m.inner.CountByStatus(ctx, kind)
}

func (m *metricsStore) NextSequence(ctx context.Context, name string) (int64, error) {
	defer observe("next_sequence", time.Now())
	return m.inner.NextSequence(ctx, name)
}

func (m *metricsStore) Ping(ctx context.Context) error {
	defer observe("ping", time.Now())
	return m.inner.Ping(ctx)
}
