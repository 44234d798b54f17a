package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firedesk/records-service/internal/model"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
)

func record(businessID string, createdAt time.Time) *model.Record {
	return &model.Record{
		Kind:       model.KindApplication,
		BusinessID: businessID,
		Subject: model.Subject{
			BuildingType:     "commercial",
			BuildingName:     "Harbor Tower",
			Address:          "12 Dock Street",
			OwnerName:        "R. Fontaine",
			Contact:          "555-0142",
			Floors:           8,
			ConstructionYear: 2015,
		},
		Attachments: model.AttachmentSet{},
		Status:      model.StatusSubmitted,
		CreatedAt:   createdAt,
		LastUpdated: createdAt,
	}
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("assigns uuid primary key", func(t *testing.T) {
		created, err := s.Insert(ctx, record("NOC000001", time.Now()))
		require.NoError(t, err)
		require.Len(t, created.ID, 36)
	})

	t.Run("duplicate business id conflicts", func(t *testing.T) {
		_, err := s.Insert(ctx, record("NOC000001", time.Now()))
		var conflict *registrystore.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("stored record is isolated from caller mutation", func(t *testing.T) {
		rec := record("NOC000002", time.Now())
		rec.Checklist = model.Checklist{"fireSafety": {"alarms": true}}
		created, err := s.Insert(ctx, rec)
		require.NoError(t, err)

		rec.Checklist["fireSafety"]["alarms"] = false
		found, err := s.FindByKey(ctx, model.KindApplication, created.ID)
		require.NoError(t, err)
		require.True(t, found.Checklist["fireSafety"]["alarms"])
	})
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()

	// Insert out of chronological order.
	_, err := s.Insert(ctx, record("NOC000002", base.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = s.Insert(ctx, record("NOC000003", base))
	require.NoError(t, err)
	_, err = s.Insert(ctx, record("NOC000001", base.Add(-2*time.Hour)))
	require.NoError(t, err)

	out, err := s.List(ctx, registrystore.ListQuery{Kind: model.KindApplication})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "NOC000003", out[0].BusinessID)
	require.Equal(t, "NOC000002", out[1].BusinessID)
	require.Equal(t, "NOC000001", out[2].BusinessID)

	t.Run("equal timestamps break ties by insertion order", func(t *testing.T) {
		s := New()
		at := time.Now()
		for _, id := range []string{"NOC000010", "NOC000011", "NOC000012"} {
			_, err := s.Insert(ctx, record(id, at))
			require.NoError(t, err)
		}
		out, err := s.List(ctx, registrystore.ListQuery{Kind: model.KindApplication})
		require.NoError(t, err)
		require.Equal(t, "NOC000012", out[0].BusinessID)
		require.Equal(t, "NOC000010", out[2].BusinessID)
	})

	t.Run("limit truncates", func(t *testing.T) {
		out, err := s.List(ctx, registrystore.ListQuery{Kind: model.KindApplication, Limit: 2})
		require.NoError(t, err)
		require.Len(t, out, 2)
	})
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	counts, err := s.CountByStatus(ctx, model.KindApplication)
	require.NoError(t, err)
	require.Zero(t, counts.Total)
	// Every status is present even when empty.
	require.Len(t, counts.ByStatus, len(model.Statuses()))

	first, err := s.Insert(ctx, record("NOC000001", time.Now()))
	require.NoError(t, err)
	_, err = s.Insert(ctx, record("NOC000002", time.Now()))
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, model.KindApplication, first.ID, registrystore.StatusPatch{Status: model.StatusRejected})
	require.NoError(t, err)

	counts, err = s.CountByStatus(ctx, model.KindApplication)
	require.NoError(t, err)
	require.EqualValues(t, 2, counts.Total)
	require.EqualValues(t, 1, counts.ByStatus[model.StatusSubmitted])
	require.EqualValues(t, 1, counts.ByStatus[model.StatusRejected])
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("starts at one per counter", func(t *testing.T) {
		n, err := s.NextSequence(ctx, "records.application")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		n, err = s.NextSequence(ctx, "records.safety_review")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("concurrent increments never repeat", func(t *testing.T) {
		const n = 100
		results := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := s.NextSequence(ctx, "records.concurrent")
				if err == nil {
					results <- v
				}
			}()
		}
		wg.Wait()
		close(results)
		seen := map[int64]bool{}
		for v := range results {
			require.False(t, seen[v], "sequence value %d repeated", v)
			seen[v] = true
		}
		require.Len(t, seen, n)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	created, err := s.Insert(ctx, record("NOC000001", time.Now()))
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, model.KindApplication, created.ID)
	require.NoError(t, err)
	require.Equal(t, "NOC000001", deleted.BusinessID)

	var notFound *registrystore.NotFoundError
	_, err = s.FindByBusinessID(ctx, model.KindApplication, "NOC000001")
	require.ErrorAs(t, err, &notFound)
	_, err = s.Delete(ctx, model.KindApplication, created.ID)
	require.ErrorAs(t, err, &notFound)

	t.Run("business id is free after delete but sequence moves on", func(t *testing.T) {
		_, err := s.Insert(ctx, record("NOC000001", time.Now()))
		require.NoError(t, err)
	})
}
