package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/model"
	registrymigrate "github.com/firedesk/records-service/internal/registry/migrate"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
)

// setupStore connects to the MongoDB named by RECORDS_TEST_MONGO_URL and
// skips when unset. Records are namespaced per test run via the business id
// so reruns do not collide.
func setupStore(t *testing.T) (registrystore.RecordStore, context.Context) {
	t.Helper()
	dbURL := os.Getenv("RECORDS_TEST_MONGO_URL")
	if dbURL == "" {
		t.Skip("RECORDS_TEST_MONGO_URL not set")
	}

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.DatastoreType = "mongo"
	ctx := config.WithContext(context.Background(), &cfg)

	require.NoError(t, registrymigrate.RunAll(ctx))

	loader, err := registrystore.Select("mongo")
	require.NoError(t, err)
	store, err := loader(ctx)
	require.NoError(t, err)
	return store, ctx
}

func TestMongoRoundTrip(t *testing.T) {
	store, ctx := setupStore(t)
	businessID := fmt.Sprintf("NOC-TEST-%d", time.Now().UnixNano())
	now := time.Now().Truncate(time.Millisecond)

	created, err := store.Insert(ctx, &model.Record{
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
		Checklist:   model.Checklist{"fireSafety": {"alarms": true}},
		Attachments: model.AttachmentSet{"buildingPlan": {"1700000000000-abcdef123456.pdf"}},
		Status:      model.StatusSubmitted,
		CreatedAt:   now,
		LastUpdated: now,
	})
	require.NoError(t, err)
	require.Len(t, created.ID, 24)
	t.Cleanup(func() {
		_, _ = store.Delete(ctx, model.KindApplication, created.ID)
	})

	t.Run("duplicate business id conflicts", func(t *testing.T) {
		_, err := store.Insert(ctx, &model.Record{
			Kind:       model.KindApplication,
			BusinessID: businessID,
			Status:     model.StatusSubmitted,
		})
		var conflict *registrystore.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("find by both keys", func(t *testing.T) {
		byKey, err := store.FindByKey(ctx, model.KindApplication, created.ID)
		require.NoError(t, err)
		require.Equal(t, businessID, byKey.BusinessID)
		require.True(t, byKey.Checklist["fireSafety"]["alarms"])

		byBusiness, err := store.FindByBusinessID(ctx, model.KindApplication, businessID)
		require.NoError(t, err)
		require.Equal(t, created.ID, byBusiness.ID)
	})

	t.Run("status patch", func(t *testing.T) {
		remarks := "needs a second exit"
		updated, err := store.UpdateStatus(ctx, model.KindApplication, created.ID, registrystore.StatusPatch{
			Status:  model.StatusUnderReview,
			Remarks: &remarks,
		})
		require.NoError(t, err)
		require.Equal(t, model.StatusUnderReview, updated.Status)
		require.Equal(t, remarks, updated.Remarks)

		updated, err = store.UpdateStatus(ctx, model.KindApplication, created.ID, registrystore.StatusPatch{Status: model.StatusApproved})
		require.NoError(t, err)
		require.Equal(t, remarks, updated.Remarks)
	})

	t.Run("search finds the record", func(t *testing.T) {
		out, err := store.List(ctx, registrystore.ListQuery{Kind: model.KindApplication, Search: businessID})
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("delete returns last state", func(t *testing.T) {
		deleted, err := store.Delete(ctx, model.KindApplication, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.Attachments, deleted.Attachments)

		var notFound *registrystore.NotFoundError
		_, err = store.FindByKey(ctx, model.KindApplication, created.ID)
		require.ErrorAs(t, err, &notFound)
	})
}

func TestMongoNextSequence(t *testing.T) {
	store, ctx := setupStore(t)
	name := fmt.Sprintf("records.test-%d", time.Now().UnixNano())

	first, err := store.NextSequence(ctx, name)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	second, err := store.NextSequence(ctx, name)
	require.NoError(t, err)
	require.EqualValues(t, 2, second)
}
