package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/firedesk/records-service/internal/lifecycle"
	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/plugin/store/memory"
	registryattach "github.com/firedesk/records-service/internal/registry/attach"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"github.com/firedesk/records-service/internal/security"
)

type nopFiles struct{}

func (n *nopFiles) Store(ctx context.Context, originalName string, data io.Reader, maxSize int64) (*registryattach.StoredFile, error) {
	return &registryattach.StoredFile{Filename: registryattach.StorageName(originalName, time.Now())}, nil
}

func (n *nopFiles) Retrieve(ctx context.Context, filename string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (n *nopFiles) Delete(ctx context.Context, filename string) error { return nil }

func (n *nopFiles) SignedURL(ctx context.Context, filename string, expiry time.Duration) (*url.URL, error) {
	return nil, registryattach.ErrSignedURLUnsupported
}

func TestStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.New()
	svc := lifecycle.New(store, &nopFiles{}, lifecycle.Options{})
	router := gin.New()
	router.Use(security.AuthMiddleware(map[string]bool{"secret": true}))
	MountRoutes(router, svc)

	ctx := context.Background()
	now := time.Now()
	_, err := store.Insert(ctx, &model.Record{Kind: model.KindApplication, BusinessID: "NOC000001", Status: model.StatusSubmitted, CreatedAt: now})
	require.NoError(t, err)
	rejected, err := store.Insert(ctx, &model.Record{Kind: model.KindApplication, BusinessID: "NOC000002", Status: model.StatusSubmitted, CreatedAt: now})
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, model.KindApplication, rejected.ID, registrystore.StatusPatch{Status: model.StatusRejected})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &model.Record{Kind: model.KindSafetyReview, BusinessID: "SR-1-1", Status: model.StatusSubmitted, CreatedAt: now})
	require.NoError(t, err)

	t.Run("requires admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/stats", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("counts per kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/stats", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]struct {
			Total    int64            `json:"total"`
			ByStatus map[string]int64 `json:"byStatus"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, 2, resp["applications"].Total)
		require.EqualValues(t, 1, resp["applications"].ByStatus["Submitted"])
		require.EqualValues(t, 1, resp["applications"].ByStatus["Rejected"])
		require.EqualValues(t, 1, resp["safety-reviews"].Total)
	})
}
