package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/offsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestClient_CreateEntity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/entities/workout", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req api.CreateEntityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "workout", req.EntityType)
		assert.Equal(t, "client-id-1", req.ClientID)

		resp := api.RemoteEntity{
			ID:         "server-id-9",
			EntityType: "workout",
			Payload:    req.Payload,
			Version:    1,
			UpdatedAt:  time.Now().UTC(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticTokenProvider("test-token"), testLogger())

	remote, err := client.CreateEntity(context.Background(), "workout", "client-id-1", []byte(`{"reps":10}`))
	require.NoError(t, err)
	assert.Equal(t, "server-id-9", remote.ID)
	assert.Equal(t, uint64(1), remote.Version)
}

func TestClient_TokenPerRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-77", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.RemoteEntity{ID: "w1", EntityType: "workout", Version: 1})
	}))
	defer server.Close()

	provider := &TokenProviderMock{
		TokenFunc: func(ctx context.Context) (string, error) {
			return "tok-77", nil
		},
	}
	client := NewClient(server.URL, provider, testLogger())
	ctx := context.Background()

	_, err := client.FetchEntity(ctx, "workout", "w1")
	require.NoError(t, err)
	_, err = client.FetchEntity(ctx, "workout", "w1")
	require.NoError(t, err)

	// every request asks the provider; caching is the provider's concern
	assert.Len(t, provider.TokenCalls(), 2)
}

func TestClient_TokenFailureAborts(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	provider := &TokenProviderMock{
		TokenFunc: func(ctx context.Context) (string, error) {
			return "", assert.AnError
		},
	}
	client := NewClient(server.URL, provider, testLogger())

	_, err := client.FetchEntity(context.Background(), "workout", "w1")
	require.Error(t, err)
	assert.Zero(t, hits)
}

func TestClient_UpdateEntityConflict(t *testing.T) {
	remoteUpdated := time.Now().UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/entities/workout/w1", r.URL.Path)

		var req api.UpdateEntityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(1), req.ExpectedVersion)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ConflictResponse{
			RemoteVersion:   2,
			RemotePayload:   []byte(`{"reps": 12}`),
			RemoteUpdatedAt: remoteUpdated,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	_, err := client.UpdateEntity(context.Background(), "workout", "w1", []byte(`{"reps": 11}`), 1)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	detail, ok := AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), detail.RemoteVersion)
	assert.JSONEq(t, `{"reps": 12}`, string(detail.RemoteData))
	assert.Equal(t, remoteUpdated, detail.RemoteUpdatedAt)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind Kind
	}{
		{name: "unauthorized is permanent", status: http.StatusUnauthorized, wantKind: KindPermanent},
		{name: "not found is permanent", status: http.StatusNotFound, wantKind: KindPermanent},
		{name: "validation is permanent", status: http.StatusUnprocessableEntity, wantKind: KindPermanent},
		{name: "rate limit is transient", status: http.StatusTooManyRequests, wantKind: KindTransient},
		{name: "server error is transient", status: http.StatusInternalServerError, wantKind: KindTransient},
		{name: "bad gateway is transient", status: http.StatusBadGateway, wantKind: KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Message: "nope"})
			}))
			defer server.Close()

			client := NewClient(server.URL, nil, testLogger())

			err := client.DeleteEntity(context.Background(), "workout", "w1")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestClient_DeleteNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	err := client.DeleteEntity(context.Background(), "workout", "already-gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClient_OfflineClassification(t *testing.T) {
	// closed server: connection refused maps to offline
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, nil, testLogger())

	_, err := client.FetchEntity(context.Background(), "workout", "w1")
	require.Error(t, err)
	assert.Equal(t, KindOffline, KindOf(err))
}

func TestClient_FetchEntitiesQuery(t *testing.T) {
	since := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, since.Format(time.RFC3339Nano), q.Get("updated_since"))
		assert.Equal(t, "kim", q.Get("f.author"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.FetchEntitiesResponse{
			Entities: []api.RemoteEntity{{ID: "a", EntityType: "post", Version: 3}},
			Total:    1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	resp, err := client.FetchEntities(context.Background(), "post",
		api.FetchFilters{UpdatedSince: &since, Fields: map[string]string{"author": "kim"}},
		api.Paging{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)
	assert.Equal(t, "a", resp.Entities[0].ID)
}

func TestClient_MediaRoundTrip(t *testing.T) {
	blob := []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/v1/media", r.URL.Path)
			assert.Equal(t, "photos/a.jpg", r.URL.Query().Get("path"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(api.UploadMediaResponse{URL: "/media/a.jpg"})
		case http.MethodGet:
			assert.Equal(t, "/media/a.jpg", r.URL.Path)
			_, _ = w.Write(blob)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())
	ctx := context.Background()

	mediaURL, err := client.UploadMedia(ctx, blob, "photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/media/a.jpg", mediaURL)

	// relative URL resolves against the base; absolute URLs pass through
	data, err := client.DownloadMedia(ctx, mediaURL)
	require.NoError(t, err)
	assert.Equal(t, blob, data)

	data, err = client.DownloadMedia(ctx, server.URL+"/media/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, blob, data)
}
