package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tada/internal/model"
)

func newTestServer(t *testing.T, token string) (*MemoryBackend, *httptest.Server) {
	t.Helper()
	backend := NewMemoryBackend("https://tada.example")
	srv := httptest.NewServer(NewServer(backend, token, zaptest.NewLogger(t)))
	t.Cleanup(srv.Close)
	return backend, srv
}

func TestClientServer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, srv := newTestServer(t, "secret")
	laptop := NewClient(srv.URL, "secret")
	phone := NewClient(srv.URL, "secret")

	status, err := laptop.AccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccountAvailable, status)

	done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, laptop.Push(ctx, "laptop", []model.Record{
		{Kind: model.KindList, ID: "l1", Fields: model.ListFields, Name: "Work"},
		{Kind: model.KindItem, ID: "i1", ListID: "l1", Fields: model.ItemFields, Text: "ship", CompletionTime: &done},
	}))

	res, err := phone.Pull(ctx, "phone", "")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Work", res.Records[0].Name)
	require.NotNil(t, res.Records[1].CompletionTime)
	assert.True(t, res.Records[1].CompletionTime.Equal(done))
	assert.Equal(t, "2", res.Cursor)

	h, err := phone.Share(ctx, "l1", "Work")
	require.NoError(t, err)
	assert.Equal(t, "l1", h.ListID)

	shared, err := laptop.IsShared(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, shared)

	_, err = phone.Share(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientServer_RejectsBadToken(t *testing.T) {
	_, srv := newTestServer(t, "secret")

	_, err := NewClient(srv.URL, "wrong").AccountStatus(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestServer_RequestIDEchoed(t *testing.T) {
	_, srv := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/account", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestServer_PushValidation(t *testing.T) {
	_, srv := newTestServer(t, "")
	err := NewClient(srv.URL, "").Push(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		responseWithJSON(w, http.StatusOK, sharedResponse{Shared: true})
	}))
	defer srv.Close()

	shared, err := NewClient(srv.URL, "").IsShared(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, shared)
	assert.Equal(t, int32(2), calls.Load())
}
