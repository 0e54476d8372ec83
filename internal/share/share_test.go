package share_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/share"
	"github.com/nhle/tada/tests/testutil"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) AccountStatus(ctx context.Context) (remote.AccountStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(remote.AccountStatus), args.Error(1)
}

func (m *MockBackend) Push(ctx context.Context, device string, records []model.Record) error {
	return m.Called(ctx, device, records).Error(0)
}

func (m *MockBackend) Pull(ctx context.Context, device, cursor string) (remote.PullResult, error) {
	args := m.Called(ctx, device, cursor)
	return args.Get(0).(remote.PullResult), args.Error(1)
}

func (m *MockBackend) Share(ctx context.Context, listID, title string) (remote.ShareHandle, error) {
	args := m.Called(ctx, listID, title)
	return args.Get(0).(remote.ShareHandle), args.Error(1)
}

func (m *MockBackend) IsShared(ctx context.Context, listID string) (bool, error) {
	args := m.Called(ctx, listID)
	return args.Bool(0), args.Error(1)
}

func pushAll(t *testing.T, svc *lists.Service, backend remote.Backend) {
	t.Helper()
	ctx := context.Background()
	recs, _, err := svc.PendingRecords(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Push(ctx, "laptop", recs))
}

func TestShare_CachesSharedFlag(t *testing.T) {
	ctx := context.Background()
	svc := lists.New(testutil.NewTestStore(t), zaptest.NewLogger(t))
	backend := remote.NewMemoryBackend("https://tada.example")
	sharing := share.New(backend, svc, zaptest.NewLogger(t))

	l, err := svc.CreateList(ctx, "Trip")
	require.NoError(t, err)

	// Not on the backend yet.
	_, err = sharing.Share(ctx, l.ID)
	require.ErrorIs(t, err, remote.ErrNotFound)

	pushAll(t, svc, backend)
	h, err := sharing.Share(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", h.Title)
	assert.Contains(t, h.URL, "https://tada.example/s/")

	got, err := svc.List(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, got.Shared)

	shared, err := sharing.IsShared(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, shared)
}

func TestShare_IsSharedFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	svc := lists.New(testutil.NewTestStore(t), zaptest.NewLogger(t))
	backend := new(MockBackend)
	sharing := share.New(backend, svc, zaptest.NewLogger(t))

	l, err := svc.CreateList(ctx, "Trip")
	require.NoError(t, err)
	require.NoError(t, svc.SetShared(ctx, l.ID, true))

	backend.On("IsShared", mock.Anything, l.ID).Return(false, errors.New("offline")).Once()
	shared, err := sharing.IsShared(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, shared)

	// A definite answer from the backend refreshes the cache.
	backend.On("IsShared", mock.Anything, l.ID).Return(false, nil).Once()
	shared, err = sharing.IsShared(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, shared)

	got, err := svc.List(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, got.Shared)
	backend.AssertExpectations(t)
}

func TestShare_NoBackend(t *testing.T) {
	ctx := context.Background()
	svc := lists.New(testutil.NewTestStore(t), zaptest.NewLogger(t))
	sharing := share.New(nil, svc, zaptest.NewLogger(t))

	l, err := svc.CreateList(ctx, "Trip")
	require.NoError(t, err)

	_, err = sharing.Share(ctx, l.ID)
	assert.ErrorIs(t, err, share.ErrUnavailable)

	shared, err := sharing.IsShared(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, shared)
}

func TestComposeInvite(t *testing.T) {
	var buf bytes.Buffer
	err := share.ComposeInvite(&buf, share.Invite{
		From:     "Nam <nam@example.com>",
		To:       "a@example.com, B <b@example.com>",
		ListName: "Trip",
		URL:      "https://tada.example/s/abc",
		Date:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	mr, err := mail.CreateReader(&buf)
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Nam shared a list with you: Trip", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "b@example.com", to[1].Address)

	id, err := mr.Header.MessageID()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	p, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "https://tada.example/s/abc")
}

func TestComposeInvite_Validation(t *testing.T) {
	tests := []struct {
		name string
		inv  share.Invite
	}{
		{"bad sender", share.Invite{From: "nope", To: "a@example.com", URL: "u"}},
		{"no recipients", share.Invite{From: "a@example.com", To: "", URL: "u"}},
		{"no url", share.Invite{From: "a@example.com", To: "b@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, share.ComposeInvite(&buf, tt.inv))
		})
	}
}
