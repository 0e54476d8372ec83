package sync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/remote"
	tadasync "github.com/nhle/tada/internal/sync"
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
	args := m.Called(ctx, device, records)
	return args.Error(0)
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

type device struct {
	svc    *lists.Service
	engine *tadasync.Engine
	repl   *tadasync.Replicator
}

func newDevice(t *testing.T, backend remote.Backend) *device {
	t.Helper()
	log := zaptest.NewLogger(t)
	svc := lists.New(testutil.NewTestStore(t), log)

	engine := tadasync.NewEngine(log, tadasync.WithSuccessDisplay(20*time.Millisecond))
	engine.Start()
	t.Cleanup(engine.Stop)

	repl := tadasync.NewReplicator(engine, svc, backend, svc.Store(), log, tadasync.ReplicatorOptions{
		PollInterval: time.Hour,
		Timeout:      time.Second,
		SaveDebounce: 10 * time.Millisecond,
	})
	return &device{svc: svc, engine: engine, repl: repl}
}

func (d *device) start(t *testing.T) {
	t.Helper()
	d.repl.Start(context.Background())
	t.Cleanup(d.repl.Stop)
}

func listNames(t *testing.T, svc *lists.Service) []string {
	t.Helper()
	all, err := svc.Lists(context.Background())
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, l := range all {
		names[i] = l.Name
	}
	return names
}

func TestReplicator_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("https://tada.example")
	laptop := newDevice(t, backend)
	phone := newDevice(t, backend)

	work, err := laptop.svc.CreateList(ctx, "Work")
	require.NoError(t, err)
	_, err = laptop.svc.CreateItem(ctx, work.ID, "write report")
	require.NoError(t, err)

	laptop.start(t)
	phone.start(t)

	// The laptop pushes on start; the phone may have pulled before that.
	phone.repl.SyncNow()
	require.Eventually(t, func() bool {
		phone.repl.SyncNow()
		return assert.ObjectsAreEqual([]string{"Work"}, listNames(t, phone.svc))
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		items, err := phone.svc.ActiveItems(ctx, work.ID)
		return err == nil && len(items) == 1 && items[0].Text == "write report"
	}, 2*time.Second, 20*time.Millisecond)

	// An edit on the phone reaches the laptop through the debounced push.
	require.NoError(t, phone.svc.RenameList(ctx, work.ID, "Office"))
	require.Eventually(t, func() bool {
		laptop.repl.SyncNow()
		return assert.ObjectsAreEqual([]string{"Office"}, listNames(t, laptop.svc))
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return !laptop.engine.Status().LastSync.IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestReplicator_LocalSaveTriggersPush(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("")
	laptop := newDevice(t, backend)
	laptop.start(t)

	_, err := laptop.svc.CreateList(ctx, "Errands")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res, err := backend.Pull(ctx, "someone-else", "")
		return err == nil && len(res.Records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		recs, _, err := laptop.svc.PendingRecords(ctx)
		return err == nil && len(recs) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestReplicator_ErrorSuppressesAutomaticSync(t *testing.T) {
	ctx := context.Background()
	var pushes atomic.Int32
	backend := new(MockBackend)
	backend.On("AccountStatus", mock.Anything).Return(remote.AccountAvailable, nil)
	backend.On("Pull", mock.Anything, mock.Anything, mock.Anything).Return(remote.PullResult{}, nil)
	backend.On("Push", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { pushes.Add(1) }).
		Return(errors.New("service unavailable"))

	laptop := newDevice(t, backend)
	_, err := laptop.svc.CreateList(ctx, "Work")
	require.NoError(t, err)
	laptop.start(t)

	require.Eventually(t, func() bool {
		return laptop.engine.Status().State == tadasync.Error
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, laptop.engine.Status().Message, "service unavailable")

	// A local save neither clears the error nor retries.
	_, err = laptop.svc.CreateList(ctx, "Home")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, tadasync.Error, laptop.engine.Status().State)
	assert.Equal(t, int32(1), pushes.Load())

	// An explicit request retries.
	laptop.repl.SyncNow()
	require.Eventually(t, func() bool {
		return pushes.Load() == 2
	}, time.Second, 5*time.Millisecond)
	// Every round trip merges before it pushes.
	backend.AssertNumberOfCalls(t, "Pull", 2)
}

func TestReplicator_NoAccountIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("")
	backend.SetAccountStatus(remote.AccountNoAccount)

	laptop := newDevice(t, backend)
	laptop.start(t)

	require.Eventually(t, laptop.repl.LocalOnly, time.Second, 5*time.Millisecond)

	_, err := laptop.svc.CreateList(ctx, "Offline")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, tadasync.Idle, laptop.engine.Status().State)

	res, err := backend.Pull(ctx, "other", "")
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	// Once the account appears, an explicit request syncs.
	backend.SetAccountStatus(remote.AccountAvailable)
	laptop.repl.SyncNow()
	require.Eventually(t, func() bool {
		res, err := backend.Pull(ctx, "other", "")
		return err == nil && len(res.Records) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, laptop.repl.LocalOnly())
}

func TestReplicator_NilBackendIsInert(t *testing.T) {
	laptop := newDevice(t, nil)
	laptop.start(t)

	laptop.repl.SyncNow()
	time.Sleep(30 * time.Millisecond)
	assert.True(t, laptop.repl.LocalOnly())
	assert.Equal(t, tadasync.Idle, laptop.engine.Status().State)
}

func TestReplicator_RunOnce(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("")
	laptop := newDevice(t, backend)

	l, err := laptop.svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	_, err = laptop.svc.CreateItem(ctx, l.ID, "milk")
	require.NoError(t, err)

	require.NoError(t, laptop.repl.RunOnce(ctx))
	assert.Eventually(t, func() bool {
		return laptop.engine.Status().LastSync.After(time.Time{})
	}, time.Second, 5*time.Millisecond)

	res, err := backend.Pull(ctx, "other", "")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)

	backend.SetAccountStatus(remote.AccountRestricted)
	assert.ErrorIs(t, laptop.repl.RunOnce(ctx), tadasync.ErrLocalOnly)
}

// runAll performs one synchronous round trip on each device in turn.
func runAll(t *testing.T, devices ...*device) {
	t.Helper()
	for _, d := range devices {
		require.NoError(t, d.repl.RunOnce(context.Background()))
	}
}

func itemTexts(t *testing.T, svc *lists.Service, listID string) []string {
	t.Helper()
	items, err := svc.ActiveItems(context.Background(), listID)
	require.NoError(t, err)
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return texts
}

func TestReplicator_ConcurrentRenamesConverge(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("")
	laptop := newDevice(t, backend)
	phone := newDevice(t, backend)

	work, err := laptop.svc.CreateList(ctx, "Work")
	require.NoError(t, err)
	runAll(t, laptop, phone)
	require.Equal(t, []string{"Work"}, listNames(t, phone.svc))

	require.NoError(t, laptop.svc.RenameList(ctx, work.ID, "A"))
	runAll(t, laptop)
	require.NoError(t, phone.svc.RenameList(ctx, work.ID, "B"))
	runAll(t, phone)

	runAll(t, laptop, phone)

	assert.Equal(t, []string{"B"}, listNames(t, laptop.svc))
	assert.Equal(t, []string{"B"}, listNames(t, phone.svc))
}

func TestReplicator_ConcurrentMovesConverge(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend("")
	laptop := newDevice(t, backend)
	phone := newDevice(t, backend)

	l, err := laptop.svc.CreateList(ctx, "Errands")
	require.NoError(t, err)
	ids := make(map[string]string)
	for _, text := range []string{"a", "b", "c"} {
		it, err := laptop.svc.CreateItem(ctx, l.ID, text)
		require.NoError(t, err)
		ids[text] = it.ID
	}
	runAll(t, laptop, phone)
	require.Equal(t, []string{"a", "b", "c"}, itemTexts(t, phone.svc, l.ID))

	require.NoError(t, laptop.svc.MoveItem(ctx, ids["c"], order.Placement{Target: ids["a"]}))
	require.NoError(t, phone.svc.MoveItem(ctx, ids["a"], order.Placement{Target: ids["c"], After: true}))

	runAll(t, laptop, phone)
	runAll(t, laptop, phone)

	want := itemTexts(t, phone.svc, l.ID)
	assert.Equal(t, []string{"b", "c", "a"}, want)
	assert.Equal(t, want, itemTexts(t, laptop.svc, l.ID))

	// Quiescent: nothing left to push on either side.
	for _, d := range []*device{laptop, phone} {
		recs, _, err := d.svc.PendingRecords(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs)
	}
}
