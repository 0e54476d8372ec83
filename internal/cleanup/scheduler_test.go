package cleanup_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tada/internal/cleanup"
	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/tests/testutil"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, policy cleanup.Policy) (*lists.Service, *cleanup.Scheduler, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(start)
	svc := testutil.NewTestService(t, clock)
	sched := cleanup.NewScheduler(svc, policy, zaptest.NewLogger(t), cleanup.WithClock(clock.Now))
	return svc, sched, clock
}

func visibleTexts(t *testing.T, svc *lists.Service, listID string) []string {
	t.Helper()
	items, err := svc.VisibleItems(context.Background(), listID)
	require.NoError(t, err)
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return texts
}

func TestScheduler_SweepAfterRetentionWindow(t *testing.T) {
	ctx := context.Background()
	svc, sched, clock := setup(t, cleanup.DefaultPolicy())

	l, err := svc.CreateList(ctx, "L")
	require.NoError(t, err)
	var items []model.Item
	for _, text := range []string{"a", "b", "c"} {
		it, err := svc.CreateItem(ctx, l.ID, text)
		require.NoError(t, err)
		items = append(items, it)
	}
	_, err = svc.ToggleCompletion(ctx, items[1].ID)
	require.NoError(t, err)

	clock.Advance(23 * time.Hour)
	n, err := sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"a", "c", "b"}, visibleTexts(t, svc, l.ID))

	clock.Advance(2 * time.Hour)
	n, err = sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a", "c"}, visibleTexts(t, svc, l.ID))

	active, err := svc.ActiveItems(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, active[0].Order)
	assert.Equal(t, 1, active[1].Order)

	// Idempotent.
	n, err = sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduler_Purge(t *testing.T) {
	ctx := context.Background()
	svc, sched, clock := setup(t, cleanup.Policy{HideAfter: time.Hour, PurgeAfter: 48 * time.Hour})

	l, err := svc.CreateList(ctx, "L")
	require.NoError(t, err)
	it, err := svc.CreateItem(ctx, l.ID, "old")
	require.NoError(t, err)
	_, err = svc.ToggleCompletion(ctx, it.ID)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = sched.Sweep(ctx)
	require.NoError(t, err)

	n, err := sched.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(47 * time.Hour)
	n, err = sched.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Item(ctx, it.ID)
	assert.Error(t, err)
}

func TestScheduler_PurgeDisabled(t *testing.T) {
	_, sched, _ := setup(t, cleanup.Policy{HideAfter: time.Hour})
	n, err := sched.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type countingCleaner struct {
	hides  atomic.Int32
	purges atomic.Int32
	cutoff atomic.Int64
}

func (c *countingCleaner) HideCompletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	c.hides.Add(1)
	c.cutoff.Store(cutoff.UnixNano())
	return 0, nil
}

func (c *countingCleaner) PurgeHiddenBefore(context.Context, time.Time) (int, error) {
	c.purges.Add(1)
	return 0, nil
}

func TestScheduler_RunReactsToSignals(t *testing.T) {
	clock := testutil.NewClock(start)
	cleaner := &countingCleaner{}
	sched := cleanup.NewScheduler(cleaner, cleanup.Policy{
		HideAfter:        time.Hour,
		PurgeAfter:       time.Hour,
		Interval:         time.Hour,
		HideOnBackground: true,
	}, zaptest.NewLogger(t), cleanup.WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Startup pass.
	require.Eventually(t, func() bool { return cleaner.purges.Load() == 1 }, time.Second, 5*time.Millisecond)

	sched.Foreground()
	require.Eventually(t, func() bool { return cleaner.purges.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), cleaner.hides.Load())

	// The lean variant hides everything completed so far on background.
	sched.Background()
	require.Eventually(t, func() bool { return cleaner.hides.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, start.UnixNano(), cleaner.cutoff.Load())
	assert.Equal(t, int32(2), cleaner.purges.Load())
}
