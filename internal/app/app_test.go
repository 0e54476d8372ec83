package app

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/share"
	tadasync "github.com/nhle/tada/internal/sync"
	"github.com/nhle/tada/internal/ui/board"
	"github.com/nhle/tada/internal/ui/prompt"
	"github.com/nhle/tada/internal/ui/settings"
	"github.com/nhle/tada/tests/testutil"
)

type fakeSyncer struct {
	syncs     int
	localOnly bool
}

func (f *fakeSyncer) SyncNow()        { f.syncs++ }
func (f *fakeSyncer) LocalOnly() bool { return f.localOnly }

type fakeLifecycle struct {
	foreground, background int
}

func (f *fakeLifecycle) Foreground() { f.foreground++ }
func (f *fakeLifecycle) Background() { f.background++ }

type fakeSharer struct{}

func (fakeSharer) Share(_ context.Context, listID string) (remote.ShareHandle, error) {
	return remote.ShareHandle{ListID: listID, URL: "https://tada.example/s/1"}, nil
}

func (fakeSharer) IsShared(context.Context, string) (bool, error) { return false, nil }

type fixture struct {
	m         Model
	svc       *lists.Service
	syncer    *fakeSyncer
	lifecycle *fakeLifecycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	svc := lists.New(testutil.NewTestStore(t), log)
	engine := tadasync.NewEngine(log)
	engine.Start()
	t.Cleanup(engine.Stop)

	f := &fixture{svc: svc, syncer: &fakeSyncer{}, lifecycle: &fakeLifecycle{}}
	root := New(Deps{
		Lists:   svc,
		Status:  engine,
		Sync:    f.syncer,
		Cleanup: f.lifecycle,
		Share:   fakeSharer{},
		Log:     log,
	})
	t.Cleanup(root.Close)

	f.m = *root
	f.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return f
}

// send delivers msg and follows returned opDoneMsg/dataLoadedMsg chains
// synchronously.
func (f *fixture) send(msg tea.Msg) {
	next, cmd := f.m.Update(msg)
	f.m = next.(Model)
	for cmd != nil {
		out := cmd()
		switch out.(type) {
		case opDoneMsg, dataLoadedMsg:
			next, cmd = f.m.Update(out)
			f.m = next.(Model)
		default:
			return
		}
	}
}

func TestApp_FocusAndBlurDriveLifecycle(t *testing.T) {
	f := newFixture(t)

	f.send(tea.FocusMsg{})
	assert.Equal(t, 1, f.lifecycle.foreground)
	assert.Equal(t, 1, f.syncer.syncs)

	f.send(tea.BlurMsg{})
	assert.Equal(t, 1, f.lifecycle.background)
}

func TestApp_CreateListAndItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.send(prompt.SubmitMsg{Kind: prompt.KindNewList, Value: "Groceries"})
	require.Equal(t, "Groceries", func() string { l, _ := f.m.board.SelectedList(); return l.Name }())

	listID := f.m.board.SelectedListID()
	f.send(board.NewItemMsg{ListID: listID, Text: "milk"})
	f.send(board.NewItemMsg{ListID: listID, Text: "eggs"})

	active, err := f.svc.ActiveItems(ctx, listID)
	require.NoError(t, err)
	require.Len(t, active, 2)

	it, ok := f.m.board.SelectedItem()
	require.True(t, ok)
	assert.Equal(t, "milk", it.Text)

	// Star the selected item from the items pane.
	f.m.board.SetFocus(board.PaneItems)
	eggs := active[1]
	f.send(f.m.toggleStarted(eggs.ID)())
	active, err = f.svc.ActiveItems(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, eggs.ID, active[0].ID)
}

func TestApp_ShareShowsURL(t *testing.T) {
	f := newFixture(t)
	f.send(prompt.SubmitMsg{Kind: prompt.KindNewList, Value: "Trip"})

	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("S")})
	assert.Contains(t, f.m.flash, "https://tada.example/s/1")
}

func TestApp_SharedBadgeFollowsBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := remote.NewMemoryBackend("https://tada.example")
	f.m.deps.Share = share.New(backend, f.svc, zaptest.NewLogger(t))

	f.send(prompt.SubmitMsg{Kind: prompt.KindNewList, Value: "Trip"})
	listID := f.m.board.SelectedListID()
	recs, _, err := f.svc.PendingRecords(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Push(ctx, "laptop", recs))

	// Shared from another device.
	_, err = backend.Share(ctx, listID, "Trip")
	require.NoError(t, err)
	l, _ := f.m.board.SelectedList()
	require.False(t, l.Shared)

	f.send(f.m.refreshShared()())
	l, _ = f.m.board.SelectedList()
	assert.True(t, l.Shared)

	cached, err := f.svc.List(ctx, listID)
	require.NoError(t, err)
	assert.True(t, cached.Shared)

	// Nothing left to change on the next refresh.
	assert.Equal(t, sharedRefreshedMsg{}, f.m.refreshShared()())
}

func TestApp_SyncKeyInLocalOnlyMode(t *testing.T) {
	f := newFixture(t)
	f.syncer.localOnly = true

	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, 1, f.syncer.syncs)
	assert.Equal(t, "sync is not configured", f.m.flash)
}

func TestNeighbour(t *testing.T) {
	ids := []string{"a", "b", "c"}
	tests := []struct {
		name  string
		id    string
		delta int
		want  order.Placement
		ok    bool
	}{
		{"up from middle", "b", -1, order.Placement{Target: "a"}, true},
		{"down from middle", "b", 1, order.Placement{Target: "c", After: true}, true},
		{"up from top", "a", -1, order.Placement{}, false},
		{"down from bottom", "c", 1, order.Placement{}, false},
		{"unknown", "z", 1, order.Placement{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := neighbour(ids, tt.id, tt.delta)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApp_SettingsUnavailable(t *testing.T) {
	f := newFixture(t)

	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(",")})
	assert.False(t, f.m.settings.Active())
	assert.Equal(t, "settings are unavailable", f.m.flash)
}

func TestApp_SettingsSaved(t *testing.T) {
	f := newFixture(t)
	cfg := model.DefaultAppConfig()
	f.m.deps.Settings = &settings.Deps{Config: cfg, Path: filepath.Join(t.TempDir(), "config.yaml")}
	f.m.settings = settings.New(*f.m.deps.Settings, 100, 30)

	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(",")})
	require.True(t, f.m.settings.Active())
	assert.Contains(t, f.m.View(), "Sync URL")

	updated := *cfg
	updated.Sync.URL = "https://tada.example"
	f.send(settings.DoneMsg{Config: &updated})
	assert.Equal(t, "https://tada.example", cfg.Sync.URL)
	assert.Contains(t, f.m.flash, "settings saved")
}
