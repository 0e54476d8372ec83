package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/tada/internal/keys"
	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/store"
	tadasync "github.com/nhle/tada/internal/sync"
	"github.com/nhle/tada/internal/theme"
	"github.com/nhle/tada/internal/ui"
	"github.com/nhle/tada/internal/ui/board"
	helpview "github.com/nhle/tada/internal/ui/help"
	"github.com/nhle/tada/internal/ui/prompt"
	"github.com/nhle/tada/internal/ui/settings"
	"github.com/nhle/tada/internal/ui/syncbar"
)

// StatusSource is the sync status API.
type StatusSource interface {
	Status() tadasync.Status
	Subscribe() (<-chan tadasync.Status, func())
	Dismiss()
}

// Syncer triggers round trips.
type Syncer interface {
	SyncNow()
	LocalOnly() bool
}

// Lifecycle receives foreground and background signals.
type Lifecycle interface {
	Foreground()
	Background()
}

// Sharer creates share records and reports, caching the answer, whether
// the backend holds one for a list.
type Sharer interface {
	Share(ctx context.Context, listID string) (remote.ShareHandle, error)
	IsShared(ctx context.Context, listID string) (bool, error)
}

// Deps are the services the UI drives.
type Deps struct {
	Lists   *lists.Service
	Status  StatusSource
	Sync    Syncer
	Cleanup Lifecycle
	Share   Sharer
	// Settings is nil when the config file cannot be edited.
	Settings *settings.Deps
	Log      *zap.Logger
}

// dataLoadedMsg carries a fresh snapshot of the board.
type dataLoadedMsg struct {
	lists  []board.ListRow
	listID string
	items  []model.Item
	err    error
}

// opDoneMsg reports the outcome of a mutation.
type opDoneMsg struct {
	info string
	err  error
}

// storeChangedMsg is sent when a merge from the backend committed.
type storeChangedMsg struct{}

// sharedRefreshedMsg reports how many shared badges the backend changed.
type sharedRefreshedMsg struct {
	changed int
	err     error
}

// Model is the root Bubble Tea model. It routes keys to the board, the
// prompt, or the help overlay and turns them into service calls.
type Model struct {
	deps     Deps
	keys     *keys.KeyMap
	frame    ui.Frame
	board    board.Model
	prompt   prompt.Model
	settings settings.Model
	helpView helpview.Model
	syncbar  syncbar.Model
	showHelp bool
	flash    string
	flashErr bool
	ready    bool

	statusCh    <-chan tadasync.Status
	changesCh   <-chan store.ChangeSet
	unsubscribe []func()
}

// New creates the root model and subscribes to status and store changes.
// Call Close when the program exits.
func New(deps Deps) *Model {
	k := keys.DefaultKeyMap()
	statusCh, cancelStatus := deps.Status.Subscribe()
	changesCh, cancelChanges := deps.Lists.Store().Subscribe()

	bar := syncbar.New(deps.Status.Status())
	bar.SetLocalOnly(deps.Sync.LocalOnly())

	var sd settings.Deps
	if deps.Settings != nil {
		sd = *deps.Settings
	}

	return &Model{
		deps:        deps,
		keys:        k,
		board:       board.New(k, 80, 22),
		prompt:      prompt.New(80, 24),
		settings:    settings.New(sd, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		syncbar:     bar,
		statusCh:    statusCh,
		changesCh:   changesCh,
		unsubscribe: []func(){cancelStatus, cancelChanges},
	}
}

// Close releases the subscriptions.
func (m *Model) Close() {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
}

// Init loads the board and starts listening for status and merges.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.load(""),
		m.refreshShared(),
		syncbar.Wait(m.statusCh),
		waitForRemote(m.changesCh),
	)
}

// waitForRemote delivers storeChangedMsg for the next batch merged from
// the backend. Local batches are skipped since their commands reload.
func waitForRemote(ch <-chan store.ChangeSet) tea.Cmd {
	return func() tea.Msg {
		for cs := range ch {
			if cs.Origin == store.OriginRemote {
				return storeChangedMsg{}
			}
		}
		return nil
	}
}

// Update handles messages and dispatches to the active component.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.frame = ui.NewFrame(msg.Width, msg.Height)
		m.ready = true
		w, h := m.frame.Body()
		m.board.SetSize(w, h)
		m.prompt.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward so huh forms can calculate their layout.
		var promptCmd, settingsCmd tea.Cmd
		m.prompt, promptCmd = m.prompt.Update(msg)
		m.settings, settingsCmd = m.settings.Update(msg)
		return m, tea.Batch(promptCmd, settingsCmd)

	case tea.FocusMsg:
		m.deps.Cleanup.Foreground()
		m.deps.Sync.SyncNow()
		return m, m.refreshShared()

	case tea.BlurMsg:
		m.deps.Cleanup.Background()
		return m, nil

	case syncbar.StatusMsg:
		m.syncbar.SetLocalOnly(m.deps.Sync.LocalOnly())
		var cmd tea.Cmd
		m.syncbar, cmd = m.syncbar.Update(msg)
		return m, tea.Batch(cmd, syncbar.Wait(m.statusCh))

	case spinner.TickMsg:
		// Each spinner ignores ticks carrying another spinner's ID.
		var barCmd, settingsCmd tea.Cmd
		m.syncbar, barCmd = m.syncbar.Update(msg)
		m.settings, settingsCmd = m.settings.Update(msg)
		return m, tea.Batch(barCmd, settingsCmd)

	case settings.DoneMsg:
		if msg.Config != nil {
			*m.deps.Settings.Config = *msg.Config
			m.flash, m.flashErr = "settings saved; restart tada to apply sync changes", false
		}
		return m, nil

	case storeChangedMsg:
		// A refresh that flips a badge commits a remote batch of its own;
		// the next refresh finds nothing to change.
		return m, tea.Batch(m.load(m.board.SelectedListID()), m.refreshShared(), waitForRemote(m.changesCh))

	case sharedRefreshedMsg:
		if msg.err != nil {
			m.setFlash(msg.err)
			return m, nil
		}
		if msg.changed == 0 {
			return m, nil
		}
		return m, m.load(m.board.SelectedListID())

	case dataLoadedMsg:
		if msg.err != nil {
			m.setFlash(msg.err)
			return m, nil
		}
		cmd := m.board.SetLists(msg.lists)
		if m.board.SelectedListID() != msg.listID {
			// The list changed under us; fetch the right items.
			return m, tea.Batch(cmd, m.load(m.board.SelectedListID()))
		}
		return m, tea.Batch(cmd, m.board.SetItems(msg.items))

	case opDoneMsg:
		if msg.err != nil {
			m.setFlash(msg.err)
		} else {
			m.flash, m.flashErr = msg.info, false
		}
		return m, m.load(m.board.SelectedListID())

	case board.ListSelectedMsg:
		return m, m.load(msg.ListID)

	case board.NewItemMsg:
		return m, m.createItem(msg.ListID, msg.Text)

	case prompt.SubmitMsg:
		return m, m.submit(msg)

	case prompt.CancelMsg:
		return m, nil

	case tea.KeyMsg:
		if m.settings.Active() {
			var cmd tea.Cmd
			m.settings, cmd = m.settings.Update(msg)
			return m, cmd
		}
		if m.prompt.Active() {
			var cmd tea.Cmd
			m.prompt, cmd = m.prompt.Update(msg)
			return m, cmd
		}
		if m.board.Entering() {
			var cmd tea.Cmd
			m.board, cmd = m.board.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			if key.Matches(msg, m.keys.Help, m.keys.Dismiss) {
				m.showHelp = false
			}
			return m, nil
		}
		return m.handleKey(msg)
	}

	if m.settings.Active() {
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}
	if m.prompt.Active() {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setFlash(err error) {
	m.deps.Log.Warn("ui operation failed", zap.Error(err))
	m.flash, m.flashErr = err.Error(), true
}

// handleKey turns global keys into actions. Unmatched keys go to the
// board for navigation.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	onLists := m.board.Focus() == board.PaneLists
	list, hasList := m.board.SelectedList()
	item, hasItem := m.board.SelectedItem()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Sync):
		m.deps.Sync.SyncNow()
		if m.deps.Sync.LocalOnly() {
			m.flash = "sync is not configured"
		}
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		if m.deps.Settings == nil {
			m.flash = "settings are unavailable"
			return m, nil
		}
		return m, m.settings.Start()

	case key.Matches(msg, m.keys.Dismiss) && m.syncbar.Status().State == tadasync.Error:
		m.deps.Status.Dismiss()
		return m, nil

	case key.Matches(msg, m.keys.NewList):
		return m, m.prompt.StartName(prompt.KindNewList, "", "New list", "")

	case key.Matches(msg, m.keys.NewItem):
		return m, m.board.StartEntry()

	case key.Matches(msg, m.keys.Rename):
		if onLists && hasList {
			return m, m.prompt.StartName(prompt.KindRenameList, list.ID, "Rename list", list.Name)
		}
		if !onLists && hasItem {
			return m, m.prompt.StartName(prompt.KindRenameItem, item.ID, "Rename item", item.Text)
		}

	case key.Matches(msg, m.keys.Delete):
		if onLists && hasList {
			return m, m.prompt.StartConfirm(prompt.KindDeleteList, list.ID,
				fmt.Sprintf("Delete %q and all its items?", list.Name))
		}
		if !onLists && hasItem {
			return m, m.prompt.StartConfirm(prompt.KindDeleteItem, item.ID,
				fmt.Sprintf("Delete %q?", item.Text))
		}

	case key.Matches(msg, m.keys.DuplicateList):
		if hasList {
			return m, m.prompt.StartName(prompt.KindDuplicateList, list.ID, "Duplicate as", list.Name+" copy")
		}

	case key.Matches(msg, m.keys.ShareList):
		if hasList {
			return m, m.shareList(list.ID)
		}

	case key.Matches(msg, m.keys.HideCompleted):
		if hasList {
			return m, m.hideCompleted(list.ID)
		}

	case key.Matches(msg, m.keys.ToggleComplete):
		if !onLists && hasItem {
			return m, m.toggleCompletion(item.ID)
		}

	case key.Matches(msg, m.keys.ToggleStarted):
		if !onLists && hasItem {
			return m, m.toggleStarted(item.ID)
		}

	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		delta := 1
		if key.Matches(msg, m.keys.MoveUp) {
			delta = -1
		}
		if onLists && hasList {
			return m, m.moveList(list.ID, delta)
		}
		if !onLists && hasItem && !item.IsCompleted() {
			return m, m.moveItem(item.ListID, item.ID, delta)
		}

	default:
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the header, the active view and the footer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.frame.Header("tada", m.syncbar.View())
	w, h := m.frame.Body()

	var content string
	switch {
	case m.settings.Active():
		content = m.settings.View()
	case m.prompt.Active():
		content = lipgloss.Place(w, h,
			lipgloss.Center, lipgloss.Center, m.prompt.View())
	case m.showHelp:
		content = m.helpView.View()
	default:
		content = m.board.View()
	}

	hints := m.helpView.ShortView()
	if m.flash != "" {
		hints = m.flash
		if m.flashErr {
			hints = theme.ErrorStyle.Render(m.flash)
		}
	}

	return m.frame.Compose(header, content, m.frame.Footer(hints))
}
