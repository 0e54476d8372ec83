// Package settings is the in-app editor for the sync endpoint, the sync
// token and the cleanup windows.
package settings

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tada/internal/credential"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm       Mode = iota // Editing fields
	ModeValidating             // Testing connection
	ModeResult                 // Connection failed
)

const checkTimeout = 15 * time.Second

// DoneMsg signals the settings view closed. Config is set when the user
// saved.
type DoneMsg struct {
	Config *model.AppConfig
}

// checkFailedMsg carries a failed connection test.
type checkFailedMsg struct {
	err error
}

// savedMsg is sent after the config and token are persisted.
type savedMsg struct {
	cfg *model.AppConfig
	err error
}

// Checker reports the account status of the backend at url.
type Checker func(ctx context.Context, url, token string) (remote.AccountStatus, error)

// TokenStore persists secrets.
type TokenStore interface {
	Set(key, value string) error
}

// Deps are what the settings view reads and writes.
type Deps struct {
	Config *model.AppConfig
	Path   string
	// Tokens may be nil when no keyring could be opened.
	Tokens TokenStore
	Check  Checker
}

// fields holds form values on the heap so that huh's Value() pointers
// remain valid across Bubble Tea model copies.
type fields struct {
	url              string
	token            string
	hideAfter        string
	purgeAfter       string
	hideOnBackground bool
}

// Model is the Bubble Tea model for the settings editor.
type Model struct {
	deps    Deps
	mode    Mode
	form    *huh.Form
	fb      *fields
	spinner spinner.Model
	err     error
	active  bool

	width, height int
}

// New creates an inactive settings view.
func New(deps Deps, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		deps:    deps,
		fb:      &fields{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Active reports whether the view is open.
func (m Model) Active() bool { return m.active }

// Start opens the form prefilled from the current config.
func (m *Model) Start() tea.Cmd {
	cfg := m.deps.Config
	*m.fb = fields{
		url:              cfg.Sync.URL,
		hideAfter:        cfg.Cleanup.HideAfter.String(),
		purgeAfter:       cfg.Cleanup.PurgeAfter.String(),
		hideOnBackground: cfg.Cleanup.HideOnBackground,
	}
	m.active = true
	m.err = nil
	return m.openForm()
}

func (m *Model) openForm() tea.Cmd {
	m.mode = ModeForm
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sync URL").
				Description("Leave empty to keep lists on this device only").
				Placeholder("https://tada.example.com").
				Value(&m.fb.url).
				Validate(validateURL),
			huh.NewInput().
				Title("Sync token").
				Description("Leave empty to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Hide completed after").
				Description("e.g. 24h, 30m, 0s").
				Value(&m.fb.hideAfter).
				Validate(validateDuration),
			huh.NewInput().
				Title("Purge hidden after").
				Description("0s keeps hidden items forever").
				Value(&m.fb.purgeAfter).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Hide completed items when tada loses focus").
				Value(&m.fb.hideOnBackground),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case checkFailedMsg:
		m.err = msg.err
		m.mode = ModeResult
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = ModeResult
			return m, nil
		}
		m.active = false
		m.form = nil
		cfg := msg.cfg
		return m, func() tea.Msg { return DoneMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			// Only allow escape during validation
			if msg.String() == "esc" {
				return m, m.openForm()
			}
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		}
	}

	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}
	return m.updateForm(msg)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validateAndSave())
	case huh.StateAborted:
		m.active = false
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}
	return m, cmd
}

var (
	retryKey = key.NewBinding(key.WithKeys("r"))
	backKey  = key.NewBinding(key.WithKeys("esc", "enter"))
)

// handleResultKeys processes key events on the failure screen.
func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, retryKey):
		m.mode = ModeValidating
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.validateAndSave())
	case key.Matches(msg, backKey):
		m.err = nil
		return m, m.openForm()
	}
	return m, nil
}

// validateAndSave tests the connection when a URL is set, then writes the
// config file and the token.
func (m Model) validateAndSave() tea.Cmd {
	deps := m.deps
	fb := *m.fb
	return func() tea.Msg {
		cfg, err := apply(*deps.Config, fb)
		if err != nil {
			return checkFailedMsg{err: err}
		}

		if cfg.Sync.URL != "" && deps.Check != nil {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			status, err := deps.Check(ctx, cfg.Sync.URL, fb.token)
			if err != nil {
				return checkFailedMsg{err: err}
			}
			if status != remote.AccountAvailable {
				return checkFailedMsg{err: fmt.Errorf("account is %s", status)}
			}
		}

		if fb.token != "" {
			if deps.Tokens == nil {
				return savedMsg{err: fmt.Errorf("no keyring available to store the token")}
			}
			if err := deps.Tokens.Set(credential.SyncTokenKey, fb.token); err != nil {
				return savedMsg{err: err}
			}
		}
		if err := model.SaveConfig(deps.Path, &cfg); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{cfg: &cfg}
	}
}

// apply copies the form values onto cfg.
func apply(cfg model.AppConfig, fb fields) (model.AppConfig, error) {
	hide, err := time.ParseDuration(strings.TrimSpace(fb.hideAfter))
	if err != nil {
		return cfg, fmt.Errorf("hide after: %w", err)
	}
	purge, err := time.ParseDuration(strings.TrimSpace(fb.purgeAfter))
	if err != nil {
		return cfg, fmt.Errorf("purge after: %w", err)
	}
	if purge != 0 && purge < hide {
		purge = hide
	}

	cfg.Sync.URL = strings.TrimSpace(fb.url)
	cfg.Cleanup.HideAfter = hide
	cfg.Cleanup.PurgeAfter = purge
	cfg.Cleanup.HideOnBackground = fb.hideOnBackground
	return cfg, nil
}

// View renders the current mode.
func (m Model) View() string {
	if !m.active {
		return ""
	}

	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeValidating:
		return style.Render(fmt.Sprintf(
			"%s Testing connection...\n\nPress esc to cancel.",
			m.spinner.View(),
		))
	case ModeResult:
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		msg := ""
		if m.err != nil {
			msg = m.err.Error()
		}
		return style.Render(errStyle.Render("Settings not saved") + "\n\n" +
			msg + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("r retry | enter/esc back"))
	}

	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Settings")
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a duration")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
