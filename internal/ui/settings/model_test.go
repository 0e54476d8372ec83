package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tada/internal/credential"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
)

type memTokens map[string]string

func (m memTokens) Set(key, value string) error {
	m[key] = value
	return nil
}

func newModel(t *testing.T, check Checker) (Model, memTokens, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	tokens := memTokens{}
	m := New(Deps{
		Config: model.DefaultAppConfig(),
		Path:   path,
		Tokens: tokens,
		Check:  check,
	}, 100, 30)
	m.Start()
	return m, tokens, path
}

// submit runs the save command and feeds its result back into the model.
func submit(t *testing.T, m Model) (Model, tea.Msg) {
	t.Helper()
	m.mode = ModeValidating
	m, cmd := m.Update(m.validateAndSave()())
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestSettings_StartPrefills(t *testing.T) {
	m, _, _ := newModel(t, nil)
	assert.True(t, m.Active())
	assert.Equal(t, ModeForm, m.mode)
	assert.Equal(t, "24h0m0s", m.fb.hideAfter)
	assert.Empty(t, m.fb.url)
}

func TestSettings_SavesAfterSuccessfulCheck(t *testing.T) {
	var gotURL, gotToken string
	m, tokens, path := newModel(t, func(_ context.Context, url, token string) (remote.AccountStatus, error) {
		gotURL, gotToken = url, token
		return remote.AccountAvailable, nil
	})
	m.fb.url = " https://tada.example "
	m.fb.token = "secret-token"
	m.fb.hideAfter = "1h"
	m.fb.purgeAfter = "10m"

	m, msg := submit(t, m)
	done, ok := msg.(DoneMsg)
	require.True(t, ok)
	require.NotNil(t, done.Config)
	assert.False(t, m.Active())

	assert.Equal(t, "https://tada.example", gotURL)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "secret-token", tokens[credential.SyncTokenKey])

	saved, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://tada.example", saved.Sync.URL)
	assert.Equal(t, time.Hour, saved.Cleanup.HideAfter)
	assert.Equal(t, time.Hour, saved.Cleanup.PurgeAfter)
}

func TestSettings_FailedCheckKeepsViewOpen(t *testing.T) {
	m, tokens, path := newModel(t, func(context.Context, string, string) (remote.AccountStatus, error) {
		return "", errors.New("connection refused")
	})
	m.fb.url = "https://tada.example"
	m.fb.token = "secret-token"

	m, msg := submit(t, m)
	assert.Nil(t, msg)
	assert.True(t, m.Active())
	assert.Equal(t, ModeResult, m.mode)
	assert.Contains(t, m.View(), "connection refused")
	assert.Empty(t, tokens)
	assert.NoFileExists(t, path)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeForm, m.mode)
	assert.Equal(t, "https://tada.example", m.fb.url)
}

func TestSettings_RestrictedAccountRejected(t *testing.T) {
	m, _, _ := newModel(t, func(context.Context, string, string) (remote.AccountStatus, error) {
		return remote.AccountRestricted, nil
	})
	m.fb.url = "https://tada.example"

	m, _ = submit(t, m)
	assert.Equal(t, ModeResult, m.mode)
	assert.Contains(t, m.View(), "restricted")
}

func TestSettings_LocalOnlySkipsCheck(t *testing.T) {
	called := false
	m, tokens, path := newModel(t, func(context.Context, string, string) (remote.AccountStatus, error) {
		called = true
		return remote.AccountAvailable, nil
	})
	m.fb.purgeAfter = "0s"

	_, msg := submit(t, m)
	require.IsType(t, DoneMsg{}, msg)
	assert.False(t, called)
	assert.Empty(t, tokens)

	saved, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, saved.Sync.URL)
	assert.Zero(t, saved.Cleanup.PurgeAfter)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL(""))
	assert.NoError(t, validateURL("http://localhost:8787"))
	assert.Error(t, validateURL("tada.example"))

	assert.NoError(t, validateDuration("0s"))
	assert.Error(t, validateDuration("soon"))
	assert.Error(t, validateDuration("-1h"))
}
