package syncbar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tadasync "github.com/nhle/tada/internal/sync"
)

func TestSyncbar_View(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := New(tadasync.Status{})
	m.now = func() time.Time { return now }

	assert.Contains(t, m.View(), "not synced")

	m.SetLocalOnly(true)
	assert.Contains(t, m.View(), "local only")
	m.SetLocalOnly(false)

	m, cmd := m.Update(StatusMsg{Status: tadasync.Status{State: tadasync.Syncing}})
	assert.NotNil(t, cmd, "entering syncing starts the spinner")
	assert.Contains(t, m.View(), "syncing")

	m, _ = m.Update(StatusMsg{Status: tadasync.Status{State: tadasync.Success, LastSync: now}})
	assert.Contains(t, m.View(), "synced")

	m, _ = m.Update(StatusMsg{Status: tadasync.Status{State: tadasync.Error, Message: "offline"}})
	assert.Contains(t, m.View(), "offline")

	m, _ = m.Update(StatusMsg{Status: tadasync.Status{State: tadasync.Idle, LastSync: now.Add(-5 * time.Minute)}})
	assert.Contains(t, m.View(), "synced 5m ago")
}

func TestSyncbar_Wait(t *testing.T) {
	ch := make(chan tadasync.Status, 1)
	ch <- tadasync.Status{State: tadasync.Success}

	msg := Wait(ch)()
	sm, ok := msg.(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, tadasync.Success, sm.Status.State)

	close(ch)
	assert.Nil(t, Wait(ch)())
}
