package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tada/internal/credential"
)

func TestStore_RoundTrip(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, s.Set("k", "v"))
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Delete("k"))
	_, err = s.Get("k")
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestStore_SyncToken(t *testing.T) {
	t.Setenv(credential.SyncTokenEnv, "")
	s := credential.NewStore(keyring.NewArrayKeyring(nil))

	tok, err := s.SyncToken()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Set(credential.SyncTokenKey, "stored"))
	tok, err = s.SyncToken()
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)

	t.Setenv(credential.SyncTokenEnv, "from-env")
	tok, err = s.SyncToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}
