package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tada/internal/model"
)

func TestMemoryBackend_PullInVersionOrderAndResumes(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("https://tada.example")

	require.NoError(t, b.Push(ctx, "laptop", []model.Record{
		{Kind: model.KindList, ID: "l1", Fields: model.ListFields, Name: "Work"},
	}))
	require.NoError(t, b.Push(ctx, "phone", []model.Record{
		{Kind: model.KindItem, ID: "i1", ListID: "l1", Fields: []string{model.FieldText}, Text: "call"},
	}))

	res, err := b.Pull(ctx, "laptop", "")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "laptop", res.Records[0].Origin)
	assert.Equal(t, int64(1), res.Records[0].Version)
	assert.Equal(t, "i1", res.Records[1].ID)
	assert.Equal(t, "phone", res.Records[1].Origin)
	assert.Equal(t, "2", res.Cursor)

	res, err = b.Pull(ctx, "laptop", res.Cursor)
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	res, err = b.Pull(ctx, "phone", "1")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "i1", res.Records[0].ID)
}

func TestMemoryBackend_InvalidCursor(t *testing.T) {
	_, err := NewMemoryBackend("").Pull(context.Background(), "d", "abc")
	assert.Error(t, err)
}

func TestMemoryBackend_MergesFields(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("")

	require.NoError(t, b.Push(ctx, "a", []model.Record{
		{Kind: model.KindList, ID: "l1", Fields: model.ListFields, Name: "Work", Order: 0},
	}))
	require.NoError(t, b.Push(ctx, "b", []model.Record{
		{Kind: model.KindList, ID: "l1", Fields: []string{model.FieldOrder}, Order: 3},
	}))

	merged := b.entities["list/l1"]
	assert.Equal(t, "Work", merged.Name)
	assert.Equal(t, 3, merged.Order)
	assert.Equal(t, int64(2), merged.Version)
}

func TestMemoryBackend_Share(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("https://tada.example/")

	_, err := b.Share(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Push(ctx, "a", []model.Record{
		{Kind: model.KindList, ID: "l1", Fields: model.ListFields, Name: "Work"},
	}))

	h, err := b.Share(ctx, "l1", "Work")
	require.NoError(t, err)
	assert.Contains(t, h.URL, "https://tada.example/s/")

	again, err := b.Share(ctx, "l1", "Work")
	require.NoError(t, err)
	assert.Equal(t, h, again)

	shared, err := b.IsShared(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, shared)

	require.NoError(t, b.Push(ctx, "a", []model.Record{{Kind: model.KindList, ID: "l1", Deleted: true}}))
	shared, err = b.IsShared(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, shared)
}

func TestMemoryBackend_RejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("")

	assert.Error(t, b.Push(ctx, "a", []model.Record{{Kind: model.KindList}}))
	assert.Error(t, b.Push(ctx, "a", []model.Record{{Kind: "tag", ID: "x"}}))

	res, err := b.Pull(ctx, "z", "")
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}
