package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tada/internal/model"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func entries(ids ...string) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{ID: id, Order: i, Created: base}
	}
	return out
}

func TestSort_TiesByCreatedThenID(t *testing.T) {
	es := []Entry{
		{ID: "c", Order: 1, Created: base},
		{ID: "b", Order: 1, Created: base},
		{ID: "a", Order: 1, Created: base.Add(time.Second)},
		{ID: "z", Order: 0, Created: base.Add(time.Hour)},
	}
	Sort(es)
	assert.Equal(t, []string{"z", "b", "c", "a"}, IDs(es))
}

func TestNext(t *testing.T) {
	assert.Equal(t, 0, Next(nil))
	assert.Equal(t, 3, Next([]Entry{{ID: "a", Order: 2}, {ID: "b", Order: 0}}))
}

func TestMove(t *testing.T) {
	tests := []struct {
		name string
		id   string
		p    Placement
		want []string
	}{
		{"down before target", "a", Placement{Target: "c"}, []string{"b", "a", "c", "d"}},
		{"up before target", "d", Placement{Target: "b"}, []string{"a", "d", "b", "c"}},
		{"after last", "a", Placement{Target: "d", After: true}, []string{"b", "c", "d", "a"}},
		{"after target upward", "d", Placement{Target: "a", After: true}, []string{"a", "d", "b", "c"}},
		{"onto itself", "b", Placement{Target: "b"}, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Move([]string{"a", "b", "c", "d"}, tt.id, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_UnknownID(t *testing.T) {
	_, err := Move([]string{"a", "b"}, "x", Placement{Target: "a"})
	assert.ErrorIs(t, err, ErrUnknownID)

	_, err = Move([]string{"a", "b"}, "a", Placement{Target: "x"})
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestToFront(t *testing.T) {
	assert.Equal(t, []string{"c", "a", "b", "d"}, ToFront([]string{"a", "b", "c", "d"}, "c"))
	assert.Equal(t, []string{"n", "a"}, ToFront([]string{"a"}, "n"))
}

func TestPlan_OnlyChangedRanks(t *testing.T) {
	es := entries("a", "b", "c", "d")
	seq, err := Move(IDs(es), "d", Placement{Target: "b"})
	require.NoError(t, err)

	plan := Plan(es, seq)
	assert.Equal(t, map[string]int{"d": 1, "b": 2, "c": 3}, plan)
	assert.NotContains(t, plan, "a")
}

func TestNormalize_ClosesGapsAndDuplicates(t *testing.T) {
	es := []Entry{
		{ID: "a", Order: 0, Created: base},
		{ID: "b", Order: 2, Created: base},
		{ID: "c", Order: 2, Created: base.Add(time.Minute)},
		{ID: "d", Order: 7, Created: base},
	}
	assert.Equal(t, map[string]int{"b": 1, "d": 3}, Normalize(es))

	assert.Empty(t, Normalize(entries("a", "b", "c")))
}

func TestSortCompleted(t *testing.T) {
	t1 := base.Add(time.Hour)
	t2 := base.Add(2 * time.Hour)
	items := []model.Item{
		{ID: "b", CompletionTime: &t1},
		{ID: "c", CompletionTime: &t2},
		{ID: "a", CompletionTime: &t1},
	}
	SortCompleted(items)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, "b", items[2].ID)
}
