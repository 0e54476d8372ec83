package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/share"
	"github.com/nhle/tada/internal/ui/board"
	"github.com/nhle/tada/internal/ui/prompt"
)

// load returns a command that reads the lists and the visible items of
// listID, or of the first list when listID is empty or gone.
func (m Model) load(listID string) tea.Cmd {
	svc := m.deps.Lists
	return func() tea.Msg {
		ctx := context.Background()

		all, err := svc.Lists(ctx)
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading lists: %w", err)}
		}

		rows := make([]board.ListRow, len(all))
		found := false
		for i, l := range all {
			active, err := svc.ActiveItems(ctx, l.ID)
			if err != nil {
				return dataLoadedMsg{err: fmt.Errorf("loading items: %w", err)}
			}
			rows[i] = board.ListRow{List: l, Active: len(active)}
			found = found || l.ID == listID
		}
		if !found {
			listID = ""
			if len(all) > 0 {
				listID = all[0].ID
			}
		}

		msg := dataLoadedMsg{lists: rows, listID: listID}
		if listID == "" {
			return msg
		}
		msg.items, err = svc.VisibleItems(ctx, listID)
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading items: %w", err)}
		}
		return msg
	}
}

// op wraps a mutation into a command reporting opDoneMsg.
func op(info string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{info: info}
	}
}

func (m Model) createItem(listID, text string) tea.Cmd {
	svc := m.deps.Lists
	return op("", func(ctx context.Context) error {
		_, err := svc.CreateItem(ctx, listID, text)
		return err
	})
}

func (m Model) toggleCompletion(id string) tea.Cmd {
	svc := m.deps.Lists
	return op("", func(ctx context.Context) error {
		_, err := svc.ToggleCompletion(ctx, id)
		return err
	})
}

func (m Model) toggleStarted(id string) tea.Cmd {
	svc := m.deps.Lists
	return op("", func(ctx context.Context) error {
		_, err := svc.ToggleStarted(ctx, id)
		return err
	})
}

func (m Model) hideCompleted(listID string) tea.Cmd {
	svc := m.deps.Lists
	return func() tea.Msg {
		n, err := svc.HideCompleted(context.Background(), listID)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{info: fmt.Sprintf("hid %d completed items", n)}
	}
}

// moveItem swaps an active item with its neighbour delta steps away.
func (m Model) moveItem(listID, id string, delta int) tea.Cmd {
	svc := m.deps.Lists
	return op("", func(ctx context.Context) error {
		active, err := svc.ActiveItems(ctx, listID)
		if err != nil {
			return err
		}
		ids := make([]string, len(active))
		for i, it := range active {
			ids[i] = it.ID
		}
		p, ok := neighbour(ids, id, delta)
		if !ok {
			return nil
		}
		return svc.MoveItem(ctx, id, p)
	})
}

func (m Model) moveList(id string, delta int) tea.Cmd {
	svc := m.deps.Lists
	return op("", func(ctx context.Context) error {
		all, err := svc.Lists(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, len(all))
		for i, l := range all {
			ids[i] = l.ID
		}
		p, ok := neighbour(ids, id, delta)
		if !ok {
			return nil
		}
		return svc.MoveList(ctx, id, p)
	})
}

// neighbour returns the placement that moves id one step up (delta -1)
// or down (delta 1) in ids.
func neighbour(ids []string, id string, delta int) (order.Placement, bool) {
	for i, cur := range ids {
		if cur != id {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(ids) {
			return order.Placement{}, false
		}
		return order.Placement{Target: ids[j], After: delta > 0}, true
	}
	return order.Placement{}, false
}

func (m Model) shareList(listID string) tea.Cmd {
	sharer := m.deps.Share
	return func() tea.Msg {
		h, err := sharer.Share(context.Background(), listID)
		if errors.Is(err, share.ErrUnavailable) {
			return opDoneMsg{info: "sharing needs a sync backend"}
		}
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{info: "shared: " + h.URL}
	}
}

// refreshShared asks the backend about every list so the shared badges
// follow shares made or removed on other devices.
func (m Model) refreshShared() tea.Cmd {
	svc, sharer := m.deps.Lists, m.deps.Share
	if sharer == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		all, err := svc.Lists(ctx)
		if err != nil {
			return sharedRefreshedMsg{err: fmt.Errorf("loading lists: %w", err)}
		}
		var msg sharedRefreshedMsg
		for _, l := range all {
			shared, err := sharer.IsShared(ctx, l.ID)
			if err != nil {
				return sharedRefreshedMsg{err: fmt.Errorf("checking share status: %w", err)}
			}
			if shared != l.Shared {
				msg.changed++
			}
		}
		return msg
	}
}

// submit runs the action a completed prompt asked for.
func (m Model) submit(msg prompt.SubmitMsg) tea.Cmd {
	svc := m.deps.Lists
	switch msg.Kind {
	case prompt.KindNewList:
		return op("", func(ctx context.Context) error {
			_, err := svc.CreateList(ctx, msg.Value)
			return err
		})
	case prompt.KindRenameList:
		return op("", func(ctx context.Context) error {
			return svc.RenameList(ctx, msg.Target, msg.Value)
		})
	case prompt.KindRenameItem:
		return op("", func(ctx context.Context) error {
			return svc.RenameItem(ctx, msg.Target, msg.Value)
		})
	case prompt.KindDuplicateList:
		return op("list duplicated", func(ctx context.Context) error {
			_, err := svc.DuplicateList(ctx, msg.Target, msg.Value)
			return err
		})
	case prompt.KindDeleteList:
		return op("list deleted", func(ctx context.Context) error {
			return svc.DeleteList(ctx, msg.Target)
		})
	case prompt.KindDeleteItem:
		return op("", func(ctx context.Context) error {
			return svc.DeleteItem(ctx, msg.Target)
		})
	}
	return nil
}
