package lists

import (
	"context"
	"fmt"

	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/store"
)

// Lists returns every list in display order.
func (s *Service) Lists(ctx context.Context) ([]model.List, error) {
	var out []model.List
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Lists()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	return out, nil
}

// List returns one list.
func (s *Service) List(ctx context.Context, id string) (model.List, error) {
	var out model.List
	err := s.store.View(ctx, func(tx store.Tx) error {
		l, err := tx.GetList(id)
		if err != nil {
			return err
		}
		out = *l
		return nil
	})
	return out, err
}

// Item returns one item.
func (s *Service) Item(ctx context.Context, id string) (model.Item, error) {
	var out model.Item
	err := s.store.View(ctx, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}
		out = *it
		return nil
	})
	return out, err
}

// ActiveItems returns the active items of a list in ascending order.
func (s *Service) ActiveItems(ctx context.Context, listID string) ([]model.Item, error) {
	var out []model.Item
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = activeItems(tx, listID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing active items: %w", err)
	}
	return out, nil
}

// CompletedItems returns the visible completed items of a list, most
// recently completed first.
func (s *Service) CompletedItems(ctx context.Context, listID string) ([]model.Item, error) {
	var out []model.Item
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = completedItems(tx, listID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing completed items: %w", err)
	}
	return out, nil
}

// VisibleItems returns the active items followed by the completed items,
// read from one snapshot.
func (s *Service) VisibleItems(ctx context.Context, listID string) ([]model.Item, error) {
	var out []model.Item
	err := s.store.View(ctx, func(tx store.Tx) error {
		active, err := activeItems(tx, listID)
		if err != nil {
			return err
		}
		completed, err := completedItems(tx, listID)
		if err != nil {
			return err
		}
		out = append(active, completed...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing visible items: %w", err)
	}
	return out, nil
}

func completedItems(tx store.Tx, listID string) ([]model.Item, error) {
	completed, hidden := true, false
	items, err := tx.Items(store.ItemFilter{
		ListID:    listID,
		Completed: &completed,
		Hidden:    &hidden,
		SortBy:    "completed_at",
		SortDesc:  true,
	})
	if err != nil {
		return nil, err
	}
	order.SortCompleted(items)
	return items, nil
}
