package lists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/store"
)

// CreateItem appends an item after the active items of a list.
func (s *Service) CreateItem(ctx context.Context, listID, text string) (model.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Item{}, ErrEmptyText
	}

	var it model.Item
	err := s.update(ctx, "create item", store.OriginLocal, func(tx store.Tx) error {
		if _, err := tx.GetList(listID); err != nil {
			return err
		}
		active, err := activeItems(tx, listID)
		if err != nil {
			return err
		}

		it = model.Item{
			ID:           s.newID(),
			ListID:       listID,
			Text:         text,
			Order:        order.Next(order.ItemEntries(active)),
			CreationTime: s.clock(),
		}
		if err := tx.InsertItem(it); err != nil {
			return err
		}
		return tx.MarkPending(model.KindItem, it.ID, listID, model.ItemFields...)
	})
	return it, err
}

// RenameItem changes an item's text.
func (s *Service) RenameItem(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	return s.update(ctx, "rename item", store.OriginLocal, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}
		if it.Text == text {
			return nil
		}
		it.Text = text
		if err := tx.UpdateItem(*it); err != nil {
			return err
		}
		return tx.MarkPending(model.KindItem, id, it.ListID, model.FieldText)
	})
}

// ToggleCompletion completes an active item or reactivates a completed one.
// Completing clears started state and closes the gap left in the active
// order; reactivating appends the item after the active items.
func (s *Service) ToggleCompletion(ctx context.Context, id string) (model.Item, error) {
	var result model.Item
	err := s.update(ctx, "toggle completion", store.OriginLocal, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}
		fields := []string{model.FieldCompletionTime}

		if it.IsCompleted() {
			active, err := activeItems(tx, it.ListID)
			if err != nil {
				return err
			}
			it.CompletionTime = nil
			it.Order = order.Next(order.ItemEntries(active))
			fields = append(fields, model.FieldOrder)
			if it.Hidden {
				it.Hidden = false
				fields = append(fields, model.FieldHidden)
			}
		} else {
			now := s.clock()
			it.CompletionTime = &now
			if it.IsStarted() {
				it.StartedTime = nil
				fields = append(fields, model.FieldStartedTime)
			}
		}

		if err := tx.UpdateItem(*it); err != nil {
			return err
		}
		if err := tx.MarkPending(model.KindItem, id, it.ListID, fields...); err != nil {
			return err
		}
		result = *it
		return renumberActive(tx, it.ListID)
	})
	return result, err
}

// ToggleStarted marks an item in progress or clears the mark. Starting an
// item clears its completion and moves it to the front of the active order;
// clearing keeps its position.
func (s *Service) ToggleStarted(ctx context.Context, id string) (model.Item, error) {
	var result model.Item
	err := s.update(ctx, "toggle started", store.OriginLocal, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}

		if it.IsStarted() {
			it.StartedTime = nil
			if err := tx.UpdateItem(*it); err != nil {
				return err
			}
			result = *it
			return tx.MarkPending(model.KindItem, id, it.ListID, model.FieldStartedTime)
		}

		fields := []string{model.FieldStartedTime}
		now := s.clock()
		it.StartedTime = &now
		if it.IsCompleted() {
			it.CompletionTime = nil
			fields = append(fields, model.FieldCompletionTime)
		}
		if it.Hidden {
			it.Hidden = false
			fields = append(fields, model.FieldHidden)
		}

		others, err := activeItems(tx, it.ListID)
		if err != nil {
			return err
		}
		others = withoutItem(others, id)

		entries := append(order.ItemEntries(others), order.Entry{ID: id, Order: it.Order, Created: it.CreationTime})
		plan := order.Plan(entries, order.ToFront(order.IDs(order.ItemEntries(others)), id))

		if rank, ok := plan[id]; ok {
			it.Order = rank
			fields = append(fields, model.FieldOrder)
			delete(plan, id)
		}
		if err := tx.UpdateItem(*it); err != nil {
			return err
		}
		if err := tx.MarkPending(model.KindItem, id, it.ListID, fields...); err != nil {
			return err
		}
		result = *it
		return applyItemPlan(tx, others, plan)
	})
	return result, err
}

// DeleteItem removes an item and closes the gap in the active order.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.update(ctx, "delete item", store.OriginLocal, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}
		if err := tx.DeleteItem(id); err != nil {
			return err
		}
		if err := tx.MarkDeleted(model.KindItem, id, it.ListID); err != nil {
			return err
		}
		if !it.IsActive() {
			return nil
		}
		return renumberActive(tx, it.ListID)
	})
}

// MoveItem moves an active item before or after another active item of
// the same list.
func (s *Service) MoveItem(ctx context.Context, id string, p order.Placement) error {
	return s.update(ctx, "move item", store.OriginLocal, func(tx store.Tx) error {
		it, err := tx.GetItem(id)
		if err != nil {
			return err
		}
		if !it.IsActive() {
			return fmt.Errorf("%w: item %s is not active", ErrInvalidMove, id)
		}

		active, err := activeItems(tx, it.ListID)
		if err != nil {
			return err
		}
		entries := order.ItemEntries(active)
		seq, err := order.Move(order.IDs(entries), id, p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		return applyItemPlan(tx, active, order.Plan(entries, seq))
	})
}

// HideCompleted hides every completed item of one list. Order is untouched.
func (s *Service) HideCompleted(ctx context.Context, listID string) (int, error) {
	var n int
	err := s.update(ctx, "hide completed", store.OriginLocal, func(tx store.Tx) error {
		if _, err := tx.GetList(listID); err != nil {
			return err
		}
		var err error
		n, err = hideCompleted(tx, listID, func(model.Item) bool { return true })
		return err
	})
	return n, err
}

// HideCompletedBefore hides, across all lists, the visible items completed
// strictly before cutoff. Order is untouched.
func (s *Service) HideCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var total int
	err := s.update(ctx, "hide completed before", store.OriginLocal, func(tx store.Tx) error {
		all, err := tx.Lists()
		if err != nil {
			return err
		}
		for _, l := range all {
			n, err := hideCompleted(tx, l.ID, func(it model.Item) bool {
				return it.CompletedBefore(cutoff)
			})
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

// PurgeHiddenBefore deletes hidden items completed strictly before cutoff.
func (s *Service) PurgeHiddenBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var total int
	err := s.update(ctx, "purge hidden", store.OriginLocal, func(tx store.Tx) error {
		all, err := tx.Lists()
		if err != nil {
			return err
		}
		hidden := true
		for _, l := range all {
			items, err := tx.Items(store.ItemFilter{ListID: l.ID, Hidden: &hidden})
			if err != nil {
				return err
			}
			for _, it := range items {
				if !it.CompletedBefore(cutoff) {
					continue
				}
				if err := tx.DeleteItem(it.ID); err != nil {
					return err
				}
				if err := tx.MarkDeleted(model.KindItem, it.ID, it.ListID); err != nil {
					return err
				}
				total++
			}
		}
		return nil
	})
	return total, err
}

func hideCompleted(tx store.Tx, listID string, match func(model.Item) bool) (int, error) {
	completed, hidden := true, false
	items, err := tx.Items(store.ItemFilter{ListID: listID, Completed: &completed, Hidden: &hidden})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, it := range items {
		if !match(it) {
			continue
		}
		it.Hidden = true
		if err := tx.UpdateItem(it); err != nil {
			return n, err
		}
		if err := tx.MarkPending(model.KindItem, it.ID, listID, model.FieldHidden); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
