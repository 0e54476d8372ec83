package lists

import (
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/store"
)

// activeItems returns the items of a list that take part in its order.
func activeItems(tx store.Tx, listID string) ([]model.Item, error) {
	no := false
	return tx.Items(store.ItemFilter{ListID: listID, Completed: &no, Hidden: &no})
}

func withoutItem(items []model.Item, id string) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// renumberActive restores ranks 0..m-1 over the active items of a list,
// writing only items whose rank changes.
func renumberActive(tx store.Tx, listID string) error {
	active, err := activeItems(tx, listID)
	if err != nil {
		return err
	}
	return applyItemPlan(tx, active, order.Normalize(order.ItemEntries(active)))
}

// renumberLists restores ranks 0..n-1 over all lists.
func renumberLists(tx store.Tx) error {
	all, err := tx.Lists()
	if err != nil {
		return err
	}
	return applyListPlan(tx, all, order.Normalize(order.ListEntries(all)))
}

func applyItemPlan(tx store.Tx, items []model.Item, plan map[string]int) error {
	for _, it := range items {
		rank, ok := plan[it.ID]
		if !ok {
			continue
		}
		it.Order = rank
		if err := tx.UpdateItem(it); err != nil {
			return err
		}
		if err := tx.MarkPending(model.KindItem, it.ID, it.ListID, model.FieldOrder); err != nil {
			return err
		}
	}
	return nil
}

func applyListPlan(tx store.Tx, all []model.List, plan map[string]int) error {
	for _, l := range all {
		rank, ok := plan[l.ID]
		if !ok {
			continue
		}
		l.Order = rank
		if err := tx.UpdateList(l); err != nil {
			return err
		}
		if err := tx.MarkPending(model.KindList, l.ID, "", model.FieldOrder); err != nil {
			return err
		}
	}
	return nil
}
