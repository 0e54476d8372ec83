package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/tada/internal/model"
)

const itemColumns = "id, list_id, text, sort_order, created_at, completed_at, started_at, hidden, updated_at"

// GetItem retrieves a single item by ID.
func (t *sqliteTx) GetItem(id string) (*model.Item, error) {
	var it model.Item
	err := t.tx.GetContext(t.ctx, &it,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &it, nil
}

// Items retrieves the items of one list matching the filter.
func (t *sqliteTx) Items(f ItemFilter) ([]model.Item, error) {
	conditions := []string{"list_id = ?"}
	args := []interface{}{f.ListID}

	if f.Completed != nil {
		if *f.Completed {
			conditions = append(conditions, "completed_at IS NOT NULL")
		} else {
			conditions = append(conditions, "completed_at IS NULL")
		}
	}
	if f.Hidden != nil {
		conditions = append(conditions, "hidden = ?")
		args = append(args, boolToInt(*f.Hidden))
	}

	query := "SELECT " + itemColumns + " FROM items WHERE " +
		strings.Join(conditions, " AND ")

	// Determine sort column.
	sortBy := "sort_order"
	if f.SortBy != "" {
		allowedSorts := map[string]bool{
			"sort_order":   true,
			"completed_at": true,
			"created_at":   true,
		}
		if allowedSorts[f.SortBy] {
			sortBy = f.SortBy
		}
	}

	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, created_at %s, id %s",
		sortBy, direction, direction, direction)

	var items []model.Item
	if err := t.tx.SelectContext(t.ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("querying items of list %s: %w", f.ListID, err)
	}
	return items, nil
}

// InsertItem creates an item. The caller assigns ID, order and creation time.
func (t *sqliteTx) InsertItem(it model.Item) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO items (
			id, list_id, text, sort_order, created_at,
			completed_at, started_at, hidden, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.ListID, it.Text, it.Order, it.CreationTime.UTC(),
		utcPtr(it.CompletionTime), utcPtr(it.StartedTime),
		boolToInt(it.Hidden), t.now,
	)
	if err != nil {
		return fmt.Errorf("creating item %s: %w", it.ID, err)
	}

	t.record(Change{Kind: model.KindItem, ID: it.ID, ListID: it.ListID, Op: OpInsert})
	return nil
}

// UpdateItem overwrites the stored fields of an existing item.
func (t *sqliteTx) UpdateItem(it model.Item) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE items SET
			list_id = ?, text = ?, sort_order = ?, created_at = ?,
			completed_at = ?, started_at = ?, hidden = ?, updated_at = ?
		WHERE id = ?`,
		it.ListID, it.Text, it.Order, it.CreationTime.UTC(),
		utcPtr(it.CompletionTime), utcPtr(it.StartedTime),
		boolToInt(it.Hidden), t.now,
		it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", it.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("item %s: %w", it.ID, ErrNotFound)
	}

	t.record(Change{Kind: model.KindItem, ID: it.ID, ListID: it.ListID, Op: OpUpdate})
	return nil
}

// DeleteItem removes an item by ID.
func (t *sqliteTx) DeleteItem(id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	var listID string
	err := t.tx.GetContext(t.ctx, &listID, "SELECT list_id FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting item %s: %w", id, err)
	}

	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}

	t.record(Change{Kind: model.KindItem, ID: id, ListID: listID, Op: OpDelete})
	return nil
}
