package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nhle/tada/internal/model"
)

const listColumns = "id, name, sort_order, shared, created_at, updated_at"

// GetList retrieves a single list by ID.
func (t *sqliteTx) GetList(id string) (*model.List, error) {
	var l model.List
	err := t.tx.GetContext(t.ctx, &l,
		"SELECT "+listColumns+" FROM lists WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting list %s: %w", id, err)
	}
	return &l, nil
}

// Lists returns every list in display order.
func (t *sqliteTx) Lists() ([]model.List, error) {
	var lists []model.List
	err := t.tx.SelectContext(t.ctx, &lists,
		"SELECT "+listColumns+" FROM lists ORDER BY sort_order, created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying lists: %w", err)
	}
	return lists, nil
}

// CountLists returns the number of lists.
func (t *sqliteTx) CountLists() (int, error) {
	var n int
	if err := t.tx.GetContext(t.ctx, &n, "SELECT COUNT(*) FROM lists"); err != nil {
		return 0, fmt.Errorf("counting lists: %w", err)
	}
	return n, nil
}

// InsertList creates a list. The caller assigns ID, order and creation date.
func (t *sqliteTx) InsertList(l model.List) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO lists (id, name, sort_order, shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Order, boolToInt(l.Shared),
		l.CreationDate.UTC(), t.now,
	)
	if err != nil {
		return fmt.Errorf("creating list %s: %w", l.ID, err)
	}

	t.record(Change{Kind: model.KindList, ID: l.ID, Op: OpInsert})
	return nil
}

// UpdateList overwrites the stored fields of an existing list.
func (t *sqliteTx) UpdateList(l model.List) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE lists SET
			name = ?, sort_order = ?, shared = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		l.Name, l.Order, boolToInt(l.Shared), l.CreationDate.UTC(), t.now,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating list %s: %w", l.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("list %s: %w", l.ID, ErrNotFound)
	}

	t.record(Change{Kind: model.KindList, ID: l.ID, Op: OpUpdate})
	return nil
}

// DeleteList removes a list. Its items cascade.
func (t *sqliteTx) DeleteList(id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	var itemIDs []string
	err := t.tx.SelectContext(t.ctx, &itemIDs,
		"SELECT id FROM items WHERE list_id = ?", id)
	if err != nil {
		return fmt.Errorf("querying items of list %s: %w", id, err)
	}

	result, err := t.tx.ExecContext(t.ctx, "DELETE FROM lists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting list %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}

	for _, itemID := range itemIDs {
		t.record(Change{Kind: model.KindItem, ID: itemID, ListID: id, Op: OpDelete})
	}
	t.record(Change{Kind: model.KindList, ID: id, Op: OpDelete})
	return nil
}
