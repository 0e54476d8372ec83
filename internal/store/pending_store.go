package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/nhle/tada/internal/model"
)

// MarkPending journals that the given fields of an entity changed locally.
func (t *sqliteTx) MarkPending(kind model.EntityKind, id, listID string, fields ...string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	for _, f := range fields {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO pending_changes (entity_kind, entity_id, list_id, field, changed_at)
			VALUES (?, ?, ?, ?, ?)`,
			string(kind), id, listID, f, t.now,
		)
		if err != nil {
			return fmt.Errorf("journaling %s %s.%s: %w", kind, id, f, err)
		}
	}
	return nil
}

// MarkDeleted journals a local deletion as a tombstone.
func (t *sqliteTx) MarkDeleted(kind model.EntityKind, id, listID string) error {
	return t.MarkPending(kind, id, listID, model.FieldDeleted)
}

// PendingFields returns the set of unsent fields for one entity.
func (t *sqliteTx) PendingFields(kind model.EntityKind, id string) (map[string]bool, error) {
	var fields []string
	err := t.tx.SelectContext(t.ctx, &fields, `
		SELECT DISTINCT field FROM pending_changes
		WHERE entity_kind = ? AND entity_id = ?`,
		string(kind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending fields of %s %s: %w", kind, id, err)
	}

	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set, nil
}

type pendingRow struct {
	Seq    int64  `db:"seq"`
	Kind   string `db:"entity_kind"`
	ID     string `db:"entity_id"`
	ListID string `db:"list_id"`
	Field  string `db:"field"`
}

// Pending groups journal rows per entity, ordered by each entity's first
// journal entry, and returns the highest sequence number read.
func (t *sqliteTx) Pending() ([]PendingChange, int64, error) {
	var rows []pendingRow
	err := t.tx.SelectContext(t.ctx, &rows, `
		SELECT seq, entity_kind, entity_id, list_id, field
		FROM pending_changes ORDER BY seq`)
	if err != nil {
		return nil, 0, fmt.Errorf("querying pending changes: %w", err)
	}

	var (
		changes   []PendingChange
		index     = make(map[string]int)
		watermark int64
	)
	for _, r := range rows {
		watermark = r.Seq
		key := r.Kind + "/" + r.ID

		i, ok := index[key]
		if !ok {
			i = len(changes)
			index[key] = i
			changes = append(changes, PendingChange{
				Kind:   model.EntityKind(r.Kind),
				ID:     r.ID,
				ListID: r.ListID,
			})
		}

		pc := &changes[i]
		if r.ListID != "" {
			pc.ListID = r.ListID
		}
		if r.Field == model.FieldDeleted {
			pc.Deleted = true
			continue
		}
		if !slices.Contains(pc.Fields, r.Field) {
			pc.Fields = append(pc.Fields, r.Field)
		}
	}

	return changes, watermark, nil
}

// AckPending removes journal entries the backend has accepted. Entries
// written after the watermark was read survive.
func (t *sqliteTx) AckPending(seq int64) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM pending_changes WHERE seq <= ?", seq)
	if err != nil {
		return fmt.Errorf("acknowledging pending changes: %w", err)
	}
	return nil
}

// GetState reads a sync state value. A missing key yields "".
func (t *sqliteTx) GetState(key string) (string, error) {
	var value string
	err := t.tx.GetContext(t.ctx, &value, "SELECT value FROM sync_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes a sync state value.
func (t *sqliteTx) SetState(key, value string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing sync state %s: %w", key, err)
	}
	return nil
}
