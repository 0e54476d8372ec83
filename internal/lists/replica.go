package lists

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/store"
)

// DeviceID returns the identity this installation writes records under,
// creating it on first use.
func (s *Service) DeviceID(ctx context.Context) (string, error) {
	var id string
	err := s.update(ctx, "device id", store.OriginRemote, func(tx store.Tx) error {
		var err error
		id, err = deviceID(tx, s.newID)
		return err
	})
	return id, err
}

func deviceID(tx store.Tx, gen func() string) (string, error) {
	id, err := tx.GetState(store.StateDeviceID)
	if err != nil || id != "" {
		return id, err
	}
	id = gen()
	return id, tx.SetState(store.StateDeviceID, id)
}

// Cursor returns the position of the last merged remote change.
func (s *Service) Cursor(ctx context.Context) (string, error) {
	var cursor string
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		cursor, err = tx.GetState(store.StateCursor)
		return err
	})
	return cursor, err
}

// PendingRecords snapshots every unsent local edit as a record, in the order
// the edits were first made. The returned watermark is passed to AckPending
// once the backend accepts the records.
func (s *Service) PendingRecords(ctx context.Context) ([]model.Record, int64, error) {
	device, err := s.DeviceID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		records   []model.Record
		watermark int64
	)
	err = s.store.View(ctx, func(tx store.Tx) error {
		changes, wm, err := tx.Pending()
		if err != nil {
			return err
		}
		watermark = wm

		for _, pc := range changes {
			rec, ok, err := pendingRecord(tx, pc)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			rec.Origin = device
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("collecting pending records: %w", err)
	}
	return records, watermark, nil
}

func pendingRecord(tx store.Tx, pc store.PendingChange) (model.Record, bool, error) {
	if pc.Deleted {
		return model.Record{Kind: pc.Kind, ID: pc.ID, ListID: pc.ListID, Deleted: true}, true, nil
	}

	switch pc.Kind {
	case model.KindList:
		l, err := tx.GetList(pc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return model.Record{}, false, nil
		}
		if err != nil {
			return model.Record{}, false, err
		}
		return model.ListRecord(*l, pc.Fields), true, nil
	case model.KindItem:
		it, err := tx.GetItem(pc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return model.Record{}, false, nil
		}
		if err != nil {
			return model.Record{}, false, err
		}
		return model.ItemRecord(*it, pc.Fields), true, nil
	}
	return model.Record{}, false, fmt.Errorf("unknown entity kind %q", pc.Kind)
}

// AckPending drops journal entries up to watermark.
func (s *Service) AckPending(ctx context.Context, watermark int64) error {
	return s.update(ctx, "ack pending", store.OriginRemote, func(tx store.Tx) error {
		return tx.AckPending(watermark)
	})
}

// MarkSynced records the time of the last successful round trip.
func (s *Service) MarkSynced(ctx context.Context, at time.Time) error {
	return s.update(ctx, "mark synced", store.OriginRemote, func(tx store.Tx) error {
		return tx.SetState(store.StateLastSync, at.UTC().Format(time.RFC3339Nano))
	})
}

// LastSync returns the time of the last successful round trip, or the zero
// time if there was none.
func (s *Service) LastSync(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		raw, err = tx.GetState(store.StateLastSync)
		return err
	})
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// MergeResult summarizes one ApplyRemote call.
type MergeResult struct {
	Applied int
	Skipped int
	Lists   []string
}

// ApplyRemote merges remote records into the store field by field. Records
// arrive in backend order and may include this device's own writes, which
// are not applied but still supersede earlier records for the fields they
// carry. A field with an unsent local edit keeps its local value.
// Tombstones delete the entity. Every touched list and the list sequence
// are renumbered, and the cursor is stored, in the same commit.
func (s *Service) ApplyRemote(ctx context.Context, records []model.Record, cursor string) (MergeResult, error) {
	var res MergeResult
	err := s.update(ctx, "apply remote", store.OriginRemote, func(tx store.Tx) error {
		device, err := deviceID(tx, s.newID)
		if err != nil {
			return err
		}

		m := &merger{tx: tx, touched: make(map[string]bool), last: lastWriters(records)}
		for i, rec := range records {
			if rec.Origin != "" && rec.Origin == device {
				res.Skipped++
				continue
			}
			applied, err := m.apply(i, rec)
			if err != nil {
				return fmt.Errorf("merging %s: %w", rec.Key(), err)
			}
			if applied {
				res.Applied++
			} else {
				res.Skipped++
			}
		}

		for id := range m.touched {
			if _, err := tx.GetList(id); errors.Is(err, store.ErrNotFound) {
				continue
			} else if err != nil {
				return err
			}
			if err := renumberActive(tx, id); err != nil {
				return err
			}
			res.Lists = append(res.Lists, id)
		}
		slices.Sort(res.Lists)

		if m.listsChanged {
			if err := renumberLists(tx); err != nil {
				return err
			}
		}

		if cursor != "" {
			return tx.SetState(store.StateCursor, cursor)
		}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	s.log.Debug("remote changes merged",
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped),
		zap.Int("lists", len(res.Lists)),
	)
	return res, nil
}

type merger struct {
	tx           store.Tx
	touched      map[string]bool
	last         map[string]int
	listsChanged bool
}

// lastWriters maps every entity field to the index of the last record in
// the batch that writes it.
func lastWriters(records []model.Record) map[string]int {
	last := make(map[string]int)
	for i, rec := range records {
		for _, f := range rec.Fields {
			last[rec.Key()+"/"+f] = i
		}
	}
	return last
}

// taker reports whether record i supplies field: the record carries it, no
// later record in the batch overwrites it, and no local edit is pending.
func (m *merger) taker(i int, rec model.Record, pending map[string]bool) func(string) bool {
	return func(field string) bool {
		return rec.Has(field) && !pending[field] && m.last[rec.Key()+"/"+field] == i
	}
}

func (m *merger) apply(i int, rec model.Record) (bool, error) {
	pending, err := m.tx.PendingFields(rec.Kind, rec.ID)
	if err != nil {
		return false, err
	}
	// A local delete that has not been pushed yet wins over remote edits.
	if pending[model.FieldDeleted] {
		return false, nil
	}

	take := m.taker(i, rec, pending)
	switch rec.Kind {
	case model.KindList:
		return m.applyList(rec, take)
	case model.KindItem:
		return m.applyItem(rec, take)
	}
	return false, fmt.Errorf("unknown entity kind %q", rec.Kind)
}

func (m *merger) applyList(rec model.Record, take func(string) bool) (bool, error) {
	l, err := m.tx.GetList(rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		if rec.Deleted {
			return false, nil
		}
		m.listsChanged = true
		return true, m.tx.InsertList(model.List{
			ID:           rec.ID,
			Name:         rec.Name,
			Order:        rec.Order,
			CreationDate: rec.Created,
		})
	}
	if err != nil {
		return false, err
	}

	if rec.Deleted {
		m.listsChanged = true
		return true, m.tx.DeleteList(rec.ID)
	}

	changed := false
	if take(model.FieldName) && l.Name != rec.Name {
		l.Name = rec.Name
		changed = true
	}
	if take(model.FieldOrder) && l.Order != rec.Order {
		l.Order = rec.Order
		m.listsChanged = true
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, m.tx.UpdateList(*l)
}

func (m *merger) applyItem(rec model.Record, take func(string) bool) (bool, error) {
	it, err := m.tx.GetItem(rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		if rec.Deleted {
			return false, nil
		}
		return m.insertItem(rec)
	}
	if err != nil {
		return false, err
	}

	if rec.Deleted {
		m.touched[it.ListID] = true
		return true, m.tx.DeleteItem(rec.ID)
	}

	changed := false
	if take(model.FieldText) && it.Text != rec.Text {
		it.Text = rec.Text
		changed = true
	}
	if take(model.FieldOrder) && it.Order != rec.Order {
		it.Order = rec.Order
		changed = true
	}
	if take(model.FieldCompletionTime) && !sameTime(it.CompletionTime, rec.CompletionTime) {
		it.CompletionTime = rec.CompletionTime
		changed = true
	}
	if take(model.FieldStartedTime) && !sameTime(it.StartedTime, rec.StartedTime) {
		it.StartedTime = rec.StartedTime
		changed = true
	}
	if take(model.FieldHidden) && it.Hidden != rec.Hidden {
		it.Hidden = rec.Hidden
		changed = true
	}
	if !changed {
		return false, nil
	}

	if field := resolveExclusive(it); field != "" {
		if err := m.tx.MarkPending(model.KindItem, it.ID, it.ListID, field); err != nil {
			return false, err
		}
	}
	m.touched[it.ListID] = true
	return true, m.tx.UpdateItem(*it)
}

func (m *merger) insertItem(rec model.Record) (bool, error) {
	if _, err := m.tx.GetList(rec.ListID); errors.Is(err, store.ErrNotFound) {
		// The owning list is gone; the list tombstone covers the item.
		return false, nil
	} else if err != nil {
		return false, err
	}

	it := model.Item{
		ID:             rec.ID,
		ListID:         rec.ListID,
		Text:           rec.Text,
		Order:          rec.Order,
		CreationTime:   rec.Created,
		CompletionTime: rec.CompletionTime,
		StartedTime:    rec.StartedTime,
		Hidden:         rec.Hidden,
	}
	if field := resolveExclusive(&it); field != "" {
		if err := m.tx.MarkPending(model.KindItem, it.ID, it.ListID, field); err != nil {
			return false, err
		}
	}
	m.touched[it.ListID] = true
	return true, m.tx.InsertItem(it)
}

// resolveExclusive keeps the later of completion and started when a merge
// leaves both set, and returns the field it cleared.
func resolveExclusive(it *model.Item) string {
	if it.CompletionTime == nil || it.StartedTime == nil {
		return ""
	}
	if it.StartedTime.After(*it.CompletionTime) {
		it.CompletionTime = nil
		return model.FieldCompletionTime
	}
	it.StartedTime = nil
	return model.FieldStartedTime
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
