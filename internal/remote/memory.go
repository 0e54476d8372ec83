package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nhle/tada/internal/model"
)

// MemoryBackend is an in-process Backend. Every pushed record is appended
// to a change log under a new version; pulls replay the log after the
// cursor. Entity state is merged field by field for share lookups.
type MemoryBackend struct {
	mu       sync.Mutex
	baseURL  string
	status   AccountStatus
	version  int64
	log      []model.Record
	entities map[string]model.Record
	shares   map[string]ShareHandle
}

// NewMemoryBackend creates an empty backend whose share URLs start with
// baseURL.
func NewMemoryBackend(baseURL string) *MemoryBackend {
	return &MemoryBackend{
		baseURL:  strings.TrimRight(baseURL, "/"),
		status:   AccountAvailable,
		entities: make(map[string]model.Record),
		shares:   make(map[string]ShareHandle),
	}
}

// SetAccountStatus changes what AccountStatus reports.
func (b *MemoryBackend) SetAccountStatus(s AccountStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

// AccountStatus reports the configured account status.
func (b *MemoryBackend) AccountStatus(ctx context.Context) (AccountStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, nil
}

// Push appends records to the change log.
func (b *MemoryBackend) Push(ctx context.Context, device string, records []model.Record) error {
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record without id")
		}
		if rec.Kind != model.KindList && rec.Kind != model.KindItem {
			return fmt.Errorf("record %s: unknown kind %q", rec.ID, rec.Kind)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range records {
		b.version++
		rec.Version = b.version
		rec.Origin = device
		b.log = append(b.log, rec)
		b.merge(rec)
	}
	return nil
}

func (b *MemoryBackend) merge(rec model.Record) {
	key := rec.Key()
	if rec.Deleted {
		b.entities[key] = rec
		if rec.Kind == model.KindList {
			delete(b.shares, rec.ID)
		}
		return
	}

	cur, ok := b.entities[key]
	if !ok || cur.Deleted {
		b.entities[key] = rec
		return
	}
	for _, f := range rec.Fields {
		switch f {
		case model.FieldName:
			cur.Name = rec.Name
		case model.FieldText:
			cur.Text = rec.Text
		case model.FieldOrder:
			cur.Order = rec.Order
		case model.FieldCreated:
			cur.Created = rec.Created
		case model.FieldCompletionTime:
			cur.CompletionTime = rec.CompletionTime
		case model.FieldStartedTime:
			cur.StartedTime = rec.StartedTime
		case model.FieldHidden:
			cur.Hidden = rec.Hidden
		}
		if !cur.Has(f) {
			cur.Fields = append(cur.Fields, f)
		}
	}
	cur.Version = rec.Version
	cur.Origin = rec.Origin
	b.entities[key] = cur
}

// Pull returns every log entry after cursor in version order, including
// the writes of device itself.
func (b *MemoryBackend) Pull(ctx context.Context, device, cursor string) (PullResult, error) {
	var after int64
	if cursor != "" {
		v, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return PullResult{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		after = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	res := PullResult{Cursor: strconv.FormatInt(b.version, 10)}
	for _, rec := range b.log {
		if rec.Version <= after {
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// Share creates (or returns the existing) share record for a list.
func (b *MemoryBackend) Share(ctx context.Context, listID, title string) (ShareHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.entities[string(model.KindList)+"/"+listID]; !ok || rec.Deleted {
		return ShareHandle{}, fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	if h, ok := b.shares[listID]; ok {
		return h, nil
	}

	h := ShareHandle{
		ListID: listID,
		URL:    b.baseURL + "/s/" + uuid.New().String(),
		Title:  title,
	}
	b.shares[listID] = h
	return h, nil
}

// IsShared reports whether a share record exists for the list.
func (b *MemoryBackend) IsShared(ctx context.Context, listID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.shares[listID]
	return ok, nil
}
