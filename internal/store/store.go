package store

import (
	"context"
	"errors"

	"github.com/nhle/tada/internal/model"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned at startup when the database fails its
	// integrity check.
	ErrCorrupt = errors.New("database corrupt")
)

// Origin tells subscribers where a committed batch came from.
type Origin string

const (
	// OriginLocal marks mutations made on this device.
	OriginLocal Origin = "local"
	// OriginRemote marks batches merged from the remote backend.
	OriginRemote Origin = "remote"
)

// Op is the kind of write applied to an entity.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one entity write inside a committed batch.
type Change struct {
	Kind   model.EntityKind
	ID     string
	ListID string
	Op     Op
}

// ChangeSet is published once per committed Update, in commit order.
type ChangeSet struct {
	Origin  Origin
	Changes []Change
}

// ListIDs returns the distinct lists touched by the change set.
func (cs ChangeSet) ListIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range cs.Changes {
		id := c.ListID
		if c.Kind == model.KindList {
			id = c.ID
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ItemFilter controls filtering and sorting for item queries.
type ItemFilter struct {
	ListID    string // required
	Completed *bool  // nil: both
	Hidden    *bool  // nil: both
	SortBy    string // "sort_order", "completed_at", "created_at"
	SortDesc  bool
}

// PendingChange groups the unsent local edits of one entity.
type PendingChange struct {
	Kind    model.EntityKind
	ID      string
	ListID  string
	Fields  []string
	Deleted bool
}

// Sync state keys.
const (
	StateDeviceID = "device_id"
	StateCursor   = "cursor"
	StateLastSync = "last_sync"
)

// Tx is a unit of work against the store. It is bound to the context
// passed to Update or View.
type Tx interface {
	GetList(id string) (*model.List, error)
	Lists() ([]model.List, error)
	CountLists() (int, error)
	InsertList(l model.List) error
	UpdateList(l model.List) error
	DeleteList(id string) error

	GetItem(id string) (*model.Item, error)
	Items(filter ItemFilter) ([]model.Item, error)
	InsertItem(it model.Item) error
	UpdateItem(it model.Item) error
	DeleteItem(id string) error

	// MarkPending journals local edits that have not reached the backend.
	MarkPending(kind model.EntityKind, id, listID string, fields ...string) error
	// MarkDeleted journals a local deletion.
	MarkDeleted(kind model.EntityKind, id, listID string) error
	// PendingFields returns the unsent fields of one entity.
	PendingFields(kind model.EntityKind, id string) (map[string]bool, error)
	// Pending returns all unsent edits grouped per entity in journal order,
	// and the highest journal sequence read.
	Pending() ([]PendingChange, int64, error)
	// AckPending drops journal entries up to and including seq.
	AckPending(seq int64) error

	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Store is the durable entity store.
type Store interface {
	// Update runs fn in a single transaction. Either every write made by fn
	// is committed or none is. Subscribers are notified after commit.
	Update(ctx context.Context, origin Origin, fn func(Tx) error) error

	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(Tx) error) error

	// Subscribe returns a channel of committed change sets. The returned
	// function unsubscribes.
	Subscribe() (<-chan ChangeSet, func())

	Close() error
}
