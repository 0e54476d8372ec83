package model

import (
	"slices"
	"time"
)

// EntityKind identifies the type of a synchronized entity.
type EntityKind string

const (
	KindList EntityKind = "list"
	KindItem EntityKind = "item"
)

// Field names tracked by the pending-edit journal and carried by records.
const (
	FieldName           = "name"
	FieldText           = "text"
	FieldOrder          = "order"
	FieldCreated        = "created"
	FieldCompletionTime = "completion_time"
	FieldStartedTime    = "started_time"
	FieldHidden         = "hidden"
	FieldDeleted        = "deleted"
)

// ListFields are the synchronized fields of a List.
var ListFields = []string{FieldName, FieldOrder, FieldCreated}

// ItemFields are the synchronized fields of an Item.
var ItemFields = []string{
	FieldText, FieldOrder, FieldCreated,
	FieldCompletionTime, FieldStartedTime, FieldHidden,
}

// Record is a field-tagged snapshot of an entity exchanged with the remote
// backend. Only the values named in Fields are authoritative; a nil
// timestamp listed in Fields means the value was cleared.
type Record struct {
	Kind    EntityKind `json:"kind"`
	ID      string     `json:"id"`
	ListID  string     `json:"list_id,omitempty"`
	Deleted bool       `json:"deleted,omitempty"`
	Fields  []string   `json:"fields,omitempty"`

	Name           string     `json:"name,omitempty"`
	Text           string     `json:"text,omitempty"`
	Order          int        `json:"order"`
	Created        time.Time  `json:"created"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
	StartedTime    *time.Time `json:"started_time,omitempty"`
	Hidden         bool       `json:"hidden,omitempty"`

	// Origin is the device that last wrote the record; Version is the
	// backend's sequence number for that write.
	Origin  string `json:"origin,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// Has reports whether the record carries a value for field.
func (r Record) Has(field string) bool {
	return slices.Contains(r.Fields, field)
}

// Key returns a stable identity for the record's entity.
func (r Record) Key() string {
	return string(r.Kind) + "/" + r.ID
}

// ListRecord snapshots the given fields of a list.
func ListRecord(l List, fields []string) Record {
	return Record{
		Kind:    KindList,
		ID:      l.ID,
		Fields:  fields,
		Name:    l.Name,
		Order:   l.Order,
		Created: l.CreationDate,
	}
}

// ItemRecord snapshots the given fields of an item.
func ItemRecord(i Item, fields []string) Record {
	return Record{
		Kind:           KindItem,
		ID:             i.ID,
		ListID:         i.ListID,
		Fields:         fields,
		Text:           i.Text,
		Order:          i.Order,
		Created:        i.CreationTime,
		CompletionTime: i.CompletionTime,
		StartedTime:    i.StartedTime,
		Hidden:         i.Hidden,
	}
}
