package model

import "time"

// Item is a single entry within a List.
type Item struct {
	ID             string     `json:"id" db:"id"`
	ListID         string     `json:"list_id" db:"list_id"`
	Text           string     `json:"text" db:"text"`
	Order          int        `json:"order" db:"sort_order"`
	CreationTime   time.Time  `json:"creation_time" db:"created_at"`
	CompletionTime *time.Time `json:"completion_time,omitempty" db:"completed_at"`
	StartedTime    *time.Time `json:"started_time,omitempty" db:"started_at"`
	Hidden         bool       `json:"hidden" db:"hidden"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the item has a completion time.
func (i Item) IsCompleted() bool { return i.CompletionTime != nil }

// IsStarted reports whether the item is marked in progress.
func (i Item) IsStarted() bool { return i.StartedTime != nil }

// IsActive reports whether the item takes part in its list's order sequence.
func (i Item) IsActive() bool { return !i.IsCompleted() && !i.Hidden }

// IsVisible reports whether the item shows up in normal views.
func (i Item) IsVisible() bool { return !i.Hidden }

// CompletedBefore reports whether the item was completed strictly before t.
func (i Item) CompletedBefore(t time.Time) bool {
	return i.CompletionTime != nil && i.CompletionTime.Before(t)
}
