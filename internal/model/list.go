package model

import "time"

// DefaultListName is the name given to the list created for an empty workspace.
const DefaultListName = "My List"

// List is a named, ordered container of items.
type List struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Order        int       `json:"order" db:"sort_order"`
	CreationDate time.Time `json:"creation_date" db:"created_at"`

	// Shared caches whether the remote backend holds a share record for
	// this list. The backend is authoritative.
	Shared bool `json:"shared" db:"shared"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
