package models

import "time"

// Session scopes one user's uploaded documents and the remote store that
// indexes them. At most one store is bound to a session at a time.
type Session struct {
	ID        int64     `json:"id"`
	StoreID   string    `json:"store_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
