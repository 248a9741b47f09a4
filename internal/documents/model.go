package documents

import "time"

// Document is a registry entry for an indexed document. The chunk payloads
// live in the vector index keyed by this document's ID.
type Document struct {
	ID        string
	Title     string
	CreatedAt time.Time
}
