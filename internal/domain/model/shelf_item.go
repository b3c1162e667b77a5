package model

import "time"

type ReadingStatus string

const (
	StatusPlanToRead ReadingStatus = "plan_to_read"
	StatusReading    ReadingStatus = "reading"
	StatusCompleted  ReadingStatus = "completed"
	StatusDropped    ReadingStatus = "dropped"
)

// ShelfItem links a user to a book in the catalog together with their
// reading progress. One row per (user, book).
type ShelfItem struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	BookID    string        `json:"book_id"`
	Status    ReadingStatus `json:"status"`
	Rating    *int          `json:"rating,omitempty"`
	Review    *string       `json:"review,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Book      *Book         `json:"book,omitempty"` // Populated on reads for display
}
