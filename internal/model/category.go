package model

import "time"

// Category represents a user-defined expense category. Categories are
// referenced by rules and by transaction-category links; the classification
// core never mutates them.
type Category struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	OwnerID     string
	Name        string
	Description string
}
