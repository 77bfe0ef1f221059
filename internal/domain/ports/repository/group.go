package repository

import "context"

// -----------------------------
// Group bindings
// -----------------------------

type GroupRepository interface {
	// FindGroup returns the group of the first row bound to userID.
	FindGroup(ctx context.Context, userID int64) (groupID string, ok bool, err error)
	// SetGroup replaces the first binding of userID, or appends a new one.
	SetGroup(ctx context.Context, userID int64, groupID string) error
	// MembersOf lists every user bound to groupID in store order.
	MembersOf(ctx context.Context, groupID string) ([]int64, error)
}
