package repository

import (
	"context"
	"errors"

	"telegram-medkit/internal/domain/model"
)

// ErrNoChange returned from a MutateFunc aborts the mutation without rewriting the store.
var ErrNoChange = errors.New("no change")

// MutateFunc receives every row of the store and returns the rows to persist.
type MutateFunc func(rows []*model.Medicine) ([]*model.Medicine, error)

// -----------------------------
// Medicines
// -----------------------------

type MedicineRepository interface {
	// All returns every row in store order.
	All(ctx context.Context) ([]*model.Medicine, error)
	// ByGroup returns the rows of one group in store order.
	ByGroup(ctx context.Context, groupID string) ([]*model.Medicine, error)
	// Mutate runs fn as one serialised read-modify-write. If fn returns ErrNoChange
	// nothing is written and Mutate returns nil; any other error is returned as is.
	Mutate(ctx context.Context, fn MutateFunc) error
}
