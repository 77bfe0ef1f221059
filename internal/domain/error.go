package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("medicine not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInventoryEmpty       = errors.New("inventory already empty")
	ErrNoGroup              = errors.New("user has no group bound")
	ErrLockBusy             = errors.New("store lock is held by another writer")
)
