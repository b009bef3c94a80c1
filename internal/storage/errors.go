package storage

import (
	"errors"

	"solana-stock-swap/internal/domain"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist,
	// or exists but belongs to another wallet.
	ErrNotFound = domain.ErrNotFound

	// ErrConflict is returned when a compare-and-set update finds the
	// record in a different status than expected.
	ErrConflict = domain.ErrConflict

	// ErrDuplicateKey is returned when inserting a record whose key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
