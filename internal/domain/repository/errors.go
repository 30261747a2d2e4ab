package repository

import "github.com/cockroachdb/errors"

var (
	// ErrDuplicateSequence means another receipt already holds the same
	// (owner, date key, no). The caller recounts and tries again.
	ErrDuplicateSequence = errors.New("receipt number already taken")
	// ErrDuplicateEmail means the email is registered to another user
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrIdempotencyKeyInUse means another request already claimed the key
	ErrIdempotencyKeyInUse = errors.New("idempotency key already claimed")
)
