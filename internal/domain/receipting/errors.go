// Package receipting holds the pure receipt numbering and consumption tax
// computations used when a receipt is issued.
package receipting

import "github.com/cockroachdb/errors"

// ErrInvalidAmount is returned when an amount does not resolve to a positive
// whole number of yen.
var ErrInvalidAmount = errors.New("amount must be a positive integer")
