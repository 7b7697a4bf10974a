package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a lookup for an id absent from the store. Callers treat
// it as a recoverable empty result, not a hard failure.
var ErrNotFound = errors.New("not found")

// ErrInvalid marks a construction invariant violation; every Validate error
// wraps it so boundaries can reject bad input distinctly from store failures.
var ErrInvalid = errors.New("invalid")

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}
