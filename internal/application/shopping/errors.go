package shopping

import "errors"

// ErrRejected matches every business-rule failure. A rejected operation
// leaves catalog and cart untouched.
var ErrRejected = errors.New("shopping: operation rejected")

var (
	ErrUnknownProduct      = rejection("unknown product")
	ErrInvalidQuantity     = rejection("invalid quantity")
	ErrInsufficientStock   = rejection("insufficient stock")
	ErrNotInCart           = rejection("product not in cart")
	ErrExceedsLineQuantity = rejection("quantity exceeds cart line")
)

type rejectedError struct{ reason string }

func rejection(reason string) error { return &rejectedError{reason: reason} }

func (e *rejectedError) Error() string { return "shopping: " + e.reason }

func (e *rejectedError) Is(target error) bool { return target == ErrRejected }

// IsRejected reports whether err is a validation failure rather than a store failure.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }
