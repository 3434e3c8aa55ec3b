package users

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExternalID is returned when a platform id is empty.
	ErrInvalidExternalID = errors.New("external id is empty")
	// ErrStoreUnavailable wraps any failure of the identity store.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrNotRegistered is returned when a flow requires a user that does not exist yet.
	ErrNotRegistered = errors.New("user not registered")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
