package repo

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when a user with the same external id already exists.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrDuplicateReferralCode is returned when a referral code is taken by another user.
	ErrDuplicateReferralCode = errors.New("referral code already taken")
)
