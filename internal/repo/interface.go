package repo

import (
	"context"
	"io/fs"
	"time"
)

// Repository defines the interface for user persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Lookups
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*User, error)

	// Writes
	CreateUser(ctx context.Context, profile UserProfile) (*User, error)
	TouchUser(ctx context.Context, id string, at time.Time) (*User, error)
	AssignReferralCode(ctx context.Context, id, code string) (*User, error)
	SetReferredBy(ctx context.Context, id, referrerID string) (bool, error)
	SetNotificationsEnabled(ctx context.Context, externalID string, enabled bool) (*User, error)

	// Aggregates
	CountUsers(ctx context.Context) (int, error)
	CountActiveUsers(ctx context.Context) (int, error)
	CountUsersByLevel(ctx context.Context) (map[int]int, error)
	ListNotifiableUsers(ctx context.Context) ([]Recipient, error)
}
