package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetUserByID returns user by internal identifier.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, pgUserErr("get user by id", err)
	}
	return u, nil
}

// GetUserByExternalID returns user by Telegram identifier.
func (r *PostgresRepository) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1 LIMIT 1;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, externalID))
	if err != nil {
		return nil, pgUserErr("get user by telegram id", err)
	}
	return u, nil
}

// GetUserByReferralCode returns the owner of a referral code.
func (r *PostgresRepository) GetUserByReferralCode(ctx context.Context, code string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1 LIMIT 1;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, code))
	if err != nil {
		return nil, pgUserErr("get user by referral code", err)
	}
	return u, nil
}

// CreateUser inserts a new user in a single statement. ErrDuplicateUser is
// returned when another row already owns the external id and
// ErrDuplicateReferralCode when the proposed code is taken; in both cases
// nothing is written.
func (r *PostgresRepository) CreateUser(ctx context.Context, profile UserProfile) (*User, error) {
	q := `
INSERT INTO users (id, telegram_id, username, first_name, last_name, language_code, referral_code, last_interaction)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (telegram_id) DO NOTHING
RETURNING ` + userColumns + `;`
	row := r.pool.QueryRow(ctx, q,
		uuid.NewString(),
		profile.ExternalID,
		profile.Username,
		profile.DisplayName,
		profile.LastName,
		profile.LanguageCode,
		profile.ReferralCode,
		profile.InteractedAt,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("create user %s: %w", profile.ExternalID, ErrDuplicateUser)
		}
		return nil, pgUserErr("create user", err)
	}
	return u, nil
}

// TouchUser stamps last_interaction on the user.
func (r *PostgresRepository) TouchUser(ctx context.Context, id string, at time.Time) (*User, error) {
	q := `
UPDATE users SET last_interaction = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns + `;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, at))
	if err != nil {
		return nil, pgUserErr("touch user", err)
	}
	return u, nil
}

// AssignReferralCode sets the referral code only when none is stored yet and
// returns the row as it is after the statement, so a code assigned earlier
// is preserved.
func (r *PostgresRepository) AssignReferralCode(ctx context.Context, id, code string) (*User, error) {
	var out *User
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		q := `
UPDATE users SET referral_code = $2, updated_at = NOW()
WHERE id = $1 AND referral_code IS NULL
RETURNING ` + userColumns + `;`
		u, err := scanUser(tx.QueryRow(ctx, q, id, code))
		if err == nil {
			out = u
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		u, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id))
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, pgUserErr("assign referral code", err)
	}
	return out, nil
}

// SetReferredBy records the referrer once. It reports whether the row changed.
func (r *PostgresRepository) SetReferredBy(ctx context.Context, id, referrerID string) (bool, error) {
	const q = `
UPDATE users SET referred_by = $2, updated_at = NOW()
WHERE id = $1 AND referred_by IS NULL AND id <> $2;`
	ct, err := r.pool.Exec(ctx, q, id, referrerID)
	if err != nil {
		return false, fmt.Errorf("set referred by: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetNotificationsEnabled toggles the notification preference.
func (r *PostgresRepository) SetNotificationsEnabled(ctx context.Context, externalID string, enabled bool) (*User, error) {
	q := `
UPDATE users SET notifications_enabled = $2, updated_at = NOW()
WHERE telegram_id = $1
RETURNING ` + userColumns + `;`
	u, err := scanUser(r.pool.QueryRow(ctx, q, externalID, enabled))
	if err != nil {
		return nil, pgUserErr("set notifications", err)
	}
	return u, nil
}

// CountUsers returns the total number of users.
func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActiveUsers returns the number of users flagged active.
func (r *PostgresRepository) CountActiveUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_active;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

// CountUsersByLevel groups users by loyalty level.
func (r *PostgresRepository) CountUsersByLevel(ctx context.Context) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT loyalty_level, COUNT(*) FROM users GROUP BY loyalty_level;`)
	if err != nil {
		return nil, fmt.Errorf("count users by level: %w", err)
	}
	defer rows.Close()

	res := make(map[int]int)
	for rows.Next() {
		var level, n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		res[level] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate level counts: %w", err)
	}
	return res, nil
}

// ListNotifiableUsers returns every user that has notifications enabled.
func (r *PostgresRepository) ListNotifiableUsers(ctx context.Context) ([]Recipient, error) {
	const q = `
SELECT id, telegram_id
FROM users
WHERE notifications_enabled
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list notifiable users: %w", err)
	}
	defer rows.Close()

	var res []Recipient
	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.UserID, &rc.ExternalID); err != nil {
			return nil, fmt.Errorf("scan notifiable user: %w", err)
		}
		res = append(res, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifiable users: %w", err)
	}
	return res, nil
}
