package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Lookups --

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, sqliteUserErr("get user by id", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ? LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, externalID))
	if err != nil {
		return nil, sqliteUserErr("get user by telegram id", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByReferralCode(ctx context.Context, code string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE referral_code = ? LIMIT 1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, sqliteUserErr("get user by referral code", err)
	}
	return u, nil
}

// -- Writes --

func (r *SQLiteRepository) CreateUser(ctx context.Context, profile UserProfile) (*User, error) {
	// SQLite has no uuid generator, ids are minted here.
	q := `
INSERT INTO users (id, telegram_id, username, first_name, last_name, language_code, referral_code, last_interaction, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (telegram_id) DO NOTHING
RETURNING ` + userColumns + `;`
	now := time.Now().UTC()
	var interacted any
	if profile.InteractedAt != nil {
		interacted = profile.InteractedAt.UTC()
	}
	row := r.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		profile.ExternalID,
		profile.Username,
		profile.DisplayName,
		profile.LastName,
		profile.LanguageCode,
		profile.ReferralCode,
		interacted,
		now,
		now,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("create user %s: %w", profile.ExternalID, ErrDuplicateUser)
		}
		return nil, sqliteUserErr("create user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) TouchUser(ctx context.Context, id string, at time.Time) (*User, error) {
	q := `
UPDATE users SET last_interaction = ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns + `;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, at.UTC(), time.Now().UTC(), id))
	if err != nil {
		return nil, sqliteUserErr("touch user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) AssignReferralCode(ctx context.Context, id, code string) (*User, error) {
	var out *User
	err := r.WithTx(ctx, func(tx *sql.Tx) error {
		q := `
UPDATE users SET referral_code = ?, updated_at = ?
WHERE id = ? AND referral_code IS NULL
RETURNING ` + userColumns + `;`
		u, err := scanUser(tx.QueryRowContext(ctx, q, code, time.Now().UTC(), id))
		if err == nil {
			out = u
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		u, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?;`, id))
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, sqliteUserErr("assign referral code", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetReferredBy(ctx context.Context, id, referrerID string) (bool, error) {
	const q = `
UPDATE users SET referred_by = ?, updated_at = ?
WHERE id = ? AND referred_by IS NULL AND id <> ?;`
	res, err := r.db.ExecContext(ctx, q, referrerID, time.Now().UTC(), id, referrerID)
	if err != nil {
		return false, fmt.Errorf("set referred by: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLiteRepository) SetNotificationsEnabled(ctx context.Context, externalID string, enabled bool) (*User, error) {
	q := `
UPDATE users SET notifications_enabled = ?, updated_at = ?
WHERE telegram_id = ?
RETURNING ` + userColumns + `;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, enabled, time.Now().UTC(), externalID))
	if err != nil {
		return nil, sqliteUserErr("set notifications", err)
	}
	return u, nil
}

// -- Aggregates --

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountActiveUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_active = 1;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountUsersByLevel(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT loyalty_level, COUNT(*) FROM users GROUP BY loyalty_level;`)
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

func (r *SQLiteRepository) ListNotifiableUsers(ctx context.Context) ([]Recipient, error) {
	const q = `
SELECT id, telegram_id
FROM users
WHERE notifications_enabled = 1
ORDER BY created_at ASC;
`
	rows, err := r.db.QueryContext(ctx, q)
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
