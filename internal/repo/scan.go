package repo

import "encoding/json"

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, is_active,
       created_at, updated_at, last_interaction, wallet_address, verified,
       subscription_status, subscription_end_date, referral_code, referred_by,
       total_points, loyalty_level, notifications_enabled, preferences, metadata`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		prefsJSON []byte
		metaJSON  []byte
	)
	if err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Username,
		&u.DisplayName,
		&u.LastName,
		&u.LanguageCode,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastInteraction,
		&u.WalletAddress,
		&u.Verified,
		&u.SubscriptionStatus,
		&u.SubscriptionEndDate,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.TotalPoints,
		&u.LoyaltyLevel,
		&u.NotificationsEnabled,
		&prefsJSON,
		&metaJSON,
	); err != nil {
		return nil, err
	}
	u.Preferences = fromJSON(prefsJSON)
	u.Metadata = fromJSON(metaJSON)
	return &u, nil
}

func fromJSON(data []byte) map[string]any {
	if len(data) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"_raw": string(data)}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}
