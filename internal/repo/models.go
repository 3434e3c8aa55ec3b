package repo

import "time"

// Subscription statuses stored in users.subscription_status.
const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

// User represents the users table row.
type User struct {
	ID                   string         `json:"id"`
	ExternalID           string         `json:"telegram_id"`
	Username             *string        `json:"username,omitempty"`
	DisplayName          *string        `json:"first_name,omitempty"`
	LastName             *string        `json:"last_name,omitempty"`
	LanguageCode         *string        `json:"language_code,omitempty"`
	IsActive             bool           `json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	LastInteraction      *time.Time     `json:"last_interaction,omitempty"`
	WalletAddress        *string        `json:"wallet_address,omitempty"`
	Verified             bool           `json:"verified"`
	SubscriptionStatus   string         `json:"subscription_status"`
	SubscriptionEndDate  *time.Time     `json:"subscription_end_date,omitempty"`
	ReferralCode         *string        `json:"referral_code,omitempty"`
	ReferredBy           *string        `json:"referred_by,omitempty"`
	TotalPoints          int64          `json:"total_points"`
	LoyaltyLevel         int            `json:"loyalty_level"`
	NotificationsEnabled bool           `json:"notifications_enabled"`
	Preferences          map[string]any `json:"preferences,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// HasReferralCode reports whether a referral code has been assigned.
func (u *User) HasReferralCode() bool {
	return u.ReferralCode != nil && *u.ReferralCode != ""
}

// UserProfile carries the data used to seed a new user. ReferralCode and
// InteractedAt are written by the same INSERT, so a new row never exists
// without them.
type UserProfile struct {
	ExternalID   string
	Username     *string
	DisplayName  *string
	LastName     *string
	LanguageCode *string
	ReferralCode *string
	InteractedAt *time.Time
}

// Recipient is the slice of a user needed to deliver a notification.
type Recipient struct {
	UserID     string
	ExternalID string
}
