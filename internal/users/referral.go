package users

import (
	"strings"

	"github.com/google/uuid"
)

const (
	referralPrefix      = "REF-"
	referralIDChars     = 8
	referralSuffixChars = 4
	maxReferralAttempts = 5
)

// ReferralCode builds REF-<first 8 chars of the external id>-<suffix>, upper-cased.
func ReferralCode(externalID, suffix string) string {
	id := []rune(externalID)
	if len(id) > referralIDChars {
		id = id[:referralIDChars]
	}
	return referralPrefix + strings.ToUpper(string(id)) + "-" + strings.ToUpper(suffix)
}

func randomReferralSuffix() string {
	return strings.ToUpper(uuid.NewString()[:referralSuffixChars])
}
