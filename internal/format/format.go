// Package format renders user-facing values and validates user input.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency codes understood by Currency.
const (
	USD  = "USD"
	TON  = "TON"
	LOVE = "LOVE"
)

// UnknownLevel is shown for loyalty levels outside 1..5.
const UnknownLevel = "Неизвестный"

var levelNames = map[int]string{
	1: "Новичок",
	2: "Активный",
	3: "Эксперт",
	4: "Легенда",
	5: "Божество",
}

// LevelName never fails; out-of-range levels render as UnknownLevel.
func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return UnknownLevel
}

var usdPrinter = message.NewPrinter(language.English)

// Currency formats amount for display in the given currency.
func Currency(amount float64, currency string) string {
	switch strings.ToUpper(currency) {
	case USD:
		return usdPrinter.Sprintf("$%.2f", amount)
	case TON:
		return fmt.Sprintf("%.9f TON", amount)
	case LOVE:
		return fmt.Sprintf("%.9f $LOVE", amount)
	default:
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
}

// Points renders an integer point balance as $LOVE.
func Points(points int64) string {
	return Currency(float64(points), LOVE)
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// ValidUsername reports whether s is a well-formed Telegram username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidWallet reports whether s looks like a user-friendly TON address.
func ValidWallet(s string) bool {
	return len(s) == 48 && strings.HasPrefix(s, "UQ")
}
