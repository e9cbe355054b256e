package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 18
	MaxNameLength     = 64
	MaxEmailLength    = 254
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-z0-9_]{4,16}$`)
	emailRegex       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	countryCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// ValidateUsername expects an already lowercased username.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 4-16 characters of a-z, 0-9 or _")
	}
	return nil
}

func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength || !emailRegex.MatchString(email) {
		return fmt.Errorf("email is not valid")
	}
	return nil
}

// ValidatePassword requires 8-18 characters including an uppercase letter,
// a digit and a non-alphanumeric symbol.
func ValidatePassword(password string) error {
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be %d-%d characters", MinPasswordLength, MaxPasswordLength)
	}

	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case (r >= 'a' && r <= 'z') || unicode.IsSpace(r):
		default:
			symbol = true
		}
	}
	if !upper || !digit || !symbol {
		return fmt.Errorf("password must contain an uppercase letter, a digit and a symbol")
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}
	return nil
}

// IsCountryCode reports whether s looks like an ISO 3166 alpha-2 code.
func IsCountryCode(s string) bool {
	return countryCodeRegex.MatchString(s)
}
