package utils

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,100}$`)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateUsername accepts 3-100 letters, digits, dots, dashes and underscores.
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	return true, ""
}

// SanitizeInput trims surrounding whitespace and strips null bytes.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.ReplaceAll(input, "\x00", "")
}

// OptionalString sanitizes input and returns nil when nothing is left.
func OptionalString(input string) *string {
	v := SanitizeInput(input)
	if v == "" {
		return nil
	}
	return &v
}
