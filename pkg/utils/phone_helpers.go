package utils

import (
	"regexp"
	"strings"
)

var nonDigitRegexp = regexp.MustCompile(`\D`)

// NormalizeUSPhoneNumber returns the E.164 form of a North American number, or "" if it
// does not have 10 digits (11 with a leading 1).
func NormalizeUSPhoneNumber(phone string) string {
	if strings.HasPrefix(strings.TrimSpace(phone), "+") && !strings.HasPrefix(strings.TrimSpace(phone), "+1") {
		return ""
	}
	digits := nonDigitRegexp.ReplaceAllString(phone, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return ""
	}
}
