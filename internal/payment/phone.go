package payment

import (
	"regexp"
	"strings"
)

const InvalidPhoneMessage = "Please enter a valid Tanzanian phone number (e.g., 0712345678 or +255712345678)"

var tanzanianPhone = regexp.MustCompile(`^(\+255|0)[67]\d{8}$`)

// ValidatePhone reports whether phone is a Tanzanian mobile number in local or
// international form. Only surrounding space is trimmed; inner separators fail.
func ValidatePhone(phone string) bool {
	return tanzanianPhone.MatchString(strings.TrimSpace(phone))
}

var phoneSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "")

// NormalizePhone strips separators and rewrites a local number to +255 form.
func NormalizePhone(phone string) string {
	p := phoneSeparators.Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(p, "0") {
		p = "+255" + p[1:]
	}
	return p
}
