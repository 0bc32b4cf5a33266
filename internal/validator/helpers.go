package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	RgxEmail = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

	// RgxAccountNumber matches a NUBAN account number: exactly 10 digits.
	RgxAccountNumber = regexp.MustCompile(`^\d{10}$`)

	// RgxBankCode matches Paystack bank codes, 3 to 6 digits.
	RgxBankCode = regexp.MustCompile(`^\d{3,6}$`)
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func IsEmail(value string) bool {
	if len(value) > 254 {
		return false
	}

	return RgxEmail.MatchString(value)
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}
