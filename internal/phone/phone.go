package phone

import (
	"regexp"
	"strings"
)

// CountryCode is the Brazilian international prefix.
const CountryCode = "55"

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips everything but 0-9.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// Normalize turns a Brazilian number in any common shape into
// country code + area code + subscriber. areaCode is used only when the number
// carries no area code of its own. The second result is false when the shape is not
// recognizable at all.
func Normalize(number, areaCode string) (string, bool) {
	d := Digits(number)
	d = strings.TrimLeft(d, "0")

	switch {
	case len(d) == 13 && strings.HasPrefix(d, CountryCode):
		return d, true
	case len(d) == 12 && strings.HasPrefix(d, CountryCode):
		return d, true
	case len(d) == 10 || len(d) == 11:
		return CountryCode + d, true
	case len(d) == 9 || len(d) == 8:
		if areaCode == "" {
			return "", false
		}
		return CountryCode + areaCode + d, true
	}
	return "", false
}

// IsValidMobile reports whether number normalizes to 55 + areaCode + a 9-digit mobile
// subscriber starting with 9 that is not a repeated-digit filler.
func IsValidMobile(number, areaCode string) bool {
	n, ok := Normalize(number, areaCode)
	if !ok || len(n) != 13 {
		return false
	}
	if n[2:4] != areaCode {
		return false
	}
	if n[4] != '9' {
		return false
	}
	return !isRepeated(n[5:])
}

func isRepeated(s string) bool {
	if s == "" {
		return true
	}
	return strings.Count(s, s[:1]) == len(s)
}

// AreaCodeOf returns the area code embedded in a normalized number.
func AreaCodeOf(normalized string) string {
	if len(normalized) < 4 || !strings.HasPrefix(normalized, CountryCode) {
		return ""
	}
	return normalized[2:4]
}

// Equivalent compares two contact numbers that may arrive in different formats:
// exact digits, then with the country code stripped from either side, then by
// subscriber number when one side carries no area code. WhatsApp ids that omit the
// mobile 9 (55 + DDD + 8 digits) are matched against the full form on the same DDD.
func Equivalent(a, b string) bool {
	da, db := Digits(a), Digits(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}

	la, lb := stripCountry(da), stripCountry(db)
	if la == lb {
		return true
	}

	if len(la) <= 9 || len(lb) <= 9 {
		return suffix(la, 9) == suffix(lb, 9) && len(suffix(la, 9)) == 9
	}

	if len(la) >= 10 && len(lb) >= 10 && la[:2] == lb[:2] {
		return dropMobileNine(la[2:]) == dropMobileNine(lb[2:])
	}

	return false
}

func stripCountry(d string) string {
	if len(d) >= 12 && strings.HasPrefix(d, CountryCode) {
		return d[len(CountryCode):]
	}
	return d
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func dropMobileNine(subscriber string) string {
	if len(subscriber) == 9 && subscriber[0] == '9' {
		return subscriber[1:]
	}
	return subscriber
}
