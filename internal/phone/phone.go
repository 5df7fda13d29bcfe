// Package phone canonicalizes raw phone strings and decides whether two
// written forms denote the same subscriber. South African numbers coexist in
// three written forms for one subscriber (083..., 27..., +27...), so any
// storage equality check needs every variant generated up front.
package phone

import (
	"strings"
	"unicode"
)

// CountryCode is the default country code substituted for a leading zero.
const CountryCode = "27"

// Normalize strips every non-digit character (spaces, parens, '+', dashes).
// Pure and total: input with no digits yields "".
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExpandFormats returns the normalized digits plus every plausible regional
// variant of the number: leading zero swapped for the country code, country
// code swapped for a leading zero, and the +/00 international-prefix forms.
// Empty or digit-free input yields an empty slice, never an error.
func ExpandFormats(raw string) []string {
	digits := Normalize(raw)
	if digits == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(digits)

	switch {
	case strings.HasPrefix(digits, "00"+CountryCode) && len(digits) > len(CountryCode)+2:
		// 0027XXXXXXXXX written with the international 00 prefix
		rest := digits[len(CountryCode)+2:]
		add(CountryCode + rest)
		add("+" + CountryCode + rest)
		add("0" + rest)
	case strings.HasPrefix(digits, "0") && len(digits) > 1:
		rest := digits[1:]
		add(CountryCode + rest)
		add("+" + CountryCode + rest)
		add("00" + CountryCode + rest)
	case strings.HasPrefix(digits, CountryCode) && len(digits) > len(CountryCode):
		rest := digits[len(CountryCode):]
		add("0" + rest)
		add("+" + digits)
		add("00" + digits)
	default:
		add("0" + digits)
		add(CountryCode + digits)
		add("+" + CountryCode + digits)
	}

	return out
}
