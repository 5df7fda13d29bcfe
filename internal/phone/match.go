package phone

import (
	"strings"

	"go.uber.org/zap"
)

// Matcher decides whether two phone strings denote the same subscriber,
// covering the ambiguity normalization alone cannot resolve (leading zero vs
// country-code elision).
type Matcher struct {
	// AllowContainment enables the weak substring fallback. It carries
	// false-positive risk for short numbers nested in longer ones, so it is
	// off unless explicitly enabled, floored by MinContainmentDigits, and
	// every positive hit is logged.
	AllowContainment     bool
	MinContainmentDigits int

	logger *zap.Logger
}

// DefaultMinContainmentDigits is the floor applied when a Matcher is built
// with a zero MinContainmentDigits.
const DefaultMinContainmentDigits = 9

// NewMatcher builds a matcher. logger may be nil.
func NewMatcher(allowContainment bool, minContainmentDigits int, logger *zap.Logger) *Matcher {
	if minContainmentDigits <= 0 {
		minContainmentDigits = DefaultMinContainmentDigits
	}
	return &Matcher{
		AllowContainment:     allowContainment,
		MinContainmentDigits: minContainmentDigits,
		logger:               logger,
	}
}

// Matches reports whether a and b denote the same subscriber. Symmetric, and
// reflexive for any input that contains at least one digit.
func (m *Matcher) Matches(a, b string) bool {
	da := Normalize(a)
	db := Normalize(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	if crossPrefixEqual(da, db) || crossPrefixEqual(db, da) {
		return true
	}
	if m.AllowContainment &&
		len(da) >= m.MinContainmentDigits && len(db) >= m.MinContainmentDigits &&
		(strings.Contains(da, db) || strings.Contains(db, da)) {
		if m.logger != nil {
			m.logger.Warn("phone matched by containment fallback",
				zap.String("a", da),
				zap.String("b", db),
			)
		}
		return true
	}
	return false
}

// crossPrefixEqual tests the directed prefix equivalences between digit
// strings x and y: country code vs local zero, and a bare subscriber number
// vs either prefix.
func crossPrefixEqual(x, y string) bool {
	// 27XXXXXXXXX vs 0XXXXXXXXX
	if strings.HasPrefix(x, CountryCode) && strings.HasPrefix(y, "0") {
		if x[len(CountryCode):] == y[1:] {
			return true
		}
	}
	// bare XXXXXXXXX vs 0XXXXXXXXX or 27XXXXXXXXX
	if !strings.HasPrefix(x, "0") && !strings.HasPrefix(x, CountryCode) {
		if y == "0"+x || y == CountryCode+x {
			return true
		}
	}
	return false
}
