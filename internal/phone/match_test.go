package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.uber.org/zap"
)

// The five written forms of the same subscriber must all pairwise match.
var sameSubscriber = []string{
	"0832091122",
	"083 209 1122",
	"+27832091122",
	"(083) 209-1122",
	"27832091122",
}

func TestMatcherPairwise(t *testing.T) {
	m := NewMatcher(false, 0, nil)
	for _, a := range sameSubscriber {
		for _, b := range sameSubscriber {
			assert.True(t, m.Matches(a, b), "%q should match %q", a, b)
		}
	}
}

func TestMatcherReflexive(t *testing.T) {
	m := NewMatcher(false, 0, nil)
	for _, p := range []string{"0832091122", "27", "1", "+27 83 209 1122"} {
		if Normalize(p) == "" {
			continue
		}
		assert.True(t, m.Matches(p, p), "%q should match itself", p)
	}
}

func TestMatcherSymmetric(t *testing.T) {
	m := NewMatcher(true, 0, zap.NewNop())
	pairs := [][2]string{
		{"0832091122", "27832091122"},
		{"832091122", "0832091122"},
		{"832091122", "27832091122"},
		{"0832091122", "0117891122"},
		{"", "0832091122"},
		{"27832091122", "002783209112299"},
	}
	for _, p := range pairs {
		assert.Equal(t, m.Matches(p[0], p[1]), m.Matches(p[1], p[0]),
			"matches(%q,%q) must equal matches(%q,%q)", p[0], p[1], p[1], p[0])
	}
}

func TestMatcherNegatives(t *testing.T) {
	m := NewMatcher(false, 0, nil)

	t.Run("different subscribers", func(t *testing.T) {
		assert.False(t, m.Matches("0832091122", "0832091123"))
	})

	t.Run("empty input never matches", func(t *testing.T) {
		assert.False(t, m.Matches("", ""))
		assert.False(t, m.Matches("", "0832091122"))
	})

	t.Run("containment disabled by default", func(t *testing.T) {
		assert.False(t, m.Matches("27832091122", "002783209112200"))
	})
}

func TestMatcherContainmentFallback(t *testing.T) {
	t.Run("fires only when enabled", func(t *testing.T) {
		on := NewMatcher(true, 0, zap.NewNop())
		assert.True(t, on.Matches("27832091122", "002783209112200"))
	})

	t.Run("length floor blocks short numbers", func(t *testing.T) {
		on := NewMatcher(true, 0, zap.NewNop())
		// "209" appears inside the longer number, but it is far below the floor.
		assert.False(t, on.Matches("209", "27832091122"))
	})
}
