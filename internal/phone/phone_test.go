package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain local", "0832091122", "0832091122"},
		{"spaces", "083 209 1122", "0832091122"},
		{"plus prefix", "+27832091122", "27832091122"},
		{"parens and dash", "(083) 209-1122", "0832091122"},
		{"country code", "27832091122", "27832091122"},
		{"double zero prefix", "0027832091122", "0027832091122"},
		{"empty", "", ""},
		{"no digits", "+-() abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestExpandFormats(t *testing.T) {
	t.Run("local form expands to all regional variants", func(t *testing.T) {
		got := ExpandFormats("083 209 1122")
		assert.ElementsMatch(t, []string{
			"0832091122",
			"27832091122",
			"+27832091122",
			"0027832091122",
		}, got)
	})

	t.Run("country code form expands back to local", func(t *testing.T) {
		got := ExpandFormats("27832091122")
		assert.Contains(t, got, "0832091122")
		assert.Contains(t, got, "+27832091122")
		assert.Contains(t, got, "27832091122")
	})

	t.Run("international 00 form strips down to local", func(t *testing.T) {
		got := ExpandFormats("0027832091122")
		assert.Contains(t, got, "27832091122")
		assert.Contains(t, got, "0832091122")
	})

	t.Run("bare subscriber number gains both prefixes", func(t *testing.T) {
		got := ExpandFormats("832091122")
		assert.Contains(t, got, "0832091122")
		assert.Contains(t, got, "27832091122")
	})

	t.Run("empty input yields empty set", func(t *testing.T) {
		assert.Empty(t, ExpandFormats(""))
		assert.Empty(t, ExpandFormats("---"))
	})

	t.Run("no duplicates", func(t *testing.T) {
		got := ExpandFormats("0832091122")
		seen := make(map[string]struct{})
		for _, v := range got {
			_, dup := seen[v]
			require.False(t, dup, "duplicate format %q", v)
			seen[v] = struct{}{}
		}
	})
}
