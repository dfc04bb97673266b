package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "AB1234", Clean("ab-12 34"))
	assert.Equal(t, "7XYZ123", Clean(" 7xyz.123\n"))
	assert.Equal(t, "", Clean("ü-·"))
}

func TestIsAdmissible(t *testing.T) {
	cases := map[string]bool{
		"AB1234":      true,
		"A1":          false,
		"ABCDEF":      false,
		"12345":       true,
		"1234567890":  true,
		"12345678901": false,
		"":            false,
	}
	for token, want := range cases {
		assert.Equal(t, want, IsAdmissible(token), token)
	}
}

func TestNormalize(t *testing.T) {
	token, ok := Normalize("8abc-123")
	assert.True(t, ok)
	assert.Equal(t, "8ABC123", token)

	_, ok = Normalize("CALIFORNIA")
	assert.False(t, ok)
}
