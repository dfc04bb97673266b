package plate

import "strings"

const (
	MinTokenLength = 5
	MaxTokenLength = 10
)

// Clean keeps only ASCII letters and digits of raw and upper-cases them.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		}
	}
	return b.String()
}

// IsAdmissible reports whether a cleaned token can be a plate reading:
// 5 to 10 characters with at least one digit.
func IsAdmissible(token string) bool {
	if len(token) < MinTokenLength || len(token) > MaxTokenLength {
		return false
	}
	return strings.ContainsAny(token, "0123456789")
}

// Normalize cleans raw and reports whether the result is an admissible token.
func Normalize(raw string) (string, bool) {
	token := Clean(raw)
	return token, IsAdmissible(token)
}
