package tempmail

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

// Local-part length bounds enforced at call sites, not by RandomWord.
const (
	MinNameLength     = 4
	MaxNameLength     = 20
	DefaultNameLength = 6
)

const lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"

var emailNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RandomWord returns length lowercase ASCII letters, each drawn uniformly.
// It is a display convenience and not suitable for secrets. A non-positive
// length returns "".
func RandomWord(length int) string {
	if length <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(length)
	for range length {
		b.WriteByte(lowercaseLetters[rand.IntN(len(lowercaseLetters))])
	}
	return b.String()
}

// ValidateEmailName reports whether name is a non-empty string of ASCII
// letters, digits, underscores and hyphens.
func ValidateEmailName(name string) bool {
	return emailNamePattern.MatchString(name)
}

// ClampNameLength limits n to [MinNameLength, MaxNameLength].
func ClampNameLength(n int) int {
	return min(max(n, MinNameLength), MaxNameLength)
}
