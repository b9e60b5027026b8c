package formkit

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// UUIDRename replaces every base name with a random UUID.
func UUIDRename(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

// SlugRename lowercases the base name and replaces every run of characters
// other than letters, digits, '-' and '_' with a single '-'. A name with
// nothing left falls back to a UUID.
func SlugRename(_ context.Context, base string) (string, error) {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return uuid.NewString(), nil
	}
	return slug, nil
}

// PrefixRename prepends prefix to every base name.
func PrefixRename(prefix string) RenameFunc {
	return func(_ context.Context, base string) (string, error) {
		return prefix + base, nil
	}
}
