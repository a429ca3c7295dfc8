package archive

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizeName lowercases name and converts backslashes to forward slashes.
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, `\`, "/"))
}

// Hash returns the lookup key for a logical filename: the low 32 bits of the
// xxHash64 of its normalized form.
func Hash(name string) uint32 {
	return uint32(xxhash.Sum64String(NormalizeName(name)))
}
