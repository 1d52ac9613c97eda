package util

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// DedupeStrings returns the unique elements of the input, preserving order.
func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// HashOfString returns a fast, compact hash of a string.
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// NormalizeText reduces message content to a canonical form for
// duplicate-text comparison: lowercased, whitespace collapsed.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
