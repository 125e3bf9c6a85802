// Package strings normalizes the enum-like string lists that arrive on
// requests (account roles, blockable operations).
package strings

import (
	"strings"
)

// NormalizeTokens trims, lowercases and deduplicates values, dropping blanks.
// Order of first appearance is kept. A nil input stays nil so callers can
// tell an absent list from an empty one.
//
//	NormalizeTokens([]string{" Agent", "agent", "", "MERCHANT"})
//	// []string{"agent", "merchant"}
func NormalizeTokens(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		token := strings.ToLower(strings.TrimSpace(v))
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// ParseTokens normalizes values and converts each to T.
func ParseTokens[T ~string](values []string) []T {
	tokens := NormalizeTokens(values)
	if tokens == nil {
		return nil
	}
	out := make([]T, len(tokens))
	for i, t := range tokens {
		out[i] = T(t)
	}
	return out
}
