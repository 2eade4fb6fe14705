package model

import (
	"fmt"
	"strings"
)

// PairSymbol builds the canonical "BASE/QUOTE" symbol from two currency codes.
func PairSymbol(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

// SplitPair splits a "BASE/QUOTE" symbol into its currency codes.
func SplitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid pair %q", pair)
	}
	base = strings.ToUpper(strings.TrimSpace(parts[0]))
	quote = strings.ToUpper(strings.TrimSpace(parts[1]))
	if len(base) != 3 || len(quote) != 3 || base == quote {
		return "", "", fmt.Errorf("invalid pair %q", pair)
	}
	return base, quote, nil
}
