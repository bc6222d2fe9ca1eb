// Package normalize canonicalizes the two identifiers shared across data
// stores: city names and SKU references. Every key written to
// stock_ciudades, ventas.ciudad or depositos.ciudad goes through Ciudad
// first, so "SUCRE", " sucre " and "la  paz" can never fan out into
// separate ledger cells.
package normalize

import (
	"regexp"
	"strings"
)

// sepRun matches any run of whitespace and/or underscores.
var sepRun = regexp.MustCompile(`[\s_]+`)

// Ciudad lowercases, trims, and collapses internal whitespace to single
// underscores. Idempotent: Ciudad(Ciudad(x)) == Ciudad(x).
func Ciudad(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = sepRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Sku returns the trimmed SKU and true when it belongs to the known set,
// or "" and false otherwise. The caller decides whether an unknown SKU is
// an error or a tolerated orphan reference.
func Sku(raw string, validos map[string]struct{}) (string, bool) {
	s := strings.TrimSpace(raw)
	if _, ok := validos[s]; !ok {
		return "", false
	}
	return s, true
}
