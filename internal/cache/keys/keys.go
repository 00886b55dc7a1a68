// Package keys builds cache keys for boundary lookups.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

const storePrefix = "boundary"

// Area rounds each bound to 3 decimals so nearby viewports share an entry.
func Area(bb model.BBox) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", bb.MinLat, bb.MinLng, bb.MaxLat, bb.MaxLng)
}

// Name is case-insensitive on the suburb but keeps the region verbatim.
func Name(l model.NameLookup) string {
	return strings.ToLower(l.Name) + "-" + l.Region
}

// Store namespaces a lookup key for a shared backend. The readable part is
// sanitized and capped; the hash suffix keeps distinct keys distinct.
func Store(domain, key string) string {
	safe := sanitizeForKey(strings.TrimSpace(key))

	const maxKeyTextLen = 120
	if len(safe) > maxKeyTextLen {
		safe = safe[:maxKeyTextLen]
	}

	sum := xxhash.Sum64String(key)
	return fmt.Sprintf("%s:%s:%s:h=%016x", storePrefix, sanitizeForKey(domain), safe, sum)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == ',' || r == '.' || r == '_' || r == '-':
			out = r
		default:
			// any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
