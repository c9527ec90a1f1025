package geom

import (
	"fmt"
	"math"
	"strings"
)

// KeyFunc resolves a feature's canonical region identifier from its properties.
type KeyFunc func(props map[string]any) (string, bool)

// DefaultKeyFields is the fallback field precedence when none is configured.
var DefaultKeyFields = []string{"ZCTA5CE20", "ZCTA5CE10", "GEOID20", "GEOID10", "ZCTA5", "ZIP", "zip", "zipcode", "postal_code"}

// PropertyKey returns a KeyFunc trying fields in order. The first field that
// normalizes to a non-empty identifier wins.
func PropertyKey(fields ...string) KeyFunc {
	if len(fields) == 0 {
		fields = DefaultKeyFields
	}
	return func(props map[string]any) (string, bool) {
		for _, f := range fields {
			v, ok := props[f]
			if !ok {
				continue
			}
			if id, ok := NormalizeZIP(v); ok {
				return id, true
			}
		}
		return "", false
	}
}

// NormalizeZIP converts a property value to a 5-character ZIP identifier.
// Numbers are zero-padded; all-digit strings shorter than 5 are left-padded.
// ZIP+4 strings ("12345-6789") keep the first five digits.
func NormalizeZIP(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if i := strings.IndexByte(s, '-'); i > 0 {
			s = s[:i]
		}
		if s == "" {
			return "", false
		}
		if allDigits(s) && len(s) < 5 {
			s = strings.Repeat("0", 5-len(s)) + s
		}
		return s, true
	case float64:
		if t < 0 || t != math.Trunc(t) || math.IsInf(t, 0) {
			return "", false
		}
		return fmt.Sprintf("%05d", int64(t)), true
	case int:
		if t < 0 {
			return "", false
		}
		return fmt.Sprintf("%05d", t), true
	case int64:
		if t < 0 {
			return "", false
		}
		return fmt.Sprintf("%05d", t), true
	}
	return "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AssignIDs returns copies of features with ID resolved through key.
// Features the key cannot resolve keep the ID they were decoded with.
func AssignIDs(features []Feature, key KeyFunc) []Feature {
	out := make([]Feature, len(features))
	for i, f := range features {
		if id, ok := key(f.Properties); ok {
			f.ID = id
		}
		out[i] = f
	}
	return out
}
