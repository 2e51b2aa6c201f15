// Package persist snapshots the query cache to local storage so the
// agenda survives restarts, under a strict security policy: only
// allowlisted domains are written, and anything resembling a credential
// or sensitive identifier is stripped before it touches disk.
package persist

import "github.com/DemianF-dev/7pet-mvp-sub004/internal/query"

// persistableDomains is the allowlist. Persistence is opt-in per
// domain; anything not listed is refused, so a new sensitive domain is
// safe by default.
var persistableDomains = map[string]bool{
	"customers":     true,
	"agenda":        true,
	"quotes":        true,
	"services":      true,
	"products":      true,
	"pets":          true,
	"transport":     true,
	"client":        true,
	"notifications": true,
}

// ShouldPersist reports whether the entry for key may be written to
// storage. Auth, staff, analytics and billing domains never qualify.
func ShouldPersist(key query.Key) bool {
	return persistableDomains[key.Domain()]
}

// sensitiveFields are stripped from every persisted object, at any
// nesting depth. Matching is exact on the JSON field name.
var sensitiveFields = map[string]bool{
	"password":     true,
	"token":        true,
	"accessToken":  true,
	"refreshToken": true,
	"secret":       true,
	"apiKey":       true,
	"privateKey":   true,
	"ssn":          true,
	"creditCard":   true,
	"bankAccount":  true,
}

// Sanitize returns a deep copy of data with every sensitive field
// removed, recursing through nested objects and arrays. The input is
// never mutated; cached in-memory values stay intact.
func Sanitize(data any) any {
	switch v := data.(type) {
	case map[string]any:
		clean := make(map[string]any, len(v))
		for field, value := range v {
			if sensitiveFields[field] {
				continue
			}
			clean[field] = Sanitize(value)
		}
		return clean
	case []any:
		clean := make([]any, len(v))
		for i, value := range v {
			clean[i] = Sanitize(value)
		}
		return clean
	default:
		return v
	}
}
