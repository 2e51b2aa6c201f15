// Package query implements the key-addressed cache layer: hierarchical
// query keys, device-aware staleness, fetch deduplication, and the
// observer primitive that gives consumers stale-while-revalidate reads.
package query

import (
	"encoding/json"
	"fmt"
)

// Key is an ordered [domain, entity, action, ...params] tuple identifying
// one cache slot. Structurally equal keys address the same slot: equality
// is value equality on the canonical encoding, never pointer identity.
type Key []any

// Filters is a normalized filter parameter. JSON encoding of Go maps
// sorts keys, so two Filters with the same content always canonicalize
// identically regardless of insertion order.
type Filters map[string]any

// Canonical returns the stable string identity of the key. Panics only
// on non-JSON-encodable params, which the registry functions never
// produce.
func (k Key) Canonical() string {
	data, err := json.Marshal(k)
	if err != nil {
		panic(fmt.Sprintf("query: unencodable key: %v", err))
	}
	return string(data)
}

// HasPrefix reports whether k starts with prefix, element by element.
// A coarse key like ["agenda","day"] matches every finer day-query key,
// which is what bulk invalidation relies on.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		a, errA := json.Marshal(p)
		b, errB := json.Marshal(k[i])
		if errA != nil || errB != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}

// Domain returns the first tuple element when it is a string.
func (k Key) Domain() string {
	if len(k) == 0 {
		return ""
	}
	if domain, ok := k[0].(string); ok {
		return domain
	}
	return ""
}

// IsList reports whether the key addresses a list query.
func (k Key) IsList() bool {
	return len(k) > 1 && k[1] == "list"
}

// IsDetail reports whether the key addresses a detail query.
func (k Key) IsDetail() bool {
	return len(k) > 1 && k[1] == "detail"
}

// Agenda domain keys.

func AgendaPrefix() Key { return Key{"agenda"} }

func AgendaDayKey(date, module string, filters Filters) Key {
	return Key{"agenda", "day", date, module, filters}
}

func AgendaDayPrefix() Key { return Key{"agenda", "day"} }

func AgendaWeekKey(startDate, endDate, module string) Key {
	return Key{"agenda", "week", startDate, endDate, module}
}

func AgendaMonthKey(month, module string) Key {
	return Key{"agenda", "month", month, module}
}

func AgendaDetailKey(id string) Key {
	return Key{"agenda", "detail", id}
}

func AgendaConflictsKey(startDate, endDate string) Key {
	return Key{"agenda", "conflicts", startDate, endDate}
}

func AgendaListKey(tab, category string) Key {
	return Key{"agenda", "list", tab, category}
}

func AgendaSlotsKey(date string, serviceIDs []string) Key {
	return Key{"agenda", "slots", date, serviceIDs}
}

// Customers domain keys.

func CustomersPrefix() Key { return Key{"customers"} }

func CustomersListKey(tab string, filters Filters) Key {
	return Key{"customers", "list", tab, filters}
}

func CustomersDetailKey(id string) Key {
	return Key{"customers", "detail", id}
}

func CustomersSearchKey(q string, limit int) Key {
	return Key{"customers", "search", q, limit}
}

func CustomersPetsKey(customerID string) Key {
	return Key{"customers", "pets", customerID}
}

// Auth/staff domain keys. These exist so the persistence allowlist has
// concrete sensitive keys to refuse; the core never persists them.

func AuthMeKey() Key { return Key{"auth", "me"} }

func StaffUsersListKey(tab string, filters Filters) Key {
	return Key{"staff", "users", "list", tab, filters}
}
