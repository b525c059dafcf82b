package domain

import "strings"

const (
	UnassignedRack = "Unassigned"
	NoShelf        = "No Shelf"
)

// RackKey groups events by rack, empty racks fall under Unassigned
func RackKey(e *MovementEvent) string {
	if r := strings.TrimSpace(e.RackNo); r != "" {
		return r
	}
	return UnassignedRack
}

// ShelfKey groups events by shelf, empty shelves fall under No Shelf
func ShelfKey(e *MovementEvent) string {
	if s := strings.TrimSpace(e.ShelfNo); s != "" {
		return s
	}
	return NoShelf
}

// FlavourExpiry is the forecast grouping key
type FlavourExpiry struct {
	Flavour    string
	ExpiryDate string
}

// FlavourExpiryKey groups events by flavour and expiry string
func FlavourExpiryKey(e *MovementEvent) FlavourExpiry {
	return FlavourExpiry{Flavour: e.Flavour, ExpiryDate: e.ExpiryDate}
}

// LocationKeyOf groups events by their location identity
func LocationKeyOf(e *MovementEvent) LocationKey {
	return e.LocationKey()
}

// GroupBy partitions events by key, keeping input order inside each group
func GroupBy[K comparable](events []MovementEvent, key func(*MovementEvent) K) map[K][]MovementEvent {
	out := make(map[K][]MovementEvent)
	for i := range events {
		k := key(&events[i])
		out[k] = append(out[k], events[i])
	}
	return out
}

// BalanceBy tallies IN and OUT per key
func BalanceBy[K comparable](events []MovementEvent, key func(*MovementEvent) K) map[K]Balance {
	out := make(map[K]Balance)
	for i := range events {
		k := key(&events[i])
		b := out[k]
		b.Add(events[i].Movement)
		out[k] = b
	}
	return out
}

// Tally sums the balance of all events
func Tally(events []MovementEvent) Balance {
	var b Balance
	for i := range events {
		b.Add(events[i].Movement)
	}
	return b
}
