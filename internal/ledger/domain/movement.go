package domain

import (
	"fmt"
	"strings"
	"time"
)

// Movement is the direction of a physical stock action
type Movement string

const (
	MovementIn  Movement = "IN"
	MovementOut Movement = "OUT"
)

// ParseMovement accepts IN or OUT in any case; empty means IN
func ParseMovement(s string) (Movement, error) {
	switch m := Movement(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return MovementIn, nil
	case MovementIn, MovementOut:
		return m, nil
	default:
		return "", fmt.Errorf("movement must be IN or OUT, got %q", s)
	}
}

// MovementEvent is one ledger row: a single physical IN or OUT action
type MovementEvent struct {
	ID int64 `json:"id" db:"id"`
	// Timestamp is the client's display string for when the scan happened
	Timestamp  string    `json:"timestamp" db:"client_timestamp"`
	BatchNo    string    `json:"batch_no" db:"batch_no"`
	MfgDate    string    `json:"mfg_date" db:"mfg_date"`
	ExpiryDate string    `json:"expiry_date" db:"expiry_date"`
	Flavour    string    `json:"flavour" db:"flavour"`
	RackNo     string    `json:"rack_no" db:"rack_no"`
	ShelfNo    string    `json:"shelf_no" db:"shelf_no"`
	Movement   Movement  `json:"movement" db:"movement"`
	RecordedBy string    `json:"recorded_by" db:"recorded_by"`
	BranchID   int64     `json:"branch_id" db:"branch_id"`
	SyncedAt   time.Time `json:"synced_at" db:"synced_at"`
}

// Normalize trims every text field so keys compare on content only
func (e *MovementEvent) Normalize() {
	e.Timestamp = strings.TrimSpace(e.Timestamp)
	e.BatchNo = strings.TrimSpace(e.BatchNo)
	e.MfgDate = strings.TrimSpace(e.MfgDate)
	e.ExpiryDate = strings.TrimSpace(e.ExpiryDate)
	e.Flavour = strings.TrimSpace(e.Flavour)
	e.RackNo = strings.TrimSpace(e.RackNo)
	e.ShelfNo = strings.TrimSpace(e.ShelfNo)
}

// LocationKey returns the identity of the physical stock unit this event touches
func (e *MovementEvent) LocationKey() LocationKey {
	return LocationKey{
		BatchNo:    e.BatchNo,
		Flavour:    e.Flavour,
		MfgDate:    e.MfgDate,
		ExpiryDate: e.ExpiryDate,
		RackNo:     e.RackNo,
		ShelfNo:    e.ShelfNo,
	}
}

// Expiry returns the parsed expiry date
func (e *MovementEvent) Expiry() DateValue {
	return ParseDate(e.ExpiryDate)
}

// LocationKey identifies a physical stock unit: a batch of one flavour with
// its dates, stored at one rack and shelf
type LocationKey struct {
	BatchNo    string `json:"batch_no" db:"batch_no"`
	Flavour    string `json:"flavour" db:"flavour"`
	MfgDate    string `json:"mfg_date" db:"mfg_date"`
	ExpiryDate string `json:"expiry_date" db:"expiry_date"`
	RackNo     string `json:"rack_no" db:"rack_no"`
	ShelfNo    string `json:"shelf_no" db:"shelf_no"`
}

// String renders the key for advisory locking and logs
func (k LocationKey) String() string {
	return strings.Join([]string{k.BatchNo, k.Flavour, k.MfgDate, k.ExpiryDate, k.RackNo, k.ShelfNo}, "\x1f")
}

// LockName scopes the key to a branch for per-location mutual exclusion
func (k LocationKey) LockName(branchID int64) string {
	return fmt.Sprintf("ledger:%d:%s", branchID, k)
}

// DedupeKey is the identity used to recognise a replayed event. Flavour is
// not part of it; ClientTimestamp is only set when timestamps take part.
type DedupeKey struct {
	BatchNo         string
	MfgDate         string
	ExpiryDate      string
	RackNo          string
	ShelfNo         string
	Movement        Movement
	ClientTimestamp *string
}

// DedupeKeyOf builds the duplicate identity for an event
func DedupeKeyOf(e *MovementEvent, includeTimestamp bool) DedupeKey {
	k := DedupeKey{
		BatchNo:    e.BatchNo,
		MfgDate:    e.MfgDate,
		ExpiryDate: e.ExpiryDate,
		RackNo:     e.RackNo,
		ShelfNo:    e.ShelfNo,
		Movement:   e.Movement,
	}
	if includeTimestamp {
		ts := e.Timestamp
		k.ClientTimestamp = &ts
	}
	return k
}

// Balance is the IN and OUT tally of a set of events
type Balance struct {
	In  int64 `json:"in_count"`
	Out int64 `json:"out_count"`
}

// Add counts one event
func (b *Balance) Add(m Movement) {
	switch m {
	case MovementIn:
		b.In++
	case MovementOut:
		b.Out++
	}
}

// Net is IN minus OUT and may be negative
func (b Balance) Net() int64 {
	return b.In - b.Out
}

// Available is the net clamped at zero for presentation
func (b Balance) Available() int64 {
	if n := b.Net(); n > 0 {
		return n
	}
	return 0
}

// CanWithdraw reports whether one more OUT is backed by stock
func (b Balance) CanWithdraw() bool {
	return b.In > b.Out
}
