package domain

import (
	"fmt"
	"time"
)

// TransferStatus is the state of a transfer request
type TransferStatus string

const (
	TransferSubmitted TransferStatus = "submitted"
	TransferCompleted TransferStatus = "completed"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
)

// ParseTransferStatus validates a status name
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch st := TransferStatus(s); st {
	case TransferSubmitted, TransferCompleted, TransferRejected, TransferCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transfer status %q", s)
	}
}

// IsTerminal reports whether no further transition is allowed
func (s TransferStatus) IsTerminal() bool {
	return s != TransferSubmitted
}

// CanTransition reports whether a request may move from s to next.
// Staying in the same status is allowed and is a no-op.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	if s == next {
		return true
	}
	return s == TransferSubmitted && next.IsTerminal()
}

// TransferRequest is a user's request to relocate a batch
type TransferRequest struct {
	ID              int64          `json:"id" db:"id"`
	BatchNo         string         `json:"batch_no" db:"batch_no"`
	Flavour         string         `json:"flavour" db:"flavour"`
	ExpiryDate      string         `json:"expiry_date" db:"expiry_date"`
	RackNo          string         `json:"rack_no" db:"rack_no"`
	ShelfNo         string         `json:"shelf_no" db:"shelf_no"`
	RequestedBy     string         `json:"requested_by" db:"requested_by"`
	RequestedByName string         `json:"requested_by_name" db:"requested_by_name"`
	Status          TransferStatus `json:"status" db:"status"`
	Notes           string         `json:"notes" db:"notes"`
	BranchID        int64          `json:"branch_id" db:"branch_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Matches reports whether an OUT event resolves this request
func (t *TransferRequest) Matches(e *MovementEvent) bool {
	return t.Status == TransferSubmitted &&
		e.Movement == MovementOut &&
		t.BranchID == e.BranchID &&
		t.BatchNo == e.BatchNo &&
		t.Flavour == e.Flavour &&
		t.RackNo == e.RackNo &&
		t.ShelfNo == e.ShelfNo
}

// Branch partitions users and ledger events
type Branch struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
