package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Identity provider user events
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeleted     = "user.deleted"
	EventUserRoleChanged = "user.role.changed"

	// Ledger events
	EventMovementsSynced       = "ledger.movements.synced"
	EventLedgerReplaced        = "ledger.ledger.replaced"
	EventTransferCompleted     = "ledger.transfer.completed"
	EventTransferStatusChanged = "ledger.transfer.status_changed"
)

// Exchange names
const (
	ExchangeUserEvents   = "user.events"
	ExchangeLedgerEvents = "ledger.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// UserUpsertedEvent is published by the identity provider on create and update
type UserUpsertedEvent struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	BranchID *int64 `json:"branch_id"`
}

// UserDeletedEvent is published when a user is removed
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// UserRoleChangedEvent is published when a user's role or branch changes
type UserRoleChangedEvent struct {
	UserID   string `json:"user_id"`
	NewRole  string `json:"new_role"`
	BranchID *int64 `json:"branch_id"`
}

// MovementsSyncedEvent summarises one committed ingest call
type MovementsSyncedEvent struct {
	BranchID           int64   `json:"branch_id"`
	Synced             int     `json:"synced"`
	Skipped            int     `json:"skipped"`
	EventIDs           []int64 `json:"event_ids"`
	CompletedTransfers []int64 `json:"completed_transfers,omitempty"`
	RecordedBy         string  `json:"recorded_by"`
}

// LedgerReplacedEvent is published after an administrative replace
type LedgerReplacedEvent struct {
	BranchID   *int64 `json:"branch_id,omitempty"`
	Deleted    int64  `json:"deleted"`
	Inserted   int    `json:"inserted"`
	ReplacedBy string `json:"replaced_by"`
}

// TransferStatusChangedEvent is published for every transfer transition
type TransferStatusChangedEvent struct {
	TransferID int64  `json:"transfer_id"`
	BatchNo    string `json:"batch_no"`
	Flavour    string `json:"flavour"`
	RackNo     string `json:"rack_no"`
	ShelfNo    string `json:"shelf_no"`
	BranchID   int64  `json:"branch_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
	ChangedBy  string `json:"changed_by"`
	// MovementID is set when an OUT movement completed the transfer
	MovementID *int64 `json:"movement_id,omitempty"`
}
