package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// DisplayTimestampLayout is the timestamp written for server-created events
const DisplayTimestampLayout = "02/01/2006, 03:04:05 PM"

// Candidate is one client-recorded event awaiting ingest
type Candidate struct {
	Timestamp  string `json:"timestamp" validate:"max=64"`
	BatchNo    string `json:"batch_no" validate:"required,max=64"`
	MfgDate    string `json:"mfg_date" validate:"max=32"`
	ExpiryDate string `json:"expiry_date" validate:"max=32"`
	Flavour    string `json:"flavour" validate:"max=100"`
	RackNo     string `json:"rack_no" validate:"max=64"`
	ShelfNo    string `json:"shelf_no" validate:"max=64"`
	Movement   string `json:"movement" validate:"omitempty,oneof=IN OUT in out"`
}

// SyncRequest is an incremental ingest call
type SyncRequest struct {
	BranchID *int64      `json:"branch_id"`
	Events   []Candidate `json:"events" validate:"required,min=1,max=5000,dive"`
}

// SyncResult reports what an ingest call applied
type SyncResult struct {
	BranchID           int64   `json:"branch_id"`
	Synced             int     `json:"synced"`
	Skipped            int     `json:"skipped"`
	CompletedTransfers []int64 `json:"completed_transfers"`
}

// ReplaceRequest swaps the ledger contents for a trusted bulk load
type ReplaceRequest struct {
	BranchID *int64      `json:"branch_id"`
	Events   []Candidate `json:"events" validate:"max=50000,dive"`
}

// ReplaceResult reports an administrative replace
type ReplaceResult struct {
	BranchID *int64 `json:"branch_id,omitempty"`
	Deleted  int64  `json:"deleted"`
	Inserted int    `json:"inserted"`
}

// ImportRequest appends trusted rows, stamped with the server time
type ImportRequest struct {
	BranchID *int64      `json:"branch_id"`
	Rows     []Candidate `json:"rows" validate:"required,min=1,max=50000,dive"`
}

// ImportResult reports a bulk import
type ImportResult struct {
	BranchID int64 `json:"branch_id"`
	Imported int   `json:"imported"`
}

// completion pairs an auto-completed transfer with the OUT event that resolved it
type completion struct {
	transfer   *domain.TransferRequest
	movementID int64
}

// IngestService applies client-recorded movements to the ledger
type IngestService struct {
	tx        TxRunner
	movements MovementStore
	transfers TransferStore
	branches  BranchStore
	publisher Notifier
	cfg       config.LedgerConfig
	now       Clock
	logger    *logger.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	tx TxRunner,
	movements MovementStore,
	transfers TransferStore,
	branches BranchStore,
	publisher Notifier,
	cfg config.LedgerConfig,
	log *logger.Logger,
) *IngestService {
	return &IngestService{
		tx:        tx,
		movements: movements,
		transfers: transfers,
		branches:  branches,
		publisher: notifierOrNoop(publisher),
		cfg:       cfg,
		now:       time.Now,
		logger:    log.WithComponent("ingest"),
	}
}

// WithClock replaces the clock used for ingest times
func (s *IngestService) WithClock(c Clock) *IngestService {
	s.now = c
	return s
}

// Sync ingests candidates in order inside one transaction. Replayed events
// are skipped. An OUT against a location with no available stock rejects the
// whole call and nothing from it is kept.
func (s *IngestService) Sync(ctx context.Context, a *actor.Actor, req *SyncRequest) (*SyncResult, error) {
	events, err := toEvents("events", req.Events)
	if err != nil {
		return nil, err
	}

	branchID, err := resolveWriteBranch(ctx, s.branches, a, req.BranchID)
	if err != nil {
		return nil, err
	}

	syncedAt := s.now().UTC()
	keys := make([]string, len(events))
	for i := range events {
		events[i].BranchID = branchID
		events[i].RecordedBy = a.ID
		events[i].SyncedAt = syncedAt
		keys[i] = events[i].LocationKey().LockName(branchID)
	}

	result := &SyncResult{BranchID: branchID, CompletedTransfers: []int64{}}
	var (
		appended  []int64
		completed []completion
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tx.LockKeys(ctx, keys); err != nil {
			return err
		}

		for i := range events {
			e := &events[i]

			dup, err := s.movements.ExistsDuplicate(ctx, branchID, domain.DedupeKeyOf(e, s.cfg.DedupeIncludesTimestamp))
			if err != nil {
				return err
			}
			if dup {
				result.Skipped++
				continue
			}

			if e.Movement == domain.MovementOut {
				bal, err := s.movements.CountBalance(ctx, branchID, e.LocationKey())
				if err != nil {
					return err
				}
				if !bal.CanWithdraw() {
					return errors.InsufficientStock(e.BatchNo, e.Flavour, e.RackNo, e.ShelfNo, bal.In, bal.Out)
				}
			}

			if err := s.movements.Append(ctx, e); err != nil {
				return err
			}
			result.Synced++
			appended = append(appended, e.ID)

			if e.Movement == domain.MovementOut {
				t, err := s.transfers.CompleteMatching(ctx, e)
				if err != nil {
					return err
				}
				if t != nil {
					completed = append(completed, completion{transfer: t, movementID: e.ID})
					result.CompletedTransfers = append(result.CompletedTransfers, t.ID)
				}
			}
		}
		return nil
	})
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.Code == "INSUFFICIENT_STOCK" {
			s.logger.Warn().
				Str("user_id", a.ID).
				Int64("branch_id", branchID).
				Interface("details", appErr.Details).
				Msg("ingest rejected for insufficient stock")
		}
		return nil, err
	}

	s.logger.Info().
		Str("user_id", a.ID).
		Int64("branch_id", branchID).
		Int("synced", result.Synced).
		Int("skipped", result.Skipped).
		Int("completed_transfers", len(completed)).
		Msg("movements synced")

	s.publisher.PublishMovementsSynced(ctx, &messaging.MovementsSyncedEvent{
		BranchID:           branchID,
		Synced:             result.Synced,
		Skipped:            result.Skipped,
		EventIDs:           appended,
		CompletedTransfers: result.CompletedTransfers,
		RecordedBy:         a.ID,
	})
	for _, c := range completed {
		t, movementID := c.transfer, c.movementID
		s.publisher.PublishTransferStatusChanged(ctx, &messaging.TransferStatusChangedEvent{
			TransferID: t.ID,
			BatchNo:    t.BatchNo,
			Flavour:    t.Flavour,
			RackNo:     t.RackNo,
			ShelfNo:    t.ShelfNo,
			BranchID:   t.BranchID,
			OldStatus:  string(domain.TransferSubmitted),
			NewStatus:  string(t.Status),
			ChangedBy:  a.ID,
			MovementID: &movementID,
		})
	}

	return result, nil
}

// Replace deletes the ledger in scope and loads the given events without
// duplicate or stock checks. Admins replace their own branch; a superadmin
// with no branch replaces the whole ledger and loads into the default branch.
func (s *IngestService) Replace(ctx context.Context, a *actor.Actor, req *ReplaceRequest) (*ReplaceResult, error) {
	scope, err := adminScope(a)
	if err != nil {
		return nil, err
	}
	if scope != nil && req.BranchID != nil && *req.BranchID != *scope {
		return nil, errors.Forbidden("cannot replace another branch")
	}
	if scope == nil {
		scope = req.BranchID
	}

	events, err := toEvents("events", req.Events)
	if err != nil {
		return nil, err
	}

	target, err := resolveWriteBranch(ctx, s.branches, a, scope)
	if err != nil {
		return nil, err
	}
	syncedAt := s.now().UTC()
	for i := range events {
		events[i].BranchID = target
		events[i].RecordedBy = a.ID
		events[i].SyncedAt = syncedAt
	}

	result := &ReplaceResult{BranchID: scope, Inserted: len(events)}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deleted, err := s.movements.DeleteAll(ctx, scope)
		if err != nil {
			return err
		}
		result.Deleted = deleted
		return s.movements.AppendMany(ctx, events)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", a.ID).
		Int64("deleted", result.Deleted).
		Int("inserted", result.Inserted).
		Msg("ledger replaced")

	s.publisher.PublishLedgerReplaced(ctx, &messaging.LedgerReplacedEvent{
		BranchID:   scope,
		Deleted:    result.Deleted,
		Inserted:   result.Inserted,
		ReplacedBy: a.ID,
	})
	return result, nil
}

// Import appends trusted rows stamped with the current server time. Rows are
// not checked for duplicates or stock.
func (s *IngestService) Import(ctx context.Context, a *actor.Actor, req *ImportRequest) (*ImportResult, error) {
	if _, err := adminScope(a); err != nil {
		return nil, err
	}

	events, err := toEvents("rows", req.Rows)
	if err != nil {
		return nil, err
	}

	branchID, err := resolveWriteBranch(ctx, s.branches, a, req.BranchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stamp := now.Format(DisplayTimestampLayout)
	for i := range events {
		events[i].Timestamp = stamp
		events[i].BranchID = branchID
		events[i].RecordedBy = a.ID
		events[i].SyncedAt = now.UTC()
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.movements.AppendMany(ctx, events)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", a.ID).
		Int64("branch_id", branchID).
		Int("imported", len(events)).
		Msg("movements imported")

	s.publisher.PublishMovementsSynced(ctx, &messaging.MovementsSyncedEvent{
		BranchID:   branchID,
		Synced:     len(events),
		RecordedBy: a.ID,
	})
	return &ImportResult{BranchID: branchID, Imported: len(events)}, nil
}

// toEvents converts candidates, collecting every field problem before
// returning so the caller sees them all at once
func toEvents(field string, candidates []Candidate) ([]domain.MovementEvent, error) {
	events := make([]domain.MovementEvent, len(candidates))
	details := make(map[string]string)
	for i, c := range candidates {
		movement, err := domain.ParseMovement(c.Movement)
		if err != nil {
			details[fmt.Sprintf("%s[%d].movement", field, i)] = "must be one of: IN OUT"
		}
		e := domain.MovementEvent{
			Timestamp:  c.Timestamp,
			BatchNo:    c.BatchNo,
			MfgDate:    c.MfgDate,
			ExpiryDate: c.ExpiryDate,
			Flavour:    c.Flavour,
			RackNo:     c.RackNo,
			ShelfNo:    c.ShelfNo,
			Movement:   movement,
		}
		e.Normalize()
		if strings.TrimSpace(e.BatchNo) == "" {
			details[fmt.Sprintf("%s[%d].batch_no", field, i)] = "This field is required"
		}
		events[i] = e
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}
	return events, nil
}
