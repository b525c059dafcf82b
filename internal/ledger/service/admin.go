package service

import (
	"context"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// AddEventInput is a manually entered ledger row
type AddEventInput struct {
	Candidate
	BranchID *int64 `json:"branch_id"`
}

// UpdateEventInput corrects a ledger row; omitted fields are kept
type UpdateEventInput struct {
	BatchNo  *string `json:"batch_no" validate:"omitempty,min=1,max=64"`
	RackNo   *string `json:"rack_no" validate:"omitempty,max=64"`
	ShelfNo  *string `json:"shelf_no" validate:"omitempty,max=64"`
	Movement *string `json:"movement" validate:"omitempty,oneof=IN OUT in out"`
}

// EventFilter narrows the administrative event listing
type EventFilter struct {
	BranchID *int64
	Flavour  string
	RackNo   string
	Since    *time.Time
	Until    *time.Time
}

// LedgerAdminService performs out-of-band corrections. These edits bypass
// the duplicate and stock checks, so derived views reflect them on the next read.
type LedgerAdminService struct {
	movements MovementStore
	branches  BranchStore
	now       Clock
	logger    *logger.Logger
}

// NewLedgerAdminService creates a new ledger admin service
func NewLedgerAdminService(movements MovementStore, branches BranchStore, log *logger.Logger) *LedgerAdminService {
	return &LedgerAdminService{
		movements: movements,
		branches:  branches,
		now:       time.Now,
		logger:    log.WithComponent("ledger-admin"),
	}
}

// WithClock replaces the clock used to stamp added events
func (s *LedgerAdminService) WithClock(c Clock) *LedgerAdminService {
	s.now = c
	return s
}

// AddEvent appends one row stamped with the server's display time
func (s *LedgerAdminService) AddEvent(ctx context.Context, a *actor.Actor, in *AddEventInput) (*domain.MovementEvent, error) {
	scope, err := adminScope(a)
	if err != nil {
		return nil, err
	}
	target := in.BranchID
	if scope != nil {
		if target != nil && *target != *scope {
			return nil, errors.Forbidden("cannot write to another branch")
		}
		target = scope
	}

	events, err := toEvents("event", []Candidate{in.Candidate})
	if err != nil {
		return nil, err
	}
	branchID, err := resolveWriteBranch(ctx, s.branches, a, target)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &events[0]
	e.Timestamp = now.Format(DisplayTimestampLayout)
	e.BranchID = branchID
	e.RecordedBy = a.ID
	e.SyncedAt = now.UTC()
	if err := s.movements.Append(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("event_id", e.ID).Str("user_id", a.ID).Msg("ledger event added")
	return e, nil
}

// UpdateEvent corrects batch, rack, shelf or movement of one row
func (s *LedgerAdminService) UpdateEvent(ctx context.Context, a *actor.Actor, id int64, in *UpdateEventInput) (*domain.MovementEvent, error) {
	scope, err := adminScope(a)
	if err != nil {
		return nil, err
	}

	patch := repository.MovementPatch{BatchNo: in.BatchNo, RackNo: in.RackNo, ShelfNo: in.ShelfNo}
	if in.Movement != nil {
		m, err := domain.ParseMovement(*in.Movement)
		if err != nil {
			return nil, errors.Validation(map[string]string{"movement": "must be one of: IN OUT"})
		}
		patch.Movement = &m
	}

	e, err := s.movements.Update(ctx, id, scope, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("event_id", id).Str("user_id", a.ID).Msg("ledger event updated")
	return e, nil
}

// DeleteEvent removes one row
func (s *LedgerAdminService) DeleteEvent(ctx context.Context, a *actor.Actor, id int64) error {
	scope, err := adminScope(a)
	if err != nil {
		return err
	}
	if err := s.movements.Delete(ctx, id, scope); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Str("user_id", a.ID).Msg("ledger event deleted")
	return nil
}

// ListEvents returns raw rows in ledger order
func (s *LedgerAdminService) ListEvents(ctx context.Context, a *actor.Actor, f EventFilter) ([]domain.MovementEvent, error) {
	scope, err := adminScope(a)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		if f.BranchID != nil && *f.BranchID != *scope {
			return nil, errors.Forbidden("cannot read another branch")
		}
		f.BranchID = scope
	}
	return s.movements.List(ctx, repository.MovementFilter{
		BranchID: f.BranchID,
		Flavour:  f.Flavour,
		RackNo:   f.RackNo,
		Since:    f.Since,
		Until:    f.Until,
	})
}
