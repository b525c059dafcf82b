package service

import (
	"context"
	"strings"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// CreateTransferInput is a request to relocate a batch
type CreateTransferInput struct {
	BranchID   *int64 `json:"branch_id"`
	BatchNo    string `json:"batch_no" validate:"required,max=64"`
	Flavour    string `json:"flavour" validate:"required,max=100"`
	ExpiryDate string `json:"expiry_date" validate:"max=32"`
	RackNo     string `json:"rack_no" validate:"required,max=64"`
	ShelfNo    string `json:"shelf_no" validate:"max=64"`
	Notes      string `json:"notes" validate:"max=1000"`
}

// UpdateTransferStatusInput is an administrative status override
type UpdateTransferStatusInput struct {
	Status string `json:"status" validate:"required,oneof=submitted completed rejected cancelled"`
}

// TransferService runs the transfer request workflow
type TransferService struct {
	tx        TxRunner
	transfers TransferStore
	branches  BranchStore
	users     UserDirectory
	publisher Notifier
	logger    *logger.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	tx TxRunner,
	transfers TransferStore,
	branches BranchStore,
	users UserDirectory,
	publisher Notifier,
	log *logger.Logger,
) *TransferService {
	return &TransferService{
		tx:        tx,
		transfers: transfers,
		branches:  branches,
		users:     users,
		publisher: notifierOrNoop(publisher),
		logger:    log.WithComponent("transfers"),
	}
}

// Create records a submitted request in the actor's branch
func (s *TransferService) Create(ctx context.Context, a *actor.Actor, in *CreateTransferInput) (*domain.TransferRequest, error) {
	branchID, err := resolveWriteBranch(ctx, s.branches, a, in.BranchID)
	if err != nil {
		return nil, err
	}

	t := &domain.TransferRequest{
		BatchNo:         strings.TrimSpace(in.BatchNo),
		Flavour:         strings.TrimSpace(in.Flavour),
		ExpiryDate:      strings.TrimSpace(in.ExpiryDate),
		RackNo:          strings.TrimSpace(in.RackNo),
		ShelfNo:         strings.TrimSpace(in.ShelfNo),
		RequestedBy:     a.ID,
		RequestedByName: s.requesterName(ctx, a),
		Status:          domain.TransferSubmitted,
		Notes:           strings.TrimSpace(in.Notes),
		BranchID:        branchID,
	}
	if err := s.transfers.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("transfer_id", t.ID).
		Str("batch_no", t.BatchNo).
		Str("user_id", a.ID).
		Msg("transfer request created")
	return t, nil
}

// requesterName prefers the token's name, then the user cache, then the id
func (s *TransferService) requesterName(ctx context.Context, a *actor.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	if u, err := s.users.Get(ctx, a.ID); err == nil && u.Name != "" {
		return u.Name
	}
	return a.ID
}

// List returns requests from every branch with requester names
func (s *TransferService) List(ctx context.Context, a *actor.Actor, status *domain.TransferStatus) ([]domain.TransferRequest, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return s.transfers.List(ctx, status)
}

// UpdateStatus applies an administrative override. Setting the current
// status again is a no-op; leaving a terminal status is a conflict.
func (s *TransferService) UpdateStatus(ctx context.Context, a *actor.Actor, id int64, next domain.TransferStatus) (*domain.TransferRequest, error) {
	if _, err := adminScope(a); err != nil {
		return nil, err
	}

	var (
		before  domain.TransferStatus
		updated *domain.TransferRequest
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !a.CanAccessBranch(current.BranchID) {
			return errors.Forbidden("cannot manage another branch's transfers")
		}
		before = current.Status
		if current.Status == next {
			updated = current
			return nil
		}
		if !current.Status.CanTransition(next) {
			return errors.Conflict("transfer request is already " + string(current.Status))
		}
		updated, err = s.transfers.SetStatus(ctx, id, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	if before == next {
		return updated, nil
	}

	s.logger.Info().
		Int64("transfer_id", id).
		Str("old_status", string(before)).
		Str("new_status", string(next)).
		Str("user_id", a.ID).
		Msg("transfer status changed")

	s.publisher.PublishTransferStatusChanged(ctx, &messaging.TransferStatusChangedEvent{
		TransferID: updated.ID,
		BatchNo:    updated.BatchNo,
		Flavour:    updated.Flavour,
		RackNo:     updated.RackNo,
		ShelfNo:    updated.ShelfNo,
		BranchID:   updated.BranchID,
		OldStatus:  string(before),
		NewStatus:  string(next),
		ChangedBy:  a.ID,
	})
	return updated, nil
}
