package service

import (
	"context"
	"strings"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// CreateBranchInput names a new branch
type CreateBranchInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,max=20,alphanum"`
}

// BranchService manages branches. Branches are never deleted.
type BranchService struct {
	branches BranchStore
	logger   *logger.Logger
}

// NewBranchService creates a new branch service
func NewBranchService(branches BranchStore, log *logger.Logger) *BranchService {
	return &BranchService{branches: branches, logger: log.WithComponent("branches")}
}

// Create adds a branch; the code is stored upper-case and must be unique
func (s *BranchService) Create(ctx context.Context, a *actor.Actor, in *CreateBranchInput) (*domain.Branch, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.IsSuperAdmin() {
		return nil, errors.Forbidden("superadmin role required")
	}

	b := &domain.Branch{
		Name: strings.TrimSpace(in.Name),
		Code: strings.ToUpper(strings.TrimSpace(in.Code)),
	}
	if err := s.branches.Create(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("branch_id", b.ID).Str("code", b.Code).Msg("branch created")
	return b, nil
}

// List returns every branch
func (s *BranchService) List(ctx context.Context, a *actor.Actor) ([]domain.Branch, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return s.branches.List(ctx)
}

// Get returns one branch
func (s *BranchService) Get(ctx context.Context, a *actor.Actor, id int64) (*domain.Branch, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return s.branches.GetByID(ctx, id)
}
