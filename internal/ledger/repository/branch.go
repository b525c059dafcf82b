package repository

import (
	"context"
	"database/sql"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

// BranchRepository handles branch persistence
type BranchRepository struct {
	db *database.DB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *database.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

// Create inserts a branch; duplicate names or codes map to a conflict
func (r *BranchRepository) Create(ctx context.Context, b *domain.Branch) error {
	query := `INSERT INTO branches (name, code) VALUES ($1, $2) RETURNING id, created_at`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, b.Name, b.Code).Scan(&b.ID, &b.CreatedAt)
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a branch by ID
func (r *BranchRepository) GetByID(ctx context.Context, id int64) (*domain.Branch, error) {
	var b domain.Branch
	query := `SELECT id, name, code, created_at FROM branches WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("branch")
		}
		return nil, err
	}
	return &b, nil
}

// List returns every branch ordered by id
func (r *BranchRepository) List(ctx context.Context) ([]domain.Branch, error) {
	branches := []domain.Branch{}
	query := `SELECT id, name, code, created_at FROM branches ORDER BY id`
	if err := r.db.Q(ctx).SelectContext(ctx, &branches, query); err != nil {
		return nil, err
	}
	return branches, nil
}

// First returns the lowest-id branch, the default target for unscoped ingest
func (r *BranchRepository) First(ctx context.Context) (*domain.Branch, error) {
	var b domain.Branch
	query := `SELECT id, name, code, created_at FROM branches ORDER BY id LIMIT 1`
	if err := r.db.Q(ctx).GetContext(ctx, &b, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("branch")
		}
		return nil, err
	}
	return &b, nil
}
