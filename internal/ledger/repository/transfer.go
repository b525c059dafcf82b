package repository

import (
	"context"
	"database/sql"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

const transferColumns = `id, batch_no, flavour, expiry_date, rack_no, shelf_no, requested_by,
	requested_by_name, status, notes, branch_id, created_at, updated_at`

// TransferRepository handles transfer request persistence
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a submitted request
func (r *TransferRepository) Create(ctx context.Context, t *domain.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (
			batch_no, flavour, expiry_date, rack_no, shelf_no,
			requested_by, requested_by_name, status, notes, branch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		t.BatchNo, t.Flavour, t.ExpiryDate, t.RackNo, t.ShelfNo,
		t.RequestedBy, t.RequestedByName, t.Status, t.Notes, t.BranchID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetForUpdate reads a request and row-locks it for the rest of the transaction
func (r *TransferRepository) GetForUpdate(ctx context.Context, id int64) (*domain.TransferRequest, error) {
	var t domain.TransferRequest
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1 FOR UPDATE`
	if err := r.db.Q(ctx).GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("transfer request")
		}
		return nil, err
	}
	return &t, nil
}

// SetStatus writes a new status and returns the updated row
func (r *TransferRepository) SetStatus(ctx context.Context, id int64, status domain.TransferStatus) (*domain.TransferRequest, error) {
	var t domain.TransferRequest
	query := `UPDATE transfer_requests SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + transferColumns
	if err := r.db.Q(ctx).GetContext(ctx, &t, query, id, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("transfer request")
		}
		return nil, err
	}
	return &t, nil
}

// List returns requests across all branches, newest first. Requester names
// come from the user cache and fall back to the name captured at creation.
func (r *TransferRepository) List(ctx context.Context, status *domain.TransferStatus) ([]domain.TransferRequest, error) {
	query := `
		SELECT t.id, t.batch_no, t.flavour, t.expiry_date, t.rack_no, t.shelf_no, t.requested_by,
			COALESCE(NULLIF(u.name, ''), t.requested_by_name) AS requested_by_name,
			t.status, t.notes, t.branch_id, t.created_at, t.updated_at
		FROM transfer_requests t
		LEFT JOIN user_cache u ON u.user_id = t.requested_by
		WHERE ($1::text IS NULL OR t.status = $1)
		ORDER BY t.created_at DESC, t.id DESC
	`
	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}

	requests := []domain.TransferRequest{}
	if err := r.db.Q(ctx).SelectContext(ctx, &requests, query, st); err != nil {
		return nil, err
	}
	return requests, nil
}

// CompleteMatching completes the oldest submitted request matching an OUT
// event in one statement. Rows locked by a concurrent ingest are skipped, so
// two OUT events never complete the same request. Returns nil when nothing matched.
func (r *TransferRepository) CompleteMatching(ctx context.Context, e *domain.MovementEvent) (*domain.TransferRequest, error) {
	query := `
		UPDATE transfer_requests SET status = 'completed', updated_at = NOW()
		WHERE status = 'submitted' AND id = (
			SELECT id FROM transfer_requests
			WHERE status = 'submitted' AND branch_id = $1 AND batch_no = $2
				AND flavour = $3 AND rack_no = $4 AND shelf_no = $5
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + transferColumns

	var t domain.TransferRequest
	err := r.db.Q(ctx).GetContext(ctx, &t, query, e.BranchID, e.BatchNo, e.Flavour, e.RackNo, e.ShelfNo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
