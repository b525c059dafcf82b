package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

const (
	movementColumns = `id, client_timestamp, batch_no, mfg_date, expiry_date, flavour,
		rack_no, shelf_no, movement, recorded_by, branch_id, synced_at`

	// bulkInsertChunk keeps named batch inserts well under the 65535 bind parameter limit
	bulkInsertChunk = 500
)

// MovementFilter narrows a ledger read. Zero values mean no restriction.
type MovementFilter struct {
	BranchID *int64
	Flavour  string
	RackNo   string
	Since    *time.Time
	Until    *time.Time
}

// MovementPatch is an administrative correction; nil fields are left alone
type MovementPatch struct {
	BatchNo  *string
	RackNo   *string
	ShelfNo  *string
	Movement *domain.Movement
}

// MovementRepository is the ledger store
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Append inserts one event and fills in its id and ingest time
func (r *MovementRepository) Append(ctx context.Context, e *domain.MovementEvent) error {
	query := `
		INSERT INTO movement_events (
			client_timestamp, batch_no, mfg_date, expiry_date, flavour,
			rack_no, shelf_no, movement, recorded_by, branch_id, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	if e.SyncedAt.IsZero() {
		e.SyncedAt = time.Now().UTC()
	}
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		e.Timestamp, e.BatchNo, e.MfgDate, e.ExpiryDate, e.Flavour,
		e.RackNo, e.ShelfNo, e.Movement, e.RecordedBy, e.BranchID, e.SyncedAt,
	).Scan(&e.ID)
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// AppendMany bulk inserts trusted events without reading back ids
func (r *MovementRepository) AppendMany(ctx context.Context, events []domain.MovementEvent) error {
	query := `
		INSERT INTO movement_events (
			client_timestamp, batch_no, mfg_date, expiry_date, flavour,
			rack_no, shelf_no, movement, recorded_by, branch_id, synced_at
		) VALUES (
			:client_timestamp, :batch_no, :mfg_date, :expiry_date, :flavour,
			:rack_no, :shelf_no, :movement, :recorded_by, :branch_id, :synced_at
		)
	`
	for start := 0; start < len(events); start += bulkInsertChunk {
		end := min(start+bulkInsertChunk, len(events))
		if _, err := r.db.Q(ctx).NamedExecContext(ctx, query, events[start:end]); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return fmt.Errorf("bulk insert rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// GetByID gets an event by ID
func (r *MovementRepository) GetByID(ctx context.Context, id int64) (*domain.MovementEvent, error) {
	var e domain.MovementEvent
	query := `SELECT ` + movementColumns + ` FROM movement_events WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &e, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("movement event")
		}
		return nil, err
	}
	return &e, nil
}

// List reads events matching the filter in ledger order
func (r *MovementRepository) List(ctx context.Context, f MovementFilter) ([]domain.MovementEvent, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.BranchID != nil {
		add("branch_id = $%d", *f.BranchID)
	}
	if f.Flavour != "" {
		add("flavour = $%d", f.Flavour)
	}
	if f.RackNo != "" {
		add("rack_no = $%d", f.RackNo)
	}
	if f.Since != nil {
		add("synced_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("synced_at < $%d", *f.Until)
	}

	query := `SELECT ` + movementColumns + ` FROM movement_events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	events := []domain.MovementEvent{}
	if err := r.db.Q(ctx).SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

// ExistsDuplicate reports whether the branch already holds an event with the same identity
func (r *MovementRepository) ExistsDuplicate(ctx context.Context, branchID int64, k domain.DedupeKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM movement_events
			WHERE branch_id = $1 AND batch_no = $2 AND mfg_date = $3 AND expiry_date = $4
				AND rack_no = $5 AND shelf_no = $6 AND movement = $7
				AND ($8::text IS NULL OR client_timestamp = $8)
		)
	`
	var exists bool
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		branchID, k.BatchNo, k.MfgDate, k.ExpiryDate, k.RackNo, k.ShelfNo, k.Movement, k.ClientTimestamp,
	).Scan(&exists)
	return exists, err
}

// CountBalance tallies IN and OUT for one location within a branch
func (r *MovementRepository) CountBalance(ctx context.Context, branchID int64, k domain.LocationKey) (domain.Balance, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE movement = 'IN') AS in_count,
			COUNT(*) FILTER (WHERE movement = 'OUT') AS out_count
		FROM movement_events
		WHERE branch_id = $1 AND batch_no = $2 AND flavour = $3 AND mfg_date = $4
			AND expiry_date = $5 AND rack_no = $6 AND shelf_no = $7
	`
	var b domain.Balance
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		branchID, k.BatchNo, k.Flavour, k.MfgDate, k.ExpiryDate, k.RackNo, k.ShelfNo,
	).Scan(&b.In, &b.Out)
	return b, err
}

// Update applies an administrative correction. A non-nil branchScope limits
// the edit to that branch; events elsewhere read as not found.
func (r *MovementRepository) Update(ctx context.Context, id int64, branchScope *int64, p MovementPatch) (*domain.MovementEvent, error) {
	query := `
		UPDATE movement_events SET
			batch_no = COALESCE($3, batch_no),
			rack_no = COALESCE($4, rack_no),
			shelf_no = COALESCE($5, shelf_no),
			movement = COALESCE($6, movement)
		WHERE id = $1 AND ($2::bigint IS NULL OR branch_id = $2)
		RETURNING ` + movementColumns

	var movement *string
	if p.Movement != nil {
		m := string(*p.Movement)
		movement = &m
	}

	var e domain.MovementEvent
	err := r.db.Q(ctx).GetContext(ctx, &e, query, id, branchScope, p.BatchNo, p.RackNo, p.ShelfNo, movement)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("movement event")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &e, nil
}

// Delete removes one event, scoped like Update
func (r *MovementRepository) Delete(ctx context.Context, id int64, branchScope *int64) error {
	query := `DELETE FROM movement_events WHERE id = $1 AND ($2::bigint IS NULL OR branch_id = $2)`
	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, branchScope)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("movement event")
	}
	return nil
}

// DeleteAll clears the ledger for a branch, or entirely when branchScope is nil
func (r *MovementRepository) DeleteAll(ctx context.Context, branchScope *int64) (int64, error) {
	query := `DELETE FROM movement_events WHERE ($1::bigint IS NULL OR branch_id = $1)`
	result, err := r.db.Q(ctx).ExecContext(ctx, query, branchScope)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
