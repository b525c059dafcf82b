package repository

import (
	"context"
	"fmt"

	"github.com/stockledger/stockledger-backend/pkg/database"
)

const (
	DefaultBranchName = "Main Branch"
	DefaultBranchCode = "MAIN"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS branches (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT branches_name_key UNIQUE (name),
		CONSTRAINT branches_code_key UNIQUE (code)
	)`,
	`CREATE TABLE IF NOT EXISTS user_cache (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		branch_id BIGINT REFERENCES branches(id),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS movement_events (
		id BIGSERIAL PRIMARY KEY,
		client_timestamp TEXT NOT NULL DEFAULT '',
		batch_no TEXT NOT NULL,
		mfg_date TEXT NOT NULL DEFAULT '',
		expiry_date TEXT NOT NULL DEFAULT '',
		flavour TEXT NOT NULL DEFAULT '',
		rack_no TEXT NOT NULL DEFAULT '',
		shelf_no TEXT NOT NULL DEFAULT '',
		movement TEXT NOT NULL DEFAULT 'IN',
		recorded_by TEXT NOT NULL DEFAULT '',
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT movement_events_movement_valid CHECK (movement IN ('IN', 'OUT'))
	)`,
	`CREATE INDEX IF NOT EXISTS movement_events_location_idx
		ON movement_events (branch_id, batch_no, flavour, rack_no, shelf_no)`,
	`CREATE INDEX IF NOT EXISTS movement_events_synced_at_idx ON movement_events (synced_at)`,
	`CREATE TABLE IF NOT EXISTS transfer_requests (
		id BIGSERIAL PRIMARY KEY,
		batch_no TEXT NOT NULL,
		flavour TEXT NOT NULL,
		expiry_date TEXT NOT NULL DEFAULT '',
		rack_no TEXT NOT NULL,
		shelf_no TEXT NOT NULL,
		requested_by TEXT NOT NULL,
		requested_by_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'submitted',
		notes TEXT NOT NULL DEFAULT '',
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT transfer_requests_status_valid CHECK (status IN ('submitted', 'completed', 'rejected', 'cancelled'))
	)`,
	`CREATE INDEX IF NOT EXISTS transfer_requests_open_idx
		ON transfer_requests (branch_id, batch_no, flavour, rack_no, shelf_no) WHERE status = 'submitted'`,
	`INSERT INTO branches (name, code)
		SELECT '` + DefaultBranchName + `', '` + DefaultBranchCode + `'
		WHERE NOT EXISTS (SELECT 1 FROM branches)`,
}

// Bootstrap creates the ledger tables when missing and seeds the default
// branch into an empty branch table. Safe to run on every start.
func Bootstrap(ctx context.Context, db *database.DB) error {
	return db.WithinTx(ctx, func(ctx context.Context) error {
		for i, stmt := range schemaStatements {
			if _, err := db.Q(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
