package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

// UserCacheRepository keeps the local copy of identity provider users
type UserCacheRepository struct {
	db *database.DB
}

// NewUserCacheRepository creates a new user cache repository
func NewUserCacheRepository(db *database.DB) *UserCacheRepository {
	return &UserCacheRepository{db: db}
}

// Set creates or updates a cached user
func (r *UserCacheRepository) Set(ctx context.Context, u *actor.UserCache) error {
	query := `
		INSERT INTO user_cache (user_id, name, role, branch_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET name = $2, role = $3, branch_id = $4, updated_at = NOW()
	`
	_, err := r.db.Q(ctx).ExecContext(ctx, query, u.UserID, u.Name, u.Role, u.BranchID)
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// SetRole updates only the role and branch of a cached user
func (r *UserCacheRepository) SetRole(ctx context.Context, userID, role string, branchID *int64) error {
	query := `
		INSERT INTO user_cache (user_id, role, branch_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET role = $2, branch_id = $3, updated_at = NOW()
	`
	_, err := r.db.Q(ctx).ExecContext(ctx, query, userID, role, branchID)
	return err
}

// Get gets a cached user by ID
func (r *UserCacheRepository) Get(ctx context.Context, userID string) (*actor.UserCache, error) {
	var u actor.UserCache
	query := `SELECT user_id, name, role, branch_id FROM user_cache WHERE user_id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &u, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

// Names resolves display names for a set of user ids; unknown ids are absent
func (r *UserCacheRepository) Names(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	rows, err := r.db.Q(ctx).QueryxContext(ctx,
		`SELECT user_id, name FROM user_cache WHERE user_id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// Delete deletes a cached user
func (r *UserCacheRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM user_cache WHERE user_id = $1`, userID)
	return err
}
