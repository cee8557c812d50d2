package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UserRepository reads the local projection of known users.
type UserRepository interface {
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]int64, error)
	BulkUsernames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ResolveUsernames maps the given usernames to user ids. Unknown usernames
// are absent from the result. Matching is case significant.
func (r *UserRepo) ResolveUsernames(ctx context.Context, usernames []string) (map[string]int64, error) {
	out := map[string]int64{}
	if len(usernames) == 0 {
		return out, nil
	}

	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, username FROM users WHERE username = ANY($1)`, pq.Array(usernames))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		out[username] = id
	}
	return out, rows.Err()
}

// BulkUsernames maps the given user ids to usernames in one query.
func (r *UserRepo) BulkUsernames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, username FROM users WHERE id = ANY($1)`, pq.Int64Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		out[id] = username
	}
	return out, rows.Err()
}
