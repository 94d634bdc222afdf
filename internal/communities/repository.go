package communities

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborchat/harbor/internal/shared"
)

// Repository defines persistence operations for communities.
type Repository interface {
	Create(ctx context.Context, community Community) error
	ByID(ctx context.Context, id string) (*Community, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create inserts a community record.
func (r *PGRepository) Create(ctx context.Context, community Community) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO communities (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, now())`,
		community.ID, community.Name, community.OwnerID,
	)
	return err
}

// ByID fetches a community by id.
func (r *PGRepository) ByID(ctx context.Context, id string) (*Community, error) {
	var c Community
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at FROM communities WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Delete removes a community record.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM communities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
