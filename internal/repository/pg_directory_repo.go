package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streampulse/notify/internal/domain"
)

type pgDirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewPgDirectoryRepository returns a read-only DirectoryRepository over the
// CRUD layer's users and channels tables.
func NewPgDirectoryRepository(pool *pgxpool.Pool) DirectoryRepository {
	return &pgDirectoryRepository{pool: pool}
}

func (r *pgDirectoryRepository) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, display_name, slug, avatar_key
		FROM users WHERE id = $1`, id)

	var u UserProfile
	err := row.Scan(&u.ID, &u.DisplayName, &u.Slug, &u.AvatarKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *pgDirectoryRepository) GetChannel(ctx context.Context, id string) (*ChannelProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, slug, avatar_key, banner_key
		FROM channels WHERE id = $1`, id)

	var c ChannelProfile
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Slug, &c.AvatarKey, &c.BannerKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
