package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// Repository loads accounts for authentication.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (User, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) FindByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, username, email, password_hash, permissions, is_active, created_at, updated_at
		FROM users
		WHERE username = $1 AND deleted_at IS NULL`,
		username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Permissions,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", username, shared.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: find user: %w", err)
	}
	return u, nil
}
