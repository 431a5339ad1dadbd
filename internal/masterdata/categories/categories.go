package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

// Category groups products for reporting.
type Category struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]Category, error) {
	query := `SELECT id, name, created_at, updated_at, deleted_at FROM categories`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at, deleted_at FROM categories WHERE id = $1 AND deleted_at IS NULL`,
		id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("category %d: %w", id, internalShared.ErrNotFound)
	}
	return c, err
}

func (s *Service) Create(ctx context.Context, name string) (Category, error) {
	if strings.TrimSpace(name) == "" {
		return Category{}, fmt.Errorf("category name is required: %w", internalShared.ErrValidation)
	}
	now := time.Now()
	c := Category{Name: name, CreatedAt: now, UpdatedAt: now}
	err := s.db.QueryRow(ctx,
		`INSERT INTO categories (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		name, now, now).Scan(&c.ID)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("category name is required: %w", internalShared.ErrValidation)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE categories SET name = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE categories SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}
