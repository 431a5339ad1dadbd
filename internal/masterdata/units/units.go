package units

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

// Unit is a unit of measure (pcs, box, kg).
type Unit struct {
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

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]Unit, error) {
	query := `SELECT id, name, created_at, updated_at, deleted_at FROM units`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *Service) Get(ctx context.Context, id int64) (Unit, error) {
	var u Unit
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at, deleted_at FROM units WHERE id = $1 AND deleted_at IS NULL`,
		id).Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Unit{}, fmt.Errorf("unit %d: %w", id, internalShared.ErrNotFound)
	}
	return u, err
}

func (s *Service) Create(ctx context.Context, name string) (Unit, error) {
	if strings.TrimSpace(name) == "" {
		return Unit{}, fmt.Errorf("unit name is required: %w", internalShared.ErrValidation)
	}
	now := time.Now()
	u := Unit{Name: name, CreatedAt: now, UpdatedAt: now}
	err := s.db.QueryRow(ctx,
		`INSERT INTO units (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		name, now, now).Scan(&u.ID)
	if err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (s *Service) Update(ctx context.Context, id int64, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("unit name is required: %w", internalShared.ErrValidation)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE units SET name = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE units SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}
