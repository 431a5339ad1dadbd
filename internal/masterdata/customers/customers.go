package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ims/atlas-ims/internal/masterdata/shared"
	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

// Customer is the counterparty of outbound stock issues.
type Customer struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if !filters.IncludeDeleted {
		where += ` AND deleted_at IS NULL`
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, code, name, email, phone, created_at, updated_at, deleted_at FROM customers` + where
	query += ` ORDER BY ` + shared.SortOrder(filters.SortBy, filters.SortDir, "code", "name", "created_at")
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := s.db.QueryRow(ctx,
		`SELECT id, code, name, email, phone, created_at, updated_at, deleted_at FROM customers WHERE id = $1 AND deleted_at IS NULL`,
		id).Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %d: %w", id, internalShared.ErrNotFound)
	}
	return c, err
}

func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	if err := validate(c); err != nil {
		return Customer{}, err
	}
	now := time.Now()
	err := s.db.QueryRow(ctx,
		`INSERT INTO customers (code, name, email, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Code, c.Name, c.Email, c.Phone, now, now).Scan(&c.ID)
	if err != nil {
		return Customer{}, err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, c Customer) error {
	if err := validate(c); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE customers SET code = $1, name = $2, email = $3, phone = $4, updated_at = now() WHERE id = $5 AND deleted_at IS NULL`,
		c.Code, c.Name, c.Email, c.Phone, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE customers SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}

func validate(c Customer) error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("customer code is required: %w", internalShared.ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("customer name is required: %w", internalShared.ErrValidation)
	}
	return nil
}
