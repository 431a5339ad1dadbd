package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

const minPasswordLength = 8

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("invalid user ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, user User, password string) (User, error) {
	if err := validate(user); err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.Create(ctx, user, string(hash))
}

func (s *Service) Update(ctx context.Context, id int64, user User) error {
	if id <= 0 {
		return fmt.Errorf("invalid user ID: %w", shared.ErrValidation)
	}
	if err := validate(user); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, user)
}

func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if id <= 0 {
		return fmt.Errorf("invalid user ID: %w", shared.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.SetPassword(ctx, id, string(hash))
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid user ID: %w", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func validate(u User) error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required: %w", shared.ErrValidation)
	}
	return nil
}
