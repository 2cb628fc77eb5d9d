package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dentiste/dental-api/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := s.conn(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	ok, err := first(s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))), &u)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	ok, err := first(s.conn(ctx).Where("id = ?", id), &u)
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
