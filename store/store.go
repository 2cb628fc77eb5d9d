package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dentiste/dental-api/scheduling"
	"gorm.io/gorm"
)

// ErrNotFound is the scheduling not-found sentinel so controllers match one
// value whichever layer produced it.
var ErrNotFound = scheduling.ErrNotFound

// ErrDuplicate reports a write rejected by a unique index.
var ErrDuplicate = errors.New("already exists")

// Store is the GORM backed persistence gateway. Every query is scoped to a
// practitioner.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// WithPractitionerLock runs fn inside a transaction holding
// pg_advisory_xact_lock keyed on the practitioner id. The lock is released on
// commit or rollback.
func (s *Store) WithPractitionerLock(ctx context.Context, practitionerID uint, fn func(scheduling.Gateway) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(practitionerID)).Error; err != nil {
			return fmt.Errorf("lock practitioner calendar: %w", err)
		}
		return fn(&Store{db: tx})
	})
}

// first loads one row into dest, returning (false, nil) when it is absent.
func first(q *gorm.DB, dest any) (bool, error) {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring pattern for (I)LIKE, matching the wildcard
// characters in s literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
