package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dentiste/dental-api/models"
)

// GroupCount is one row of a GROUP BY count.
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// CountAppointmentsBetween counts appointments starting in [from, to).
// Cancelled rows are left out when excludeCancelled is set.
func (s *Store) CountAppointmentsBetween(ctx context.Context, practitionerID uint, from, to time.Time, excludeCancelled bool) (int64, error) {
	q := s.conn(ctx).Where("practitioner_id = ? AND start_time >= ? AND start_time < ?", practitionerID, from, to)
	if excludeCancelled {
		q = q.Where("status <> ?", models.StatusCancelled)
	}
	n, err := countAppointments(q)
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

// AppointmentsByStatus groups the practitioner's appointments by status.
// Zero from/to means unbounded.
func (s *Store) AppointmentsByStatus(ctx context.Context, practitionerID uint, from, to time.Time) ([]GroupCount, error) {
	return s.groupAppointments(ctx, "status", practitionerID, from, to)
}

func (s *Store) AppointmentsByKind(ctx context.Context, practitionerID uint, from, to time.Time) ([]GroupCount, error) {
	return s.groupAppointments(ctx, "kind", practitionerID, from, to)
}

func (s *Store) groupAppointments(ctx context.Context, column string, practitionerID uint, from, to time.Time) ([]GroupCount, error) {
	q := s.conn(ctx).Model(&models.Appointment{}).Where("practitioner_id = ?", practitionerID)
	if !from.IsZero() {
		q = q.Where("start_time >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_time < ?", to)
	}

	var rows []GroupCount
	err := q.Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Order(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group appointments by %s: %w", column, err)
	}
	return rows, nil
}
