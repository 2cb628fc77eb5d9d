package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dentiste/dental-api/models"
	"gorm.io/gorm"
)

// AppointmentFilter narrows ListAppointments. Zero values are ignored.
type AppointmentFilter struct {
	From      time.Time
	To        time.Time
	Status    models.AppointmentStatus
	Kind      string
	PatientID uint
}

func (s *Store) FindAppointmentsByPractitionerAndDay(ctx context.Context, practitionerID uint, dayStart, dayEnd time.Time, excludeID uint) ([]models.Appointment, error) {
	q := s.conn(ctx).
		Preload("Patient").
		Where("practitioner_id = ? AND start_time >= ? AND start_time < ? AND status <> ?",
			practitionerID, dayStart, dayEnd, models.StatusCancelled)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var appointments []models.Appointment
	if err := q.Order("start_time ASC").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("find day appointments: %w", err)
	}
	return appointments, nil
}

func (s *Store) FindAppointment(ctx context.Context, id, practitionerID uint) (*models.Appointment, error) {
	var a models.Appointment
	ok, err := first(s.conn(ctx).Preload("Patient").
		Where("id = ? AND practitioner_id = ?", id, practitionerID), &a)
	if err != nil {
		return nil, fmt.Errorf("find appointment %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if err := s.conn(ctx).Omit("Patient").Create(a).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *Store) UpdateAppointment(ctx context.Context, a *models.Appointment, fields map[string]any) error {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND practitioner_id = ?", a.ID, a.PractitionerID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update appointment %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	ApplyAppointmentFields(a, fields)
	return nil
}

// ApplyAppointmentFields mirrors a successful column update onto the loaded
// struct so callers can render it without a second read.
func ApplyAppointmentFields(a *models.Appointment, fields map[string]any) {
	for col, v := range fields {
		switch col {
		case "status":
			a.Status = v.(models.AppointmentStatus)
		case "start_time":
			a.StartTime = v.(time.Time)
		case "patient_id":
			id := v.(uint)
			if a.Patient != nil && a.Patient.ID != id {
				a.Patient = nil
			}
			a.PatientID = id
		case "kind":
			a.Kind = v.(string)
		case "notes":
			a.Notes = v.(string)
		case "reminder_sent_at":
			if t, ok := v.(time.Time); ok {
				a.ReminderSentAt = &t
			} else {
				a.ReminderSentAt = nil
			}
		}
	}
}

func (s *Store) DeleteAppointment(ctx context.Context, a *models.Appointment) error {
	res := s.conn(ctx).Where("practitioner_id = ?", a.PractitionerID).Delete(&models.Appointment{}, a.ID)
	if res.Error != nil {
		return fmt.Errorf("delete appointment %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAppointments(ctx context.Context, practitionerID uint, f AppointmentFilter) ([]models.Appointment, error) {
	q := s.conn(ctx).Preload("Patient").Where("practitioner_id = ?", practitionerID)
	if !f.From.IsZero() {
		q = q.Where("start_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("start_time < ?", f.To)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.PatientID != 0 {
		q = q.Where("patient_id = ?", f.PatientID)
	}

	var appointments []models.Appointment
	if err := q.Order("start_time ASC").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// UpcomingAppointments returns the next limit non-cancelled appointments
// starting at or after now.
func (s *Store) UpcomingAppointments(ctx context.Context, practitionerID uint, now time.Time, limit int) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.conn(ctx).Preload("Patient").
		Where("practitioner_id = ? AND start_time >= ? AND status <> ?", practitionerID, now, models.StatusCancelled).
		Order("start_time ASC").
		Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("upcoming appointments: %w", err)
	}
	return appointments, nil
}

// PatientAppointments returns a patient's appointments, most recent first.
// limit <= 0 returns all of them.
func (s *Store) PatientAppointments(ctx context.Context, practitionerID, patientID uint, limit int) ([]models.Appointment, error) {
	q := s.conn(ctx).
		Where("practitioner_id = ? AND patient_id = ?", practitionerID, patientID).
		Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var appointments []models.Appointment
	if err := q.Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("patient appointments: %w", err)
	}
	return appointments, nil
}

// DueReminders returns confirmed appointments starting in [from, to) whose
// reminder has not been sent, across all practitioners.
func (s *Store) DueReminders(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := s.conn(ctx).Preload("Patient").
		Where("status = ? AND start_time >= ? AND start_time < ? AND reminder_sent_at IS NULL",
			models.StatusConfirmed, from, to).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	return appointments, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	if res.Error != nil {
		return fmt.Errorf("mark reminder sent %d: %w", id, res.Error)
	}
	return nil
}

// countAppointments is shared by the stats queries.
func countAppointments(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Model(&models.Appointment{}).Count(&n).Error
	return n, err
}
