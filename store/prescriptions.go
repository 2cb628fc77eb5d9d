package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dentiste/dental-api/models"
)

var ErrPrescriptionNotFound = fmt.Errorf("prescription %w", ErrNotFound)

type PrescriptionFilter struct {
	PatientID uint
	Status    models.PrescriptionStatus
	From      time.Time
	To        time.Time
	// Search matches the patient's last or first name.
	Search string
}

func (s *Store) ListPrescriptions(ctx context.Context, practitionerID uint, f PrescriptionFilter) ([]models.Prescription, error) {
	q := s.conn(ctx).Preload("Patient").Where("prescriptions.practitioner_id = ?", practitionerID)
	if f.PatientID != 0 {
		q = q.Where("prescriptions.patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("prescriptions.status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("prescriptions.date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("prescriptions.date < ?", f.To)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Joins("JOIN patients ON patients.id = prescriptions.patient_id").
			Where("(patients.last_name ILIKE ? OR patients.first_name ILIKE ?)", like, like)
	}

	var prescriptions []models.Prescription
	if err := q.Order("prescriptions.date DESC").Find(&prescriptions).Error; err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (s *Store) FindPrescription(ctx context.Context, id, practitionerID uint) (*models.Prescription, error) {
	var p models.Prescription
	ok, err := first(s.conn(ctx).Preload("Patient").
		Where("id = ? AND practitioner_id = ?", id, practitionerID), &p)
	if err != nil {
		return nil, fmt.Errorf("find prescription %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	if err := s.conn(ctx).Omit("Patient").Create(p).Error; err != nil {
		return fmt.Errorf("create prescription: %w", err)
	}
	return nil
}

func (s *Store) SavePrescription(ctx context.Context, p *models.Prescription) error {
	if err := s.conn(ctx).Omit("Patient").Save(p).Error; err != nil {
		return fmt.Errorf("save prescription %d: %w", p.ID, err)
	}
	return nil
}

func (s *Store) UpdatePrescriptionStatus(ctx context.Context, id, practitionerID uint, status models.PrescriptionStatus) error {
	res := s.conn(ctx).Model(&models.Prescription{}).
		Where("id = ? AND practitioner_id = ?", id, practitionerID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update prescription status %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

func (s *Store) DeletePrescription(ctx context.Context, id, practitionerID uint) error {
	res := s.conn(ctx).Where("id = ? AND practitioner_id = ?", id, practitionerID).Delete(&models.Prescription{})
	if res.Error != nil {
		return fmt.Errorf("delete prescription %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

func (s *Store) CountPrescriptions(ctx context.Context, practitionerID uint, from, to time.Time) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Prescription{}).
		Where("practitioner_id = ? AND date >= ? AND date < ?", practitionerID, from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", err)
	}
	return n, nil
}
