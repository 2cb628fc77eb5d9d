package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"gorm.io/gorm"
)

// ErrPatientHasAppointments blocks deleting a patient that still has
// appointments on the calendar.
var ErrPatientHasAppointments = errors.New("patient still has appointments")

// ErrDuplicatePatient is returned when the social security number is already
// on file.
var ErrDuplicatePatient = fmt.Errorf("patient with this social security number %w", ErrDuplicate)

func (s *Store) FindPatientByIDAndPractitioner(ctx context.Context, patientID, practitionerID uint) (*models.Patient, error) {
	var p models.Patient
	ok, err := first(s.conn(ctx).Where("id = ? AND practitioner_id = ?", patientID, practitionerID), &p)
	if err != nil {
		return nil, fmt.Errorf("find patient %d: %w", patientID, err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListPatients orders by last name. search matches last name, first name or
// e-mail, case-insensitively.
func (s *Store) ListPatients(ctx context.Context, practitionerID uint, search string) ([]models.Patient, error) {
	q := s.conn(ctx).Where("practitioner_id = ?", practitionerID)
	if search != "" {
		like := likePattern(search)
		q = q.Where("(last_name ILIKE ? OR first_name ILIKE ? OR email ILIKE ?)", like, like, like)
	}
	var patients []models.Patient
	if err := q.Order("last_name ASC, first_name ASC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	err := s.conn(ctx).Create(p).Error
	if isUniqueViolation(err) {
		return ErrDuplicatePatient
	}
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// SavePatient writes every column of a patient previously loaded through
// FindPatientByIDAndPractitioner.
func (s *Store) SavePatient(ctx context.Context, p *models.Patient) error {
	err := s.conn(ctx).Omit("Appointments").Save(p).Error
	if isUniqueViolation(err) {
		return ErrDuplicatePatient
	}
	if err != nil {
		return fmt.Errorf("save patient %d: %w", p.ID, err)
	}
	return nil
}

// DeletePatient removes the patient and their prescriptions in one
// transaction. It refuses while appointments still reference the patient.
func (s *Store) DeletePatient(ctx context.Context, practitionerID, patientID uint) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countAppointments(tx.Where("patient_id = ? AND practitioner_id = ?", patientID, practitionerID))
		if err != nil {
			return fmt.Errorf("count patient appointments: %w", err)
		}
		if n > 0 {
			return ErrPatientHasAppointments
		}

		if err := tx.Where("patient_id = ? AND practitioner_id = ?", patientID, practitionerID).
			Delete(&models.Prescription{}).Error; err != nil {
			return fmt.Errorf("delete patient prescriptions: %w", err)
		}

		res := tx.Where("id = ? AND practitioner_id = ?", patientID, practitionerID).Delete(&models.Patient{})
		if res.Error != nil {
			return fmt.Errorf("delete patient %d: %w", patientID, res.Error)
		}
		if res.RowsAffected == 0 {
			return scheduling.ErrPatientNotFound
		}
		return nil
	})
}

func (s *Store) CountPatients(ctx context.Context, practitionerID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Patient{}).Where("practitioner_id = ?", practitionerID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}
