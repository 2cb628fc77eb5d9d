package models

import (
	"time"

	"gorm.io/datatypes"
)

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionActive, PrescriptionCompleted, PrescriptionCancelled:
		return true
	}
	return false
}

type Medication struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type PrescriptionContent struct {
	Medications  []Medication `json:"medications" validate:"required,min=1,dive"`
	Instructions string       `json:"instructions"`
}

type Prescription struct {
	ID             uint                                    `json:"id" gorm:"primaryKey"`
	PractitionerID uint                                    `json:"practitionerId" gorm:"not null;index"`
	PatientID      uint                                    `json:"patientId" gorm:"not null;index"`
	Patient        *Patient                                `json:"patient,omitempty" gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	Date           time.Time                               `json:"date" gorm:"not null;index"`
	Content        datatypes.JSONType[PrescriptionContent] `json:"content" gorm:"type:jsonb;not null"`
	Status         PrescriptionStatus                      `json:"status" gorm:"type:varchar(16);not null;default:active"`
	Notes          string                                  `json:"notes"`
	CreatedAt      time.Time                               `json:"createdAt"`
	UpdatedAt      time.Time                               `json:"updatedAt"`
}
