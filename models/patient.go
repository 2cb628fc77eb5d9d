package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PatientStatus string

const (
	PatientActive   PatientStatus = "active"
	PatientInactive PatientStatus = "inactive"
	PatientArchived PatientStatus = "archived"
)

type Address struct {
	Street     string `json:"street"`
	Complement string `json:"complement"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type MedicalHistoryEntry struct {
	Name      string     `json:"name" validate:"required"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Treatment string     `json:"treatment"`
	Remarks   string     `json:"remarks"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Patient struct {
	ID                   uint                                     `json:"id" gorm:"primaryKey"`
	PractitionerID       uint                                     `json:"practitionerId" gorm:"not null;index"`
	LastName             string                                   `json:"lastName" gorm:"not null"`
	FirstName            string                                   `json:"firstName" gorm:"not null"`
	Email                string                                   `json:"email"`
	Phone                string                                   `json:"phone" gorm:"not null"`
	BirthDate            time.Time                                `json:"birthDate" gorm:"not null"`
	Address              datatypes.JSONType[Address]              `json:"address" gorm:"type:jsonb;not null;default:'{}'"`
	SocialSecurityNumber *string                                  `json:"socialSecurityNumber,omitempty" gorm:"uniqueIndex"`
	Status               PatientStatus                            `json:"status" gorm:"type:varchar(16);not null;default:active"`
	MedicalHistory       datatypes.JSONSlice[MedicalHistoryEntry] `json:"medicalHistory" gorm:"type:jsonb;not null;default:'[]'"`
	BloodType            *string                                  `json:"bloodType,omitempty" gorm:"type:varchar(3)"`
	Allergies            datatypes.JSONSlice[string]              `json:"allergies" gorm:"type:jsonb;not null;default:'[]'"`
	CurrentTreatments    datatypes.JSONSlice[string]              `json:"currentTreatments" gorm:"type:jsonb;not null;default:'[]'"`
	Occupation           string                                   `json:"occupation"`
	Smoker               bool                                     `json:"smoker"`
	Remarks              string                                   `json:"remarks"`
	MedicalNotes         string                                   `json:"medicalNotes"`
	Appointments         []Appointment                            `json:"appointments,omitempty" gorm:"foreignKey:PatientID"`
	CreatedAt            time.Time                                `json:"createdAt"`
	UpdatedAt            time.Time                                `json:"updatedAt"`
}

// BeforeSave stores empty lists as [] rather than null.
func (p *Patient) BeforeSave(*gorm.DB) error {
	p.NormalizeLists()
	return nil
}

// NormalizeLists replaces nil lists with empty ones.
func (p *Patient) NormalizeLists() {
	if p.MedicalHistory == nil {
		p.MedicalHistory = datatypes.JSONSlice[MedicalHistoryEntry]{}
	}
	if p.Allergies == nil {
		p.Allergies = datatypes.JSONSlice[string]{}
	}
	if p.CurrentTreatments == nil {
		p.CurrentTreatments = datatypes.JSONSlice[string]{}
	}
}

// DisplayName is "LastName FirstName", the form used in conflict summaries.
func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}

var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
