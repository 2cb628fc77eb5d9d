package models

import (
	"time"

	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusMissed    AppointmentStatus = "missed"
)

const DefaultKind = "consultation"

// transitions is the standard status table. Missed is absent on purpose:
// it is only set through an administrative update.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: nil,
	StatusCompleted: nil,
	StatusMissed:    nil,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s AppointmentStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether the standard table allows s -> to.
// Self transitions are never allowed.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	PractitionerID  uint              `json:"practitionerId" gorm:"not null;index:idx_appointments_practitioner_start,priority:1"`
	PatientID       uint              `json:"patientId" gorm:"not null;index"`
	Patient         *Patient          `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	StartTime       time.Time         `json:"startTime" gorm:"not null;index:idx_appointments_practitioner_start,priority:2"`
	DurationMinutes int               `json:"durationMinutes" gorm:"not null"`
	Kind            string            `json:"kind" gorm:"not null"`
	Status          AppointmentStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Notes           string            `json:"notes"`
	ReminderSentAt  *time.Time        `json:"reminderSentAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Kind == "" {
		a.Kind = DefaultKind
	}
	return nil
}

// Duration falls back to def for rows stored without a duration.
func (a *Appointment) Duration(def time.Duration) time.Duration {
	if a.DurationMinutes <= 0 {
		return def
	}
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a *Appointment) EndTime(def time.Duration) time.Time {
	return a.StartTime.Add(a.Duration(def))
}

func (a *Appointment) PatientName() string {
	if a.Patient == nil {
		return "unknown patient"
	}
	return a.Patient.DisplayName()
}
