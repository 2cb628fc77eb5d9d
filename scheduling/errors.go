package scheduling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dentiste/dental-api/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)
	ErrPatientNotFound     = fmt.Errorf("patient %w", ErrNotFound)

	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")

	ErrInPast      = errors.New("appointment time is in the past")
	ErrOutOfHours  = errors.New("appointment time is outside business hours")
	ErrAlreadyPast = errors.New("appointment has already taken place")
)

// ConflictError lists the appointments a proposed slot overlaps.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return "time slot already taken, conflicts with: " + e.Summary()
}

// Summary joins the human readable form of every conflict.
func (e *ConflictError) Summary() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// TransitionError is returned when a status change, or an operation that
// implies one, is not allowed from the current status.
type TransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
	Op   string
}

func (e *TransitionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("cannot %s an appointment with status %s", e.Op, e.From)
	}
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
