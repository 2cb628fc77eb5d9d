package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/dentiste/dental-api/logger"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/utils"
)

// Gateway is the persistence surface the scheduler needs. Lookups return
// (nil, nil) when the row does not exist or belongs to another practitioner.
type Gateway interface {
	// FindAppointmentsByPractitionerAndDay returns the non-cancelled
	// appointments of practitionerID starting in [dayStart, dayEnd), with the
	// patient loaded. excludeID 0 excludes nothing.
	FindAppointmentsByPractitionerAndDay(ctx context.Context, practitionerID uint, dayStart, dayEnd time.Time, excludeID uint) ([]models.Appointment, error)
	FindAppointment(ctx context.Context, id, practitionerID uint) (*models.Appointment, error)
	FindPatientByIDAndPractitioner(ctx context.Context, patientID, practitionerID uint) (*models.Patient, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	// UpdateAppointment writes fields (column -> value) in one statement and
	// refreshes a. Returns ErrNotFound when no row matched.
	UpdateAppointment(ctx context.Context, a *models.Appointment, fields map[string]any) error
	DeleteAppointment(ctx context.Context, a *models.Appointment) error
	// WithPractitionerLock runs fn in a transaction that holds the
	// practitioner's calendar lock until it commits.
	WithPractitionerLock(ctx context.Context, practitionerID uint, fn func(Gateway) error) error
}

// Observer is notified of scheduling outcomes.
type Observer interface {
	AppointmentCreated()
	Rejected(reason string)
}

type nopObserver struct{}

func (nopObserver) AppointmentCreated() {}
func (nopObserver) Rejected(string)     {}

type Scheduler struct {
	gw       Gateway
	policy   Policy
	clock    utils.Clock
	observer Observer
}

type Option func(*Scheduler)

func WithClock(c utils.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

func New(gw Gateway, policy Policy, opts ...Option) *Scheduler {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.SlotDuration <= 0 {
		policy.SlotDuration = DefaultPolicy().SlotDuration
	}
	s := &Scheduler{
		gw:       gw,
		policy:   policy,
		clock:    utils.SystemClock,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Policy() Policy {
	return s.policy
}

// CheckConflict returns the appointments overlapping
// [start, start+duration) for the practitioner. It never writes.
func (s *Scheduler) CheckConflict(ctx context.Context, practitionerID uint, start time.Time, duration time.Duration, excludeID uint) ([]Conflict, error) {
	return s.checkConflict(ctx, s.gw, practitionerID, start, duration, excludeID)
}

func (s *Scheduler) checkConflict(ctx context.Context, gw Gateway, practitionerID uint, start time.Time, duration time.Duration, excludeID uint) ([]Conflict, error) {
	if duration <= 0 {
		duration = s.policy.SlotDuration
	}
	end := start.Add(duration)
	dayStart, dayEnd := utils.DayBounds(start, s.policy.Location)

	existing, err := gw.FindAppointmentsByPractitionerAndDay(ctx, practitionerID, dayStart, dayEnd, excludeID)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for i := range existing {
		other := &existing[i]
		if other.Status == models.StatusCancelled || (excludeID != 0 && other.ID == excludeID) {
			continue
		}
		otherEnd := other.EndTime(s.policy.SlotDuration)
		if !Overlaps(start, end, other.StartTime, otherEnd) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			AppointmentID: other.ID,
			PatientID:     other.PatientID,
			PatientName:   other.PatientName(),
			Status:        other.Status,
			Start:         other.StartTime,
			End:           otherEnd,
			StartTime:     utils.FormatHM(other.StartTime, s.policy.Location),
			EndTime:       utils.FormatHM(otherEnd, s.policy.Location),
		})
	}
	return conflicts, nil
}

// validateStart applies the time rules shared by create and reschedule.
func (s *Scheduler) validateStart(start time.Time, allowPast bool) error {
	if !allowPast && start.Before(s.clock.Now()) {
		return ErrInPast
	}
	if s.policy.EnforceBusinessHours && !s.policy.WithinBusinessHours(start) {
		return ErrOutOfHours
	}
	return nil
}

type CreateInput struct {
	PatientID uint
	Start     time.Time
	Kind      string
	Notes     string
}

// Create books a pending appointment after the time rules, the patient
// ownership check and the conflict check have passed.
func (s *Scheduler) Create(ctx context.Context, practitionerID uint, in CreateInput) (*models.Appointment, error) {
	log := logger.Ctx(ctx)

	if err := s.validateStart(in.Start, false); err != nil {
		s.reject(err)
		return nil, err
	}

	var created *models.Appointment
	err := s.gw.WithPractitionerLock(ctx, practitionerID, func(gw Gateway) error {
		patient, err := gw.FindPatientByIDAndPractitioner(ctx, in.PatientID, practitionerID)
		if err != nil {
			return err
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		conflicts, err := s.checkConflict(ctx, gw, practitionerID, in.Start, s.policy.SlotDuration, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		a := &models.Appointment{
			PractitionerID:  practitionerID,
			PatientID:       patient.ID,
			StartTime:       in.Start,
			DurationMinutes: s.policy.slotMinutes(),
			Kind:            in.Kind,
			Status:          models.StatusPending,
			Notes:           in.Notes,
		}
		if a.Kind == "" {
			a.Kind = models.DefaultKind
		}
		if err := gw.CreateAppointment(ctx, a); err != nil {
			return err
		}
		a.Patient = patient
		created = a
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	s.observer.AppointmentCreated()
	log.Info().
		Uint("appointment_id", created.ID).
		Uint("practitioner_id", practitionerID).
		Time("start", created.StartTime).
		Msg("appointment created")
	return created, nil
}

// RescheduleInput carries the optional changes of an update. Nil fields are
// left untouched.
type RescheduleInput struct {
	Start     *time.Time
	Status    *models.AppointmentStatus
	PatientID *uint
	Kind      *string
	Notes     *string
}

// Reschedule applies an update to an existing appointment. Once the
// appointment has started only a move to completed is accepted. A new start is
// re-validated and re-checked for conflicts with the appointment itself
// excluded; a new status must follow the transition table.
func (s *Scheduler) Reschedule(ctx context.Context, practitionerID, id uint, in RescheduleInput) (*models.Appointment, error) {
	var updated *models.Appointment
	err := s.gw.WithPractitionerLock(ctx, practitionerID, func(gw Gateway) error {
		a, err := gw.FindAppointment(ctx, id, practitionerID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}

		fields := map[string]any{}
		target := a.Status

		if in.Status != nil {
			if !a.Status.CanTransitionTo(*in.Status) {
				return &TransitionError{From: a.Status, To: *in.Status}
			}
			target = *in.Status
			fields["status"] = target
		}
		if err := s.checkNotStarted(a, target); err != nil {
			return err
		}

		var patient *models.Patient
		if in.PatientID != nil && *in.PatientID != a.PatientID {
			if patient, err = gw.FindPatientByIDAndPractitioner(ctx, *in.PatientID, practitionerID); err != nil {
				return err
			}
			if patient == nil {
				return ErrPatientNotFound
			}
			fields["patient_id"] = patient.ID
		}

		if in.Start != nil && !in.Start.Equal(a.StartTime) {
			if a.Status.IsTerminal() {
				return &TransitionError{From: a.Status, To: target, Op: "reschedule"}
			}
			if err := s.validateStart(*in.Start, target == models.StatusCompleted); err != nil {
				return err
			}
			if target != models.StatusCancelled {
				conflicts, err := s.checkConflict(ctx, gw, practitionerID, *in.Start, a.Duration(s.policy.SlotDuration), a.ID)
				if err != nil {
					return err
				}
				if len(conflicts) > 0 {
					return &ConflictError{Conflicts: conflicts}
				}
			}
			fields["start_time"] = *in.Start
			fields["reminder_sent_at"] = nil
		}

		if in.Kind != nil && *in.Kind != "" {
			fields["kind"] = *in.Kind
		}
		if in.Notes != nil {
			fields["notes"] = *in.Notes
		}

		if len(fields) > 0 {
			if err := gw.UpdateAppointment(ctx, a, fields); err != nil {
				return err
			}
		}
		if patient != nil {
			a.Patient = patient
		}
		updated = a
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Uint("appointment_id", id).Msg("appointment updated")
	return updated, nil
}

// UpdateStatus moves an appointment along the transition table. Missed is
// only reachable through an administrative update, and only from pending or
// confirmed.
func (s *Scheduler) UpdateStatus(ctx context.Context, practitionerID, id uint, to models.AppointmentStatus, administrative bool) (*models.Appointment, error) {
	var updated *models.Appointment
	err := s.gw.WithPractitionerLock(ctx, practitionerID, func(gw Gateway) error {
		a, err := gw.FindAppointment(ctx, id, practitionerID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}

		allowed := a.Status.CanTransitionTo(to)
		if to == models.StatusMissed {
			allowed = administrative && (a.Status == models.StatusPending || a.Status == models.StatusConfirmed)
		}
		if !allowed {
			return &TransitionError{From: a.Status, To: to}
		}
		if err := s.checkNotStarted(a, to); err != nil {
			return err
		}

		if err := gw.UpdateAppointment(ctx, a, map[string]any{"status": to}); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Uint("appointment_id", id).Str("status", string(to)).Msg("appointment status changed")
	return updated, nil
}

// checkNotStarted refuses changes to an appointment whose start has passed,
// unless the change records how it ended (completed or missed).
func (s *Scheduler) checkNotStarted(a *models.Appointment, target models.AppointmentStatus) error {
	if !a.StartTime.Before(s.clock.Now()) {
		return nil
	}
	if target == models.StatusCompleted || target == models.StatusMissed {
		return nil
	}
	return ErrAlreadyPast
}

// Cancel marks a pending or confirmed appointment that has not started yet
// as cancelled.
func (s *Scheduler) Cancel(ctx context.Context, practitionerID, id uint) (*models.Appointment, error) {
	var cancelled *models.Appointment
	err := s.gw.WithPractitionerLock(ctx, practitionerID, func(gw Gateway) error {
		a, err := gw.FindAppointment(ctx, id, practitionerID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}
		if a.Status != models.StatusPending && a.Status != models.StatusConfirmed {
			return &TransitionError{From: a.Status, To: models.StatusCancelled}
		}
		if err := s.checkNotStarted(a, models.StatusCancelled); err != nil {
			return err
		}
		if err := gw.UpdateAppointment(ctx, a, map[string]any{"status": models.StatusCancelled}); err != nil {
			return err
		}
		cancelled = a
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Uint("appointment_id", id).Msg("appointment cancelled")
	return cancelled, nil
}

// Delete removes the appointment row.
func (s *Scheduler) Delete(ctx context.Context, practitionerID, id uint) error {
	return s.gw.WithPractitionerLock(ctx, practitionerID, func(gw Gateway) error {
		a, err := gw.FindAppointment(ctx, id, practitionerID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}
		return gw.DeleteAppointment(ctx, a)
	})
}

func (s *Scheduler) reject(err error) {
	s.observer.Rejected(RejectionReason(err))
}

// RejectionReason classifies a scheduling error for metrics.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrSchedulingConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInPast):
		return "in_past"
	case errors.Is(err, ErrOutOfHours):
		return "out_of_hours"
	case errors.Is(err, ErrAlreadyPast):
		return "already_past"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
