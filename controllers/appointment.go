package controllers

import (
	"context"
	"time"

	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
)

const upcomingLimit = 5

// AppointmentStore is the read side the appointment handlers need. Writes
// go through the scheduler.
type AppointmentStore interface {
	FindAppointment(ctx context.Context, id, practitionerID uint) (*models.Appointment, error)
	ListAppointments(ctx context.Context, practitionerID uint, f store.AppointmentFilter) ([]models.Appointment, error)
	UpcomingAppointments(ctx context.Context, practitionerID uint, now time.Time, limit int) ([]models.Appointment, error)
}

type AppointmentController struct {
	scheduler *scheduling.Scheduler
	store     AppointmentStore
	clock     utils.Clock
}

func NewAppointmentController(s *scheduling.Scheduler, st AppointmentStore, clock utils.Clock) *AppointmentController {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &AppointmentController{scheduler: s, store: st, clock: clock}
}

// AppointmentView adds the computed end of the slot.
type AppointmentView struct {
	models.Appointment
	EndTime time.Time `json:"endTime"`
}

func (h *AppointmentController) view(a *models.Appointment) AppointmentView {
	return AppointmentView{Appointment: *a, EndTime: a.EndTime(h.scheduler.Policy().SlotDuration)}
}

func (h *AppointmentController) views(as []models.Appointment) []AppointmentView {
	out := make([]AppointmentView, len(as))
	for i := range as {
		out[i] = h.view(&as[i])
	}
	return out
}

type createAppointmentRequest struct {
	PatientID uint       `json:"patientId" validate:"required"`
	StartTime *time.Time `json:"startTime"`
	// Date is accepted as an alias of startTime.
	Date  *time.Time `json:"date"`
	Kind  string     `json:"kind" validate:"omitempty,max=100"`
	Notes string     `json:"notes" validate:"max=2000"`
}

type updateAppointmentRequest struct {
	StartTime *time.Time                `json:"startTime"`
	Date      *time.Time                `json:"date"`
	Status    *models.AppointmentStatus `json:"status"`
	PatientID *uint                     `json:"patientId"`
	Kind      *string                   `json:"kind" validate:"omitempty,max=100"`
	Notes     *string                   `json:"notes" validate:"omitempty,max=2000"`
}

type updateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required"`
}

func pickStart(start, date *time.Time) *time.Time {
	if start != nil {
		return start
	}
	return date
}

// ListAppointments godoc
// @Summary List the caller's appointments
// @Description Optional filters: date (YYYY-MM-DD, practice time zone), status, kind, patientId. Ordered by start time.
// @Tags appointments
// @Produce json
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Router /api/appointments [get]
func (h *AppointmentController) ListAppointments(c *fiber.Ctx) error {
	filter := store.AppointmentFilter{
		Status: models.AppointmentStatus(c.Query("status")),
		Kind:   c.Query("kind"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fail(c, invalidField("status", "unknown appointment status"))
	}
	if raw := c.Query("date"); raw != "" {
		day, err := utils.ParseDay(raw, h.scheduler.Policy().Location)
		if err != nil {
			return fail(c, invalidField("date", "must be formatted YYYY-MM-DD"))
		}
		filter.From, filter.To = utils.DayBounds(day, h.scheduler.Policy().Location)
	}
	patientID, err := queryID(c, "patientId")
	if err != nil {
		return fail(c, err)
	}
	filter.PatientID = patientID

	appointments, err := h.store.ListAppointments(c.UserContext(), middleware.PractitionerID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, h.views(appointments))
}

// UpcomingAppointments godoc
// @Summary Next five non-cancelled appointments from now
// @Tags appointments
// @Produce json
// @Success 200 {object} utils.Response
// @Router /api/appointments/upcoming [get]
func (h *AppointmentController) UpcomingAppointments(c *fiber.Ctx) error {
	appointments, err := h.store.UpcomingAppointments(c.UserContext(), middleware.PractitionerID(c), h.clock.Now(), upcomingLimit)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, h.views(appointments))
}

// GetAppointment godoc
// @Summary Get an appointment by ID
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/appointments/{id} [get]
func (h *AppointmentController) GetAppointment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	a, err := h.store.FindAppointment(c.UserContext(), id, middleware.PractitionerID(c))
	if err != nil {
		return fail(c, err)
	}
	if a == nil {
		return fail(c, scheduling.ErrAppointmentNotFound)
	}
	return utils.OK(c, h.view(a))
}

// CreateAppointment godoc
// @Summary Book an appointment
// @Description Rejected with 400 when the start is in the past or outside business hours, 404 when the patient is not the caller's, 409 when the slot overlaps another appointment.
// @Tags appointments
// @Accept json
// @Produce json
// @Success 201 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/appointments [post]
func (h *AppointmentController) CreateAppointment(c *fiber.Ctx) error {
	var req createAppointmentRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	start := pickStart(req.StartTime, req.Date)
	if start == nil {
		return fail(c, invalidField("startTime", "is required"))
	}

	a, err := h.scheduler.Create(c.UserContext(), middleware.PractitionerID(c), scheduling.CreateInput{
		PatientID: req.PatientID,
		Start:     *start,
		Kind:      req.Kind,
		Notes:     req.Notes,
	})
	if err != nil {
		return fail(c, err)
	}
	return utils.Created(c, h.view(a))
}

// UpdateAppointment godoc
// @Summary Update or reschedule an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/appointments/{id} [put]
func (h *AppointmentController) UpdateAppointment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req updateAppointmentRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Status != nil && !req.Status.Valid() {
		return fail(c, invalidField("status", "unknown appointment status"))
	}

	a, err := h.scheduler.Reschedule(c.UserContext(), middleware.PractitionerID(c), id, scheduling.RescheduleInput{
		Start:     pickStart(req.StartTime, req.Date),
		Status:    req.Status,
		PatientID: req.PatientID,
		Kind:      req.Kind,
		Notes:     req.Notes,
	})
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, h.view(a))
}

// UpdateAppointmentStatus godoc
// @Summary Change an appointment's status
// @Description Only admins may mark an appointment as missed.
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/appointments/{id}/status [put]
func (h *AppointmentController) UpdateAppointmentStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req updateStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if !req.Status.Valid() {
		return fail(c, invalidField("status", "unknown appointment status"))
	}

	claims := middleware.Claims(c)
	admin := claims != nil && claims.IsAdmin()
	a, err := h.scheduler.UpdateStatus(c.UserContext(), middleware.PractitionerID(c), id, req.Status, admin)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, h.view(a))
}

// CancelAppointment godoc
// @Summary Cancel a pending or confirmed appointment that has not started
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/appointments/{id}/cancel [post]
func (h *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	a, err := h.scheduler.Cancel(c.UserContext(), middleware.PractitionerID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, h.view(a))
}

// DeleteAppointment godoc
// @Summary Delete an appointment
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/appointments/{id} [delete]
func (h *AppointmentController) DeleteAppointment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.scheduler.Delete(c.UserContext(), middleware.PractitionerID(c), id); err != nil {
		return fail(c, err)
	}
	return utils.Message(c, "Appointment deleted")
}
