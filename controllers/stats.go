package controllers

import (
	"context"
	"time"

	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
)

type StatsStore interface {
	CountPatients(ctx context.Context, practitionerID uint) (int64, error)
	CountAppointmentsBetween(ctx context.Context, practitionerID uint, from, to time.Time, excludeCancelled bool) (int64, error)
	CountPrescriptions(ctx context.Context, practitionerID uint, from, to time.Time) (int64, error)
	AppointmentsByStatus(ctx context.Context, practitionerID uint, from, to time.Time) ([]store.GroupCount, error)
	AppointmentsByKind(ctx context.Context, practitionerID uint, from, to time.Time) ([]store.GroupCount, error)
	ListAppointments(ctx context.Context, practitionerID uint, f store.AppointmentFilter) ([]models.Appointment, error)
	UpcomingAppointments(ctx context.Context, practitionerID uint, now time.Time, limit int) ([]models.Appointment, error)
}

type StatsController struct {
	store StatsStore
	loc   *time.Location
	clock utils.Clock
}

func NewStatsController(st StatsStore, loc *time.Location, clock utils.Clock) *StatsController {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	return &StatsController{store: st, loc: loc, clock: clock}
}

// AppointmentSummary is the short form used on the dashboard.
type AppointmentSummary struct {
	ID        uint                     `json:"id"`
	StartTime time.Time                `json:"startTime"`
	Time      string                   `json:"time"`
	Kind      string                   `json:"kind"`
	Status    models.AppointmentStatus `json:"status"`
	PatientID uint                     `json:"patientId"`
	Patient   string                   `json:"patient"`
}

type Dashboard struct {
	TotalPatients          int64                `json:"totalPatients"`
	TodayAppointmentsCount int64                `json:"todayAppointmentsCount"`
	MonthlyPrescriptions   int64                `json:"monthlyPrescriptions"`
	TodayAppointments      []AppointmentSummary `json:"todayAppointments"`
	UpcomingAppointments   []AppointmentSummary `json:"upcomingAppointments"`
	StatsByStatus          map[string]int64     `json:"statsByStatus"`
	StatsByType            map[string]int64     `json:"statsByType"`
	GeneratedAt            time.Time            `json:"generatedAt"`
}

func (h *StatsController) summarize(as []models.Appointment) []AppointmentSummary {
	out := make([]AppointmentSummary, 0, len(as))
	for i := range as {
		a := &as[i]
		out = append(out, AppointmentSummary{
			ID:        a.ID,
			StartTime: a.StartTime,
			Time:      utils.FormatHM(a.StartTime, h.loc),
			Kind:      a.Kind,
			Status:    a.Status,
			PatientID: a.PatientID,
			Patient:   a.PatientName(),
		})
	}
	return out
}

func toMap(rows []store.GroupCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Key] = r.Count
	}
	return m
}

// Dashboard serves both /stats and /stats/dashboard.
func (h *StatsController) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	pid := middleware.PractitionerID(c)
	now := h.clock.Now()
	dayStart, dayEnd := utils.DayBounds(now, h.loc)
	monthStart, monthEnd := utils.MonthBounds(now, h.loc)

	d := Dashboard{GeneratedAt: now}
	var err error

	if d.TotalPatients, err = h.store.CountPatients(ctx, pid); err != nil {
		return fail(c, err)
	}
	if d.TodayAppointmentsCount, err = h.store.CountAppointmentsBetween(ctx, pid, dayStart, dayEnd, true); err != nil {
		return fail(c, err)
	}
	if d.MonthlyPrescriptions, err = h.store.CountPrescriptions(ctx, pid, monthStart, monthEnd); err != nil {
		return fail(c, err)
	}

	today, err := h.store.ListAppointments(ctx, pid, store.AppointmentFilter{From: dayStart, To: dayEnd})
	if err != nil {
		return fail(c, err)
	}
	var active []models.Appointment
	for _, a := range today {
		if a.Status != models.StatusCancelled {
			active = append(active, a)
		}
	}
	d.TodayAppointments = h.summarize(active)

	upcoming, err := h.store.UpcomingAppointments(ctx, pid, now, upcomingLimit)
	if err != nil {
		return fail(c, err)
	}
	d.UpcomingAppointments = h.summarize(upcoming)

	byStatus, err := h.store.AppointmentsByStatus(ctx, pid, time.Time{}, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	d.StatsByStatus = toMap(byStatus)

	byKind, err := h.store.AppointmentsByKind(ctx, pid, time.Time{}, time.Time{})
	if err != nil {
		return fail(c, err)
	}
	d.StatsByType = toMap(byKind)

	return utils.OK(c, d)
}

// AppointmentStats counts appointments per status over from..to (calendar
// days, both inclusive). Both bounds are optional.
func (h *StatsController) AppointmentStats(c *fiber.Ctx) error {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		day, err := parseDate(raw, h.loc)
		if err != nil {
			return fail(c, invalidField("from", "must be a date (YYYY-MM-DD)"))
		}
		from, _ = utils.DayBounds(day, h.loc)
	}
	if raw := c.Query("to"); raw != "" {
		day, err := parseDate(raw, h.loc)
		if err != nil {
			return fail(c, invalidField("to", "must be a date (YYYY-MM-DD)"))
		}
		_, to = utils.DayBounds(day, h.loc)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fail(c, invalid("from must be before to"))
	}

	rows, err := h.store.AppointmentsByStatus(c.UserContext(), middleware.PractitionerID(c), from, to)
	if err != nil {
		return fail(c, err)
	}
	var total int64
	for _, r := range rows {
		total += r.Count
	}
	return utils.OK(c, fiber.Map{
		"total":    total,
		"byStatus": toMap(rows),
	})
}
