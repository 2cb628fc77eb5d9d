package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type PrescriptionStore interface {
	ListPrescriptions(ctx context.Context, practitionerID uint, f store.PrescriptionFilter) ([]models.Prescription, error)
	FindPrescription(ctx context.Context, id, practitionerID uint) (*models.Prescription, error)
	CreatePrescription(ctx context.Context, p *models.Prescription) error
	SavePrescription(ctx context.Context, p *models.Prescription) error
	UpdatePrescriptionStatus(ctx context.Context, id, practitionerID uint, status models.PrescriptionStatus) error
	DeletePrescription(ctx context.Context, id, practitionerID uint) error
	FindPatientByIDAndPractitioner(ctx context.Context, patientID, practitionerID uint) (*models.Patient, error)
}

type PrescriptionController struct {
	store PrescriptionStore
	loc   *time.Location
	clock utils.Clock
}

func NewPrescriptionController(st PrescriptionStore, loc *time.Location, clock utils.Clock) *PrescriptionController {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	return &PrescriptionController{store: st, loc: loc, clock: clock}
}

type prescriptionRequest struct {
	PatientID uint                       `json:"patientId" validate:"required"`
	Date      string                     `json:"date"`
	Content   models.PrescriptionContent `json:"content"`
	Status    models.PrescriptionStatus  `json:"status" validate:"omitempty,oneof=active completed cancelled"`
	Notes     string                     `json:"notes" validate:"max=2000"`
}

type prescriptionStatusRequest struct {
	Status models.PrescriptionStatus `json:"status" validate:"required,oneof=active completed cancelled"`
}

func (h *PrescriptionController) apply(c *fiber.Ctx, req *prescriptionRequest, p *models.Prescription) error {
	patient, err := h.store.FindPatientByIDAndPractitioner(c.UserContext(), req.PatientID, middleware.PractitionerID(c))
	if err != nil {
		return err
	}
	if patient == nil {
		return scheduling.ErrPatientNotFound
	}

	date := h.clock.Now()
	if req.Date != "" {
		if date, err = parseDate(req.Date, h.loc); err != nil {
			return invalidField("date", "must be a date (YYYY-MM-DD)")
		}
	}

	p.PatientID = patient.ID
	p.Patient = patient
	p.Date = date
	p.Content = datatypes.NewJSONType(req.Content)
	p.Notes = req.Notes
	if req.Status != "" {
		p.Status = req.Status
	}
	if p.Status == "" {
		p.Status = models.PrescriptionActive
	}
	return nil
}

// ListPrescriptions supports patientId, status, startDate, endDate (inclusive
// calendar days) and search on the patient's name.
func (h *PrescriptionController) ListPrescriptions(c *fiber.Ctx) error {
	var f store.PrescriptionFilter
	var err error
	if f.PatientID, err = queryID(c, "patientId"); err != nil {
		return fail(c, err)
	}
	f.Status = models.PrescriptionStatus(c.Query("status"))
	if f.Status != "" && !f.Status.Valid() {
		return fail(c, invalidField("status", "unknown prescription status"))
	}
	if raw := c.Query("startDate"); raw != "" {
		if f.From, err = parseDate(raw, h.loc); err != nil {
			return fail(c, invalidField("startDate", "must be a date (YYYY-MM-DD)"))
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := parseDate(raw, h.loc)
		if err != nil {
			return fail(c, invalidField("endDate", "must be a date (YYYY-MM-DD)"))
		}
		_, f.To = utils.DayBounds(end, h.loc)
	}
	f.Search = strings.TrimSpace(c.Query("search"))

	prescriptions, err := h.store.ListPrescriptions(c.UserContext(), middleware.PractitionerID(c), f)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, prescriptions)
}

func (h *PrescriptionController) GetPrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.store.FindPrescription(c.UserContext(), id, middleware.PractitionerID(c))
	if err != nil {
		return fail(c, err)
	}
	if p == nil {
		return fail(c, store.ErrPrescriptionNotFound)
	}
	return utils.OK(c, p)
}

func (h *PrescriptionController) CreatePrescription(c *fiber.Ctx) error {
	var req prescriptionRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	p := &models.Prescription{PractitionerID: middleware.PractitionerID(c)}
	if err := h.apply(c, &req, p); err != nil {
		return fail(c, err)
	}
	if err := h.store.CreatePrescription(c.UserContext(), p); err != nil {
		return fail(c, err)
	}
	return utils.Created(c, p)
}

func (h *PrescriptionController) UpdatePrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.store.FindPrescription(c.UserContext(), id, middleware.PractitionerID(c))
	if err != nil {
		return fail(c, err)
	}
	if p == nil {
		return fail(c, store.ErrPrescriptionNotFound)
	}
	var req prescriptionRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := h.apply(c, &req, p); err != nil {
		return fail(c, err)
	}
	if err := h.store.SavePrescription(c.UserContext(), p); err != nil {
		return fail(c, err)
	}
	return utils.OK(c, p)
}

func (h *PrescriptionController) UpdatePrescriptionStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req prescriptionStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := h.store.UpdatePrescriptionStatus(c.UserContext(), id, middleware.PractitionerID(c), req.Status); err != nil {
		return fail(c, err)
	}
	return utils.OK(c, fiber.Map{"id": id, "status": req.Status})
}

func (h *PrescriptionController) DeletePrescription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.DeletePrescription(c.UserContext(), id, middleware.PractitionerID(c)); err != nil {
		return fail(c, err)
	}
	return utils.Message(c, "Prescription deleted")
}
