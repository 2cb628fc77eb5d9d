package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

const recentAppointments = 5

type PatientStore interface {
	ListPatients(ctx context.Context, practitionerID uint, search string) ([]models.Patient, error)
	FindPatientByIDAndPractitioner(ctx context.Context, patientID, practitionerID uint) (*models.Patient, error)
	CreatePatient(ctx context.Context, p *models.Patient) error
	SavePatient(ctx context.Context, p *models.Patient) error
	DeletePatient(ctx context.Context, practitionerID, patientID uint) error
	PatientAppointments(ctx context.Context, practitionerID, patientID uint, limit int) ([]models.Appointment, error)
}

type PatientController struct {
	store PatientStore
	loc   *time.Location
	clock utils.Clock
}

func NewPatientController(st PatientStore, loc *time.Location, clock utils.Clock) *PatientController {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	return &PatientController{store: st, loc: loc, clock: clock}
}

type patientRequest struct {
	LastName             string                       `json:"lastName" validate:"required,max=100"`
	FirstName            string                       `json:"firstName" validate:"required,max=100"`
	Email                string                       `json:"email" validate:"omitempty,email"`
	Phone                string                       `json:"phone" validate:"required,max=30"`
	BirthDate            string                       `json:"birthDate" validate:"required"`
	Address              models.Address               `json:"address"`
	SocialSecurityNumber *string                      `json:"socialSecurityNumber" validate:"omitempty,max=30"`
	Status               models.PatientStatus         `json:"status" validate:"omitempty,oneof=active inactive archived"`
	BloodType            *string                      `json:"bloodType" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	MedicalHistory       []models.MedicalHistoryEntry `json:"medicalHistory" validate:"dive"`
	Allergies            []string                     `json:"allergies"`
	CurrentTreatments    []string                     `json:"currentTreatments"`
	Occupation           string                       `json:"occupation"`
	Smoker               bool                         `json:"smoker"`
	Remarks              string                       `json:"remarks"`
	MedicalNotes         string                       `json:"medicalNotes"`
}

// apply copies the request onto p. Empty optional values are normalised so
// the unique index on the social security number ignores blanks.
func (r *patientRequest) apply(p *models.Patient, loc *time.Location) error {
	birth, err := parseDate(r.BirthDate, loc)
	if err != nil {
		return invalidField("birthDate", "must be a date (YYYY-MM-DD)")
	}

	p.LastName = strings.TrimSpace(r.LastName)
	p.FirstName = strings.TrimSpace(r.FirstName)
	p.Email = strings.TrimSpace(r.Email)
	p.Phone = strings.TrimSpace(r.Phone)
	p.BirthDate = birth
	address := r.Address
	if address.Country == "" {
		address.Country = "France"
	}
	p.Address = datatypes.NewJSONType(address)
	p.SocialSecurityNumber = blankToNil(r.SocialSecurityNumber)
	p.Status = r.Status
	if p.Status == "" {
		p.Status = models.PatientActive
	}
	p.BloodType = blankToNil(r.BloodType)
	p.MedicalHistory = datatypes.JSONSlice[models.MedicalHistoryEntry](r.MedicalHistory)
	p.Allergies = datatypes.JSONSlice[string](r.Allergies)
	p.CurrentTreatments = datatypes.JSONSlice[string](r.CurrentTreatments)
	p.NormalizeLists()
	p.Occupation = r.Occupation
	p.Smoker = r.Smoker
	p.Remarks = r.Remarks
	p.MedicalNotes = r.MedicalNotes
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := utils.ParseDay(s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// PatientDetail is a patient with their most recent appointments.
type PatientDetail struct {
	models.Patient
	RecentAppointments []models.Appointment `json:"recentAppointments"`
}

func (h *PatientController) find(c *fiber.Ctx) (*models.Patient, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.store.FindPatientByIDAndPractitioner(c.UserContext(), id, middleware.PractitionerID(c))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, scheduling.ErrPatientNotFound
	}
	return p, nil
}

// ListPatients returns the caller's patients ordered by last name.
func (h *PatientController) ListPatients(c *fiber.Ctx) error {
	patients, err := h.store.ListPatients(c.UserContext(), middleware.PractitionerID(c), strings.TrimSpace(c.Query("search")))
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, patients)
}

func (h *PatientController) GetPatient(c *fiber.Ctx) error {
	p, err := h.find(c)
	if err != nil {
		return fail(c, err)
	}
	recent, err := h.store.PatientAppointments(c.UserContext(), p.PractitionerID, p.ID, recentAppointments)
	if err != nil {
		return fail(c, err)
	}
	if recent == nil {
		recent = []models.Appointment{}
	}
	return utils.OK(c, PatientDetail{Patient: *p, RecentAppointments: recent})
}

func (h *PatientController) CreatePatient(c *fiber.Ctx) error {
	var req patientRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	p := &models.Patient{PractitionerID: middleware.PractitionerID(c)}
	if err := req.apply(p, h.loc); err != nil {
		return fail(c, err)
	}
	if err := h.store.CreatePatient(c.UserContext(), p); err != nil {
		return fail(c, err)
	}
	return utils.Created(c, p)
}

func (h *PatientController) UpdatePatient(c *fiber.Ctx) error {
	p, err := h.find(c)
	if err != nil {
		return fail(c, err)
	}
	var req patientRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if err := req.apply(p, h.loc); err != nil {
		return fail(c, err)
	}
	if err := h.store.SavePatient(c.UserContext(), p); err != nil {
		return fail(c, err)
	}
	return utils.OK(c, p)
}

// DeletePatient refuses with 409 while the patient has appointments.
func (h *PatientController) DeletePatient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.DeletePatient(c.UserContext(), middleware.PractitionerID(c), id); err != nil {
		return fail(c, err)
	}
	return utils.Message(c, "Patient deleted")
}

// AddPathology appends an entry to the patient's medical history.
func (h *PatientController) AddPathology(c *fiber.Ctx) error {
	p, err := h.find(c)
	if err != nil {
		return fail(c, err)
	}
	var entry models.MedicalHistoryEntry
	if err := bind(c, &entry); err != nil {
		return fail(c, err)
	}
	entry.CreatedAt = h.clock.Now()
	p.MedicalHistory = append(p.MedicalHistory, entry)

	if err := h.store.SavePatient(c.UserContext(), p); err != nil {
		return fail(c, err)
	}
	return utils.Created(c, p.MedicalHistory)
}

func (h *PatientController) PatientAppointments(c *fiber.Ctx) error {
	p, err := h.find(c)
	if err != nil {
		return fail(c, err)
	}
	appointments, err := h.store.PatientAppointments(c.UserContext(), p.PractitionerID, p.ID, 0)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, appointments)
}
