// Package storetest provides an in-memory scheduling gateway for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
)

// Memory is an in-process gateway over maps. It has no transactions, so a
// failed fn inside WithPractitionerLock keeps whatever it already wrote.
type Memory struct {
	mu           sync.Mutex
	nextID       uint
	appointments map[uint]models.Appointment
	patients     map[uint]models.Patient

	lockMu sync.Mutex
	locks  map[uint]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		appointments: map[uint]models.Appointment{},
		patients:     map[uint]models.Patient{},
		locks:        map[uint]*sync.Mutex{},
	}
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

// AddPatient stores p, assigning an id when it has none.
func (m *Memory) AddPatient(p models.Patient) models.Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.patients[p.ID] = p
	return p
}

// AddAppointment stores a without any scheduling checks.
func (m *Memory) AddAppointment(a models.Appointment) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	m.appointments[a.ID] = a
	return a
}

// withPatient returns a copy of a with its patient attached. Caller holds mu.
func (m *Memory) withPatient(a models.Appointment) models.Appointment {
	if p, ok := m.patients[a.PatientID]; ok {
		a.Patient = &p
	}
	return a
}

func (m *Memory) FindAppointmentsByPractitionerAndDay(_ context.Context, practitionerID uint, dayStart, dayEnd time.Time, excludeID uint) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.appointments {
		if a.PractitionerID != practitionerID || a.Status == models.StatusCancelled {
			continue
		}
		if excludeID != 0 && a.ID == excludeID {
			continue
		}
		if a.StartTime.Before(dayStart) || !a.StartTime.Before(dayEnd) {
			continue
		}
		out = append(out, m.withPatient(a))
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) FindAppointment(_ context.Context, id, practitionerID uint) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.PractitionerID != practitionerID {
		return nil, nil
	}
	a = m.withPatient(a)
	return &a, nil
}

func (m *Memory) FindPatientByIDAndPractitioner(_ context.Context, patientID, practitionerID uint) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[patientID]
	if !ok || p.PractitionerID != practitionerID {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	row := *a
	row.Patient = nil
	m.appointments[a.ID] = row
	return nil
}

func (m *Memory) UpdateAppointment(_ context.Context, a *models.Appointment, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.appointments[a.ID]
	if !ok || row.PractitionerID != a.PractitionerID {
		return store.ErrNotFound
	}
	store.ApplyAppointmentFields(&row, fields)
	row.UpdatedAt = time.Now()
	m.appointments[a.ID] = row
	store.ApplyAppointmentFields(a, fields)
	return nil
}

func (m *Memory) DeleteAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.appointments[a.ID]
	if !ok || row.PractitionerID != a.PractitionerID {
		return store.ErrNotFound
	}
	delete(m.appointments, a.ID)
	return nil
}

// WithPractitionerLock serialises fn per practitioner with a mutex.
func (m *Memory) WithPractitionerLock(_ context.Context, practitionerID uint, fn func(scheduling.Gateway) error) error {
	m.lockMu.Lock()
	l, ok := m.locks[practitionerID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[practitionerID] = l
	}
	m.lockMu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(m)
}

func (m *Memory) ListAppointments(_ context.Context, practitionerID uint, f store.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.appointments {
		switch {
		case a.PractitionerID != practitionerID,
			!f.From.IsZero() && a.StartTime.Before(f.From),
			!f.To.IsZero() && !a.StartTime.Before(f.To),
			f.Status != "" && a.Status != f.Status,
			f.Kind != "" && a.Kind != f.Kind,
			f.PatientID != 0 && a.PatientID != f.PatientID:
			continue
		}
		out = append(out, m.withPatient(a))
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) UpcomingAppointments(ctx context.Context, practitionerID uint, now time.Time, limit int) ([]models.Appointment, error) {
	all, _ := m.ListAppointments(ctx, practitionerID, store.AppointmentFilter{From: now})
	out := make([]models.Appointment, 0, limit)
	for _, a := range all {
		if a.Status == models.StatusCancelled {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

func sortByStart(as []models.Appointment) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].StartTime.Equal(as[j].StartTime) {
			return as[i].ID < as[j].ID
		}
		return as[i].StartTime.Before(as[j].StartTime)
	})
}
