package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/store/storetest"
	"github.com/dentiste/dental-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	drA uint = 1
	drB uint = 2
)

var paris = mustLoad("Europe/Paris")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day string, hh, mm int) time.Time {
	d, err := utils.ParseDay(day, paris)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

type fixture struct {
	mem      *storetest.Memory
	sched    *scheduling.Scheduler
	patientA models.Patient
	patientB models.Patient
	observed *countingObserver
}

type countingObserver struct {
	mu       sync.Mutex
	created  int
	rejected map[string]int
}

func (o *countingObserver) AppointmentCreated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created++
}

func (o *countingObserver) Rejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[reason]++
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	mem := storetest.NewMemory()
	policy := scheduling.DefaultPolicy()
	policy.Location = paris
	obs := &countingObserver{rejected: map[string]int{}}

	return &fixture{
		mem:      mem,
		sched:    scheduling.New(mem, policy, scheduling.WithClock(utils.FixedClock(now)), scheduling.WithObserver(obs)),
		patientA: mem.AddPatient(models.Patient{PractitionerID: drA, LastName: "Dupont", FirstName: "Marie"}),
		patientB: mem.AddPatient(models.Patient{PractitionerID: drB, LastName: "Martin", FirstName: "Paul"}),
		observed: obs,
	}
}

func (f *fixture) create(t *testing.T, start time.Time) *models.Appointment {
	t.Helper()
	a, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: start})
	require.NoError(t, err)
	return a
}

func TestOverlaps(t *testing.T) {
	base := at("2024-06-10", 10, 0)
	tests := []struct {
		name           string
		bStart, bEnd   time.Time
		expectOverlaps bool
	}{
		{"touching after", base.Add(30 * time.Minute), base.Add(60 * time.Minute), false},
		{"touching before", base.Add(-30 * time.Minute), base, false},
		{"partial", base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"contained", base.Add(5 * time.Minute), base.Add(10 * time.Minute), true},
		{"identical", base, base.Add(30 * time.Minute), true},
		{"disjoint", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scheduling.Overlaps(base, base.Add(30*time.Minute), tt.bStart, tt.bEnd)
			assert.Equal(t, tt.expectOverlaps, got)
			// symmetric
			assert.Equal(t, tt.expectOverlaps, scheduling.Overlaps(tt.bStart, tt.bEnd, base, base.Add(30*time.Minute)))
		})
	}
}

func TestCreate_ConflictScenario(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	ctx := context.Background()

	first := f.create(t, at("2024-06-10", 10, 0))
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, 30, first.DurationMinutes)
	assert.Equal(t, models.DefaultKind, first.Kind)

	_, err := f.sched.Create(ctx, drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: at("2024-06-10", 10, 15)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduling.ErrSchedulingConflict))

	var ce *scheduling.ConflictError
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Conflicts, 1)
	c := ce.Conflicts[0]
	assert.Equal(t, first.ID, c.AppointmentID)
	assert.Equal(t, "Dupont Marie", c.PatientName)
	assert.Equal(t, "10:00", c.StartTime)
	assert.Equal(t, "10:30", c.EndTime)
	assert.Equal(t, "Dupont Marie (10:00-10:30)", ce.Summary())

	second, err := f.sched.Create(ctx, drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: at("2024-06-10", 10, 30)})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, 2, f.observed.created)
	assert.Equal(t, 1, f.observed.rejected["conflict"])
}

func TestCreate_IdenticalRepeatConflicts(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	f.create(t, at("2024-06-10", 14, 0))

	_, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: at("2024-06-10", 14, 0)})
	assert.ErrorIs(t, err, scheduling.ErrSchedulingConflict)
}

func TestCreate_CancelledDoesNotBlock(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	a := f.create(t, at("2024-06-10", 11, 0))
	_, err := f.sched.Cancel(context.Background(), drA, a.ID)
	require.NoError(t, err)

	f.create(t, at("2024-06-10", 11, 0))
}

func TestCreate_PractitionersAreIsolated(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	ctx := context.Background()
	f.create(t, at("2024-06-10", 10, 0))

	b, err := f.sched.Create(ctx, drB, scheduling.CreateInput{PatientID: f.patientB.ID, Start: at("2024-06-10", 10, 0)})
	require.NoError(t, err)
	assert.Equal(t, drB, b.PractitionerID)
}

func TestCreate_PatientMustBelongToPractitioner(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))

	_, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientB.ID, Start: at("2024-06-10", 10, 0)})
	assert.ErrorIs(t, err, scheduling.ErrPatientNotFound)
	assert.ErrorIs(t, err, scheduling.ErrNotFound)

	_, err = f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: 999, Start: at("2024-06-10", 10, 0)})
	assert.ErrorIs(t, err, scheduling.ErrNotFound)
}

func TestCreate_BusinessHours(t *testing.T) {
	tests := []struct {
		name    string
		hh, mm  int
		wantErr error
	}{
		{"before opening", 7, 59, scheduling.ErrOutOfHours},
		{"at closing", 19, 0, scheduling.ErrOutOfHours},
		{"at opening", 8, 0, nil},
		{"last minute", 18, 59, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, at("2024-06-01", 9, 0))
			_, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{
				PatientID: f.patientA.ID,
				Start:     at("2024-06-10", tt.hh, tt.mm),
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreate_BusinessHoursDisabled(t *testing.T) {
	mem := storetest.NewMemory()
	p := mem.AddPatient(models.Patient{PractitionerID: drA, LastName: "Dupont"})
	policy := scheduling.DefaultPolicy()
	policy.Location = paris
	policy.EnforceBusinessHours = false
	s := scheduling.New(mem, policy, scheduling.WithClock(utils.FixedClock(at("2024-06-01", 9, 0))))

	_, err := s.Create(context.Background(), drA, scheduling.CreateInput{PatientID: p.ID, Start: at("2024-06-10", 21, 0)})
	assert.NoError(t, err)
}

func TestCreate_InPast(t *testing.T) {
	f := newFixture(t, at("2024-06-10", 12, 0))

	_, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: at("2024-06-10", 11, 0)})
	assert.ErrorIs(t, err, scheduling.ErrInPast)
	assert.Equal(t, 1, f.observed.rejected["in_past"])
}

func TestCreate_TimeRulesCheckedBeforeConflicts(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 18, 45), DurationMinutes: 60})

	_, err := f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: at("2024-06-10", 19, 0)})
	assert.ErrorIs(t, err, scheduling.ErrOutOfHours)
}

func TestCheckConflict_UsesStoredDuration(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	long := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 9, 0), DurationMinutes: 90})
	f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 14, 0)})

	conflicts, err := f.sched.CheckConflict(context.Background(), drA, at("2024-06-10", 10, 0), 30*time.Minute, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, long.ID, conflicts[0].AppointmentID)
	assert.Equal(t, "10:30", conflicts[0].EndTime)

	// unset duration falls back to the slot length
	conflicts, err = f.sched.CheckConflict(context.Background(), drA, at("2024-06-10", 14, 30), 30*time.Minute, 0)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	conflicts, err = f.sched.CheckConflict(context.Background(), drA, at("2024-06-10", 14, 29), 30*time.Minute, 0)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestCheckConflict_OnlySameLocalDay(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	// 23:45 Paris on the 9th runs into the 10th but is a different calendar day
	f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-09", 23, 45), DurationMinutes: 30})

	conflicts, err := f.sched.CheckConflict(context.Background(), drA, at("2024-06-10", 0, 0), 30*time.Minute, 0)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckConflict_ReadOnly(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	f.create(t, at("2024-06-10", 10, 0))

	before, _ := f.mem.ListAppointments(context.Background(), drA, store.AppointmentFilter{})
	_, err := f.sched.CheckConflict(context.Background(), drA, at("2024-06-10", 10, 0), 0, 0)
	require.NoError(t, err)
	after, _ := f.mem.ListAppointments(context.Background(), drA, store.AppointmentFilter{})
	assert.Equal(t, before, after)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("onto its own slot", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		start := at("2024-06-10", 10, 15)

		got, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Start: &start})
		require.NoError(t, err)
		assert.True(t, got.StartTime.Equal(start))
	})

	t.Run("onto another appointment", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		f.create(t, at("2024-06-10", 10, 0))
		b := f.create(t, at("2024-06-10", 11, 0))
		start := at("2024-06-10", 10, 20)

		_, err := f.sched.Reschedule(ctx, drA, b.ID, scheduling.RescheduleInput{Start: &start})
		assert.ErrorIs(t, err, scheduling.ErrSchedulingConflict)

		stored, _ := f.mem.FindAppointment(ctx, b.ID, drA)
		assert.True(t, stored.StartTime.Equal(at("2024-06-10", 11, 0)))
	})

	t.Run("past start allowed when completing", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-20", 10, 0), Status: models.StatusConfirmed})
		start := at("2024-05-30", 10, 0)
		completed := models.StatusCompleted

		got, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Start: &start, Status: &completed})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)

		b := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-20", 12, 0), Status: models.StatusConfirmed})
		_, err = f.sched.Reschedule(ctx, drA, b.ID, scheduling.RescheduleInput{Start: &start})
		assert.ErrorIs(t, err, scheduling.ErrInPast)
	})

	t.Run("out of hours", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		start := at("2024-06-10", 7, 30)

		_, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Start: &start})
		assert.ErrorIs(t, err, scheduling.ErrOutOfHours)
	})

	t.Run("invalid transition", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		completed := models.StatusCompleted

		_, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Status: &completed})
		require.ErrorIs(t, err, scheduling.ErrInvalidTransition)
		var te *scheduling.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, models.StatusPending, te.From)
		assert.Equal(t, models.StatusCompleted, te.To)
		assert.Contains(t, err.Error(), "pending")
		assert.Contains(t, err.Error(), "completed")
	})

	t.Run("terminal appointment cannot move", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 10, 0), Status: models.StatusCancelled})
		start := at("2024-06-11", 10, 0)

		_, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Start: &start})
		assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
	})

	t.Run("other practitioner", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		notes := "x"

		_, err := f.sched.Reschedule(ctx, drB, a.ID, scheduling.RescheduleInput{Notes: &notes})
		assert.ErrorIs(t, err, scheduling.ErrAppointmentNotFound)
	})

	t.Run("other fields", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		other := f.mem.AddPatient(models.Patient{PractitionerID: drA, LastName: "Bernard", FirstName: "Luc"})
		kind, notes := "detartrage", "bring x-rays"

		got, err := f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Kind: &kind, Notes: &notes, PatientID: &other.ID})
		require.NoError(t, err)
		assert.Equal(t, "detartrage", got.Kind)
		assert.Equal(t, "bring x-rays", got.Notes)
		assert.Equal(t, other.ID, got.PatientID)
		require.NotNil(t, got.Patient)
		assert.Equal(t, "Bernard", got.Patient.LastName)

		foreign := f.patientB.ID
		_, err = f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{PatientID: &foreign})
		assert.ErrorIs(t, err, scheduling.ErrPatientNotFound)
	})
}

func TestStartedAppointmentIsFrozen(t *testing.T) {
	ctx := context.Background()
	cancelled, confirmed := models.StatusCancelled, models.StatusConfirmed
	notes := "late"
	later := at("2024-06-11", 10, 0)

	newStarted := func(t *testing.T, status models.AppointmentStatus) (*fixture, models.Appointment) {
		f := newFixture(t, at("2024-06-10", 12, 0))
		a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 10, 0), Status: status})
		return f, a
	}

	t.Run("reschedule rejected", func(t *testing.T) {
		for _, in := range []scheduling.RescheduleInput{
			{Status: &cancelled},
			{Status: &confirmed},
			{Notes: &notes},
			{Start: &later},
		} {
			f, a := newStarted(t, models.StatusPending)
			_, err := f.sched.Reschedule(ctx, drA, a.ID, in)
			assert.ErrorIs(t, err, scheduling.ErrAlreadyPast)

			stored, _ := f.mem.FindAppointment(ctx, a.ID, drA)
			assert.Equal(t, models.StatusPending, stored.Status)
			assert.Empty(t, stored.Notes)
		}
	})

	t.Run("status rejected", func(t *testing.T) {
		f, a := newStarted(t, models.StatusPending)
		_, err := f.sched.UpdateStatus(ctx, drA, a.ID, models.StatusCancelled, true)
		assert.ErrorIs(t, err, scheduling.ErrAlreadyPast)

		_, err = f.sched.UpdateStatus(ctx, drA, a.ID, models.StatusConfirmed, false)
		assert.ErrorIs(t, err, scheduling.ErrAlreadyPast)
	})

	t.Run("completion allowed", func(t *testing.T) {
		f, a := newStarted(t, models.StatusConfirmed)
		got, err := f.sched.UpdateStatus(ctx, drA, a.ID, models.StatusCompleted, false)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)

		f, a = newStarted(t, models.StatusConfirmed)
		completed := models.StatusCompleted
		got, err = f.sched.Reschedule(ctx, drA, a.ID, scheduling.RescheduleInput{Status: &completed, Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, "late", got.Notes)
	})

	t.Run("admin marks missed", func(t *testing.T) {
		f, a := newStarted(t, models.StatusPending)
		got, err := f.sched.UpdateStatus(ctx, drA, a.ID, models.StatusMissed, true)
		require.NoError(t, err)
		assert.Equal(t, models.StatusMissed, got.Status)
	})

	t.Run("transition checked first", func(t *testing.T) {
		f, a := newStarted(t, models.StatusCompleted)
		_, err := f.sched.UpdateStatus(ctx, drA, a.ID, models.StatusCancelled, false)
		assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		from    models.AppointmentStatus
		to      models.AppointmentStatus
		admin   bool
		allowed bool
	}{
		{"pending to confirmed", models.StatusPending, models.StatusConfirmed, false, true},
		{"pending to cancelled", models.StatusPending, models.StatusCancelled, false, true},
		{"pending to completed", models.StatusPending, models.StatusCompleted, false, false},
		{"confirmed to completed", models.StatusConfirmed, models.StatusCompleted, false, true},
		{"cancelled to confirmed", models.StatusCancelled, models.StatusConfirmed, false, false},
		{"completed to cancelled", models.StatusCompleted, models.StatusCancelled, false, false},
		{"pending to pending", models.StatusPending, models.StatusPending, false, false},
		{"confirmed to confirmed", models.StatusConfirmed, models.StatusConfirmed, true, false},
		{"missed needs admin", models.StatusConfirmed, models.StatusMissed, false, false},
		{"admin marks missed", models.StatusConfirmed, models.StatusMissed, true, true},
		{"admin missed from pending", models.StatusPending, models.StatusMissed, true, true},
		{"admin missed from completed", models.StatusCompleted, models.StatusMissed, true, false},
		{"missed is terminal", models.StatusMissed, models.StatusConfirmed, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, at("2024-06-01", 9, 0))
			a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 10, 0), Status: tt.from})

			got, err := f.sched.UpdateStatus(ctx, drA, a.ID, tt.to, tt.admin)
			stored, _ := f.mem.FindAppointment(ctx, a.ID, drA)
			if !tt.allowed {
				assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			assert.Equal(t, tt.to, stored.Status)
		})
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("future pending", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.create(t, at("2024-06-10", 10, 0))
		got, err := f.sched.Cancel(ctx, drA, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
	})

	t.Run("already started", func(t *testing.T) {
		f := newFixture(t, at("2024-06-10", 10, 5))
		a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 10, 0), Status: models.StatusConfirmed})
		_, err := f.sched.Cancel(ctx, drA, a.ID)
		assert.ErrorIs(t, err, scheduling.ErrAlreadyPast)
	})

	t.Run("completed", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		a := f.mem.AddAppointment(models.Appointment{PractitionerID: drA, PatientID: f.patientA.ID, StartTime: at("2024-06-10", 10, 0), Status: models.StatusCompleted})
		_, err := f.sched.Cancel(ctx, drA, a.ID)
		assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t, at("2024-06-01", 9, 0))
		_, err := f.sched.Cancel(ctx, drA, 404)
		assert.ErrorIs(t, err, scheduling.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	ctx := context.Background()
	a := f.create(t, at("2024-06-10", 10, 0))

	assert.ErrorIs(t, f.sched.Delete(ctx, drB, a.ID), scheduling.ErrNotFound)
	require.NoError(t, f.sched.Delete(ctx, drA, a.ID))

	stored, err := f.mem.FindAppointment(ctx, a.ID, drA)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// the slot is free again
	f.create(t, at("2024-06-10", 10, 0))
}

func TestCreate_ConcurrentRequestsOnlyOneWins(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	const n = 10

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every request overlaps 10:00-10:30
			start := at("2024-06-10", 10, i)
			_, errs[i] = f.sched.Create(context.Background(), drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: start})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, scheduling.ErrSchedulingConflict)
	}
	assert.Equal(t, 1, succeeded)

	all, err := f.mem.ListAppointments(context.Background(), drA, store.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNoOverlapsAfterRandomisedBookings(t *testing.T) {
	f := newFixture(t, at("2024-06-01", 9, 0))
	ctx := context.Background()

	for minute := 0; minute < 10*60; minute += 7 {
		start := at("2024-06-10", 8, 0).Add(time.Duration(minute) * time.Minute)
		_, err := f.sched.Create(ctx, drA, scheduling.CreateInput{PatientID: f.patientA.ID, Start: start})
		if err != nil {
			require.ErrorIs(t, err, scheduling.ErrSchedulingConflict)
		}
	}

	all, err := f.mem.ListAppointments(ctx, drA, store.AppointmentFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		prev := all[i-1]
		assert.False(t, all[i].StartTime.Before(prev.EndTime(30*time.Minute)),
			"appointment %d overlaps %d", all[i].ID, prev.ID)
	}
}
