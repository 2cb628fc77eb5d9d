package cron

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/utils"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSpec runs the reminder job every five minutes.
const DefaultSpec = "*/5 * * * *"

type ReminderStore interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	MarkReminderSent(ctx context.Context, id uint, at time.Time) error
}

type Sender interface {
	Send(to, subject, body string) error
}

// Recorder is told about every delivery attempt.
type Recorder interface {
	ReminderSent(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) ReminderSent(bool) {}

// Reminders e-mails patients whose confirmed appointment starts within the
// lead time. Each appointment is reminded at most once.
type Reminders struct {
	store    ReminderStore
	sender   Sender
	recorder Recorder
	clock    utils.Clock
	loc      *time.Location
	lead     time.Duration
	log      zerolog.Logger
}

type ReminderOptions struct {
	Lead     time.Duration
	Location *time.Location
	Clock    utils.Clock
	Recorder Recorder
	Logger   zerolog.Logger
}

func NewReminders(st ReminderStore, sender Sender, opts ReminderOptions) *Reminders {
	r := &Reminders{
		store:    st,
		sender:   sender,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		loc:      opts.Location,
		lead:     opts.Lead,
		log:      opts.Logger.With().Str("component", "reminders").Logger(),
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.clock == nil {
		r.clock = utils.SystemClock
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.lead <= 0 {
		r.lead = time.Hour
	}
	return r
}

// Run sends the reminders due now and returns how many went out. Delivery
// failures are logged and retried on the next run.
func (r *Reminders) Run(ctx context.Context) (int, error) {
	now := r.clock.Now()
	due, err := r.store.DueReminders(ctx, now, now.Add(r.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		a := &due[i]
		if a.Patient == nil || a.Patient.Email == "" {
			continue
		}
		if err := r.sender.Send(a.Patient.Email, reminderSubject(a, r.loc), reminderBody(a, r.loc)); err != nil {
			r.recorder.ReminderSent(false)
			r.log.Warn().Err(err).Uint("appointment_id", a.ID).Msg("reminder not sent")
			continue
		}
		if err := r.store.MarkReminderSent(ctx, a.ID, now); err != nil {
			return sent, err
		}
		r.recorder.ReminderSent(true)
		sent++
	}

	if sent > 0 {
		r.log.Info().Int("sent", sent).Int("due", len(due)).Msg("reminders sent")
	}
	return sent, nil
}

func reminderSubject(a *models.Appointment, loc *time.Location) string {
	return fmt.Sprintf("Rappel : rendez-vous le %s à %s",
		a.StartTime.In(loc).Format("02/01/2006"), utils.FormatHM(a.StartTime, loc))
}

func reminderBody(a *models.Appointment, loc *time.Location) string {
	return fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Nous vous rappelons votre rendez-vous (%s) le <strong>%s à %s</strong>.</p>
<p>En cas d'empêchement, merci de prévenir le cabinet au plus tôt.</p>`,
		html.EscapeString(a.Patient.FirstName+" "+a.Patient.LastName),
		html.EscapeString(a.Kind),
		a.StartTime.In(loc).Format("02/01/2006"),
		utils.FormatHM(a.StartTime, loc))
}

// Start schedules r on spec and starts the cron runner. Stop the returned
// runner on shutdown.
func Start(r *Reminders, spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.log.Error().Err(err).Msg("reminder run failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	c.Start()
	r.log.Info().Str("spec", spec).Dur("lead", r.lead).Msg("reminder job started")
	return c, nil
}
