package scheduling

import (
	"time"

	"github.com/dentiste/dental-api/config"
	"github.com/dentiste/dental-api/utils"
)

// Policy holds the practice wide scheduling rules.
type Policy struct {
	SlotDuration         time.Duration
	Location             *time.Location
	EnforceBusinessHours bool
	OpeningHour          int
	ClosingHour          int
}

func DefaultPolicy() Policy {
	return Policy{
		SlotDuration:         30 * time.Minute,
		Location:             time.UTC,
		EnforceBusinessHours: true,
		OpeningHour:          8,
		ClosingHour:          19,
	}
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		SlotDuration:         cfg.SlotDuration(),
		Location:             cfg.Location(),
		EnforceBusinessHours: cfg.BusinessHoursEnabled,
		OpeningHour:          cfg.OpeningHour,
		ClosingHour:          cfg.ClosingHour,
	}
}

// WithinBusinessHours checks the start time only: opening <= start < closing.
func (p Policy) WithinBusinessHours(start time.Time) bool {
	m := utils.MinuteOfDay(start, p.Location)
	return m >= p.OpeningHour*60 && m < p.ClosingHour*60
}

func (p Policy) slotMinutes() int {
	return int(p.SlotDuration / time.Minute)
}
