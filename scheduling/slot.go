package scheduling

import (
	"fmt"
	"time"

	"github.com/dentiste/dental-api/models"
)

// Overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd)
// share at least one instant. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflict describes an existing appointment that overlaps a proposed slot.
type Conflict struct {
	AppointmentID uint                     `json:"appointmentId"`
	PatientID     uint                     `json:"patientId"`
	PatientName   string                   `json:"patientName"`
	Status        models.AppointmentStatus `json:"status"`
	Start         time.Time                `json:"start"`
	End           time.Time                `json:"end"`
	StartTime     string                   `json:"startTime"`
	EndTime       string                   `json:"endTime"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s (%s-%s)", c.PatientName, c.StartTime, c.EndTime)
}
