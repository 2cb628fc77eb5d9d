package db

import (
	"fmt"

	"github.com/dentiste/dental-api/models"
	"gorm.io/gorm"
)

// indexes that AutoMigrate cannot express through struct tags.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_appointments_reminder_due
		ON appointments (start_time)
		WHERE status = 'confirmed' AND reminder_sent_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_patients_practitioner_name
		ON patients (practitioner_id, last_name, first_name)`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_practitioner_date
		ON prescriptions (practitioner_id, date DESC)`,
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Patient{},
		&models.Appointment{},
		&models.Prescription{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
