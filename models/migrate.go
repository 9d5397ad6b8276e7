package models

import "gorm.io/gorm"

// All lists every table owned (or partially written) by this service, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Organization{},
		&Enrollment{},
		&MonthlySupply{},
		&ComplianceSubmission{},
		&ScreeningEvent{},
		&ScreeningMilestone{},
		&ReminderLog{},
		&SweepRun{},
		&AuditLog{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
