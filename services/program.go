package services

import (
	"supplement-program-api/config"

	"gorm.io/gorm"
)

// Program bundles the services of one process so handlers and commands share options.
type Program struct {
	Options     ProgramOptions
	Enrollments *EnrollmentService
	Deliveries  *DeliveryService
	Compliance  *ComplianceService
	Milestones  *MilestoneService
	Enforcement *EnforcementService
	Reminders   *ReminderService
	Dashboards  *DashboardService
	Runs        *SweepRunService
	Scheduler   *Scheduler
}

// NewProgram builds every service on db. The scheduler is created but has no jobs until
// RegisterProgramJobs is called.
func NewProgram(db *gorm.DB, opts ProgramOptions, notifier Notifier, publicBaseURL string, runJobsOnStart bool) *Program {
	if db == nil {
		db = config.DB
	}
	opts = opts.withDefaults()
	enforcement := NewEnforcementService(db, opts)
	milestones := NewMilestoneService(db, opts, enforcement)
	return &Program{
		Options:     opts,
		Enrollments: NewEnrollmentService(db, opts, milestones),
		Deliveries:  NewDeliveryService(db, opts),
		Compliance:  NewComplianceService(db, opts),
		Milestones:  milestones,
		Enforcement: enforcement,
		Reminders:   NewReminderService(db, opts, notifier, publicBaseURL),
		Dashboards:  NewDashboardService(db, opts),
		Runs:        NewSweepRunService(db),
		Scheduler:   NewScheduler(db, opts.Logger, runJobsOnStart),
	}
}
