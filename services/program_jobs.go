package services

import (
	"context"
	"fmt"
	"time"

	"supplement-program-api/config"
)

const (
	JobComplianceReminders = "compliance-reminders"
	JobMilestonesOverdue   = "milestones-overdue"
)

// RunOverdueSweep marks lapsed milestones OVERDUE and then re-evaluates every organization,
// so suspensions follow in the same pass.
func RunOverdueSweep(ctx context.Context, milestones *MilestoneService, enforcement *EnforcementService, today time.Time) (*JobResult, error) {
	marked, err := milestones.SweepOverdue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("sweep overdue milestones: %w", err)
	}
	summary, err := enforcement.EvaluateAll(ctx)
	result := &JobResult{Changed: int(marked)}
	if summary != nil {
		result.Processed = summary.Evaluated + summary.Failed
		result.Changed += summary.Suspended + summary.Unsuspended
		result.Failed = summary.Failed
	}
	if err != nil {
		return result, fmt.Errorf("evaluate organizations: %w", err)
	}
	return result, nil
}

// RegisterProgramJobs wires the two periodic program jobs into the scheduler.
func RegisterProgramJobs(s *Scheduler, p *Program, cfg config.ProgramConfig) {
	lock := func(name string) string {
		if cfg.JobLockPrefix == "" {
			return ""
		}
		return cfg.JobLockPrefix + ":" + name
	}

	s.Register(Job{
		Name:     JobComplianceReminders,
		Interval: cfg.ReminderInterval,
		LockName: lock(JobComplianceReminders),
		Run:      p.Reminders.RunComplianceReminders,
	})
	s.Register(Job{
		Name:     JobMilestonesOverdue,
		Interval: cfg.OverdueInterval,
		LockName: lock(JobMilestonesOverdue),
		Run: func(ctx context.Context) (*JobResult, error) {
			return RunOverdueSweep(ctx, p.Milestones, p.Enforcement, time.Time{})
		},
	})
}
