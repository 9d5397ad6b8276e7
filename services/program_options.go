package services

import (
	"time"

	"supplement-program-api/config"
	"supplement-program-api/utils"

	"go.uber.org/zap"
)

// Clock abstracts wall-clock time so sweeps can be run "as of" a given instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

// ProgramOptions carries the program-wide tunables shared by every service.
type ProgramOptions struct {
	Location  *time.Location
	Clock     Clock
	Logger    *zap.Logger
	GraceDays int

	// AllowResubmission lets a supply's compliance record be overwritten after the first submission.
	AllowResubmission bool
	// RecomputeDueOnRedelivery recomputes compliance_due_at when a delivered supply is marked delivered again.
	RecomputeDueOnRedelivery bool
}

// DefaultProgramOptions mirrors the configuration defaults, using the process time zone.
func DefaultProgramOptions() ProgramOptions {
	return ProgramOptions{
		Location:          time.Local,
		Clock:             SystemClock,
		AllowResubmission: true,
	}
}

// ProgramOptionsFromConfig builds options from the loaded configuration.
func ProgramOptionsFromConfig(cfg config.ProgramConfig, logger *zap.Logger) (ProgramOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ProgramOptions{}, err
	}
	return ProgramOptions{
		Location:                 loc,
		Clock:                    SystemClock,
		Logger:                   logger,
		GraceDays:                cfg.MilestoneGraceDays,
		AllowResubmission:        cfg.AllowResubmission,
		RecomputeDueOnRedelivery: cfg.RecomputeDueOnRedelivery,
	}, nil
}

func (o ProgramOptions) withDefaults() ProgramOptions {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.Logger == nil {
		o.Logger = config.Logger
	}
	if o.GraceDays < 0 {
		o.GraceDays = 0
	}
	return o
}

func (o ProgramOptions) now() time.Time {
	return o.Clock.Now().UTC()
}

// today is the current civil date in the program time zone.
func (o ProgramOptions) today() time.Time {
	return utils.DateOnly(o.Clock.Now(), o.Location)
}
