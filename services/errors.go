package services

import "errors"

var (
	ErrInvalidInput               = errors.New("invalid input")
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrEnrollmentNotFound         = errors.New("enrollment not found")
	ErrEnrollmentExists           = errors.New("decision already has an enrollment")
	ErrSupplyNotFound             = errors.New("monthly supply not found")
	ErrInvalidComplianceStatus    = errors.New("compliance status must be COMPLIANT or UNABLE")
	ErrComplianceAlreadySubmitted = errors.New("compliance already submitted for this supply")
	ErrOrganizationSuspended      = errors.New("School is suspended due to overdue screening milestones; cannot create shipments.")
	ErrSweepAlreadyRunning        = errors.New("job already running")
	ErrUnknownJob                 = errors.New("unknown job")
	ErrSweepRunNotFound           = errors.New("sweep run not found")
)
