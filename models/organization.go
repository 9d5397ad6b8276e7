package models

import "time"

// SuspensionReasonOverdueMilestones is the fixed reason stored when an organization
// is suspended for lapsed re-screening checkpoints.
const SuspensionReasonOverdueMilestones = "Overdue 3/6-month screening milestone(s)."

// Organization is the owning school/NGO of enrollments. The accounts service owns the row;
// this service only writes the three assistance_* columns, and only through the
// enforcement evaluator.
type Organization struct {
	ID                         uint       `gorm:"column:id;primaryKey" json:"id"`
	Name                       string     `gorm:"column:name;size:255;not null" json:"name"`
	AssistanceSuspended        bool       `gorm:"column:assistance_suspended;not null;default:false" json:"assistance_suspended"`
	AssistanceSuspendedAt      *time.Time `gorm:"column:assistance_suspended_at" json:"assistance_suspended_at,omitempty"`
	AssistanceSuspensionReason string     `gorm:"column:assistance_suspension_reason;size:255;not null;default:''" json:"assistance_suspension_reason"`
	CreatedAt                  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }
