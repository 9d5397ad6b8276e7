package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ComplianceStatusNotSubmitted = "NOT_SUBMITTED"
	ComplianceStatusCompliant    = "COMPLIANT"
	ComplianceStatusUnable       = "UNABLE"
)

type ComplianceSubmission struct {
	ID              uint           `gorm:"column:id;primaryKey" json:"id"`
	MonthlySupplyID uint           `gorm:"column:monthly_supply_id;not null;uniqueIndex" json:"monthly_supply_id"`
	Status          string         `gorm:"column:status;type:varchar(16);not null;default:'NOT_SUBMITTED';index:idx_compliance_status_created,priority:1" json:"status"`
	SubmittedAt     *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	Responses       datatypes.JSON `gorm:"column:responses" json:"responses,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime;index:idx_compliance_status_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ComplianceSubmission) TableName() string { return "compliance_submissions" }

func (c *ComplianceSubmission) IsSubmitted() bool {
	return c.Status != ComplianceStatusNotSubmitted
}
