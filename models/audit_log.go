package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditEnrollmentCreated   = "ENROLLMENT_CREATED"
	AuditSupplyDelivered     = "SUPPLY_DELIVERED"
	AuditComplianceSubmitted = "COMPLIANCE_SUBMITTED"
	AuditQROpened            = "QR_OPENED"
	AuditMilestoneCompleted  = "MILESTONE_COMPLETED"
	AuditOrgSuspended        = "ORG_SUSPENDED"
	AuditOrgUnsuspended      = "ORG_UNSUSPENDED"
)

type AuditLog struct {
	ID             uint           `gorm:"primaryKey;column:id" json:"id"`
	OrganizationID uint           `gorm:"column:organization_id;not null;index:idx_audit_org_action_created,priority:1" json:"organization_id"`
	ActorID        *uint          `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Action         string         `gorm:"column:action;size:64;not null;index:idx_audit_org_action_created,priority:2" json:"action"`
	TargetModel    string         `gorm:"column:target_model;size:64" json:"target_model"`
	TargetID       string         `gorm:"column:target_id;size:64" json:"target_id"`
	Payload        datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime;index:idx_audit_org_action_created,priority:3" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
