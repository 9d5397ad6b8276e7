package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScreeningEvent is the local record of a qualifying screening published by the screening
// service. ExternalRef makes redelivery idempotent.
type ScreeningEvent struct {
	ID             uint           `gorm:"column:id;primaryKey" json:"id"`
	ExternalRef    string         `gorm:"column:external_ref;size:128;not null;uniqueIndex" json:"external_ref"`
	OrganizationID uint           `gorm:"column:organization_id;not null;index:idx_screening_event_org_beneficiary,priority:1" json:"organization_id"`
	BeneficiaryID  uint           `gorm:"column:beneficiary_id;not null;index:idx_screening_event_org_beneficiary,priority:2" json:"beneficiary_id"`
	OccurredAt     time.Time      `gorm:"column:occurred_at;not null" json:"occurred_at"`
	Payload        datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ScreeningEvent) TableName() string { return "screening_events" }
