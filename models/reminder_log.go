package models

import "time"

const ReminderTemplateCompliance = "COMPLIANCE_REMINDER_V1"

const (
	ReminderStatusQueued = "QUEUED"
	ReminderStatusSent   = "SENT"
	ReminderStatusFailed = "FAILED"
)

type ReminderLog struct {
	ID                uint      `gorm:"primaryKey;column:id" json:"id"`
	IdempotencyKey    string    `gorm:"column:idempotency_key;size:36;not null;uniqueIndex" json:"idempotency_key"`
	OrganizationID    uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	MonthlySupplyID   uint      `gorm:"column:monthly_supply_id;not null;index:idx_reminder_supply_sent,priority:1" json:"monthly_supply_id"`
	TemplateCode      string    `gorm:"column:template_code;size:64;not null" json:"template_code"`
	Channel           string    `gorm:"column:channel;size:16;not null" json:"channel"`
	Status            string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ProviderMessageID string    `gorm:"column:provider_message_id;size:128" json:"provider_message_id,omitempty"`
	Error             string    `gorm:"column:error;size:255" json:"error,omitempty"`
	SentAt            time.Time `gorm:"column:sent_at;not null;index:idx_reminder_supply_sent,priority:2" json:"sent_at"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ReminderLog) TableName() string { return "reminder_logs" }
