package models

import "time"

const (
	SweepRunStatusRunning = "running"
	SweepRunStatusSuccess = "success"
	SweepRunStatusFailed  = "failed"
)

// SweepRun records one execution of a background job.
type SweepRun struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	JobName       string     `json:"job_name" gorm:"column:job_name;type:varchar(64);not null;index:idx_sweep_run_job_started,priority:1"`
	TriggerSource string     `json:"trigger_source" gorm:"column:trigger_source;type:varchar(64);not null"`
	Status        string     `json:"status" gorm:"column:status;type:varchar(16);not null;default:'running'"`
	ErrorMessage  *string    `json:"error_message" gorm:"column:error_message;type:text"`
	StartedAt     time.Time  `json:"started_at" gorm:"column:started_at;index:idx_sweep_run_job_started,priority:2"`
	FinishedAt    *time.Time `json:"finished_at" gorm:"column:finished_at"`

	ItemsProcessed uint `json:"items_processed" gorm:"column:items_processed;not null;default:0"`
	ItemsChanged   uint `json:"items_changed" gorm:"column:items_changed;not null;default:0"`
	ItemsFailed    uint `json:"items_failed" gorm:"column:items_failed;not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (SweepRun) TableName() string { return "sweep_runs" }
