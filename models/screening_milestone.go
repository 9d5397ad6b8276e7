package models

import "time"

const (
	MilestoneMonth3 = "MONTH_3"
	MilestoneMonth6 = "MONTH_6"
)

const (
	MilestoneStatusDue       = "DUE"
	MilestoneStatusOverdue   = "OVERDUE"
	MilestoneStatusCompleted = "COMPLETED"
)

// MilestoneOffsets maps each checkpoint to its due offset in days from the enrollment start.
var MilestoneOffsets = []struct {
	Name string
	Days int
}{
	{Name: MilestoneMonth3, Days: 90},
	{Name: MilestoneMonth6, Days: 180},
}

// ScreeningMilestone is a scheduled re-screening checkpoint. OVERDUE is not terminal: a later
// qualifying screening event still completes it.
type ScreeningMilestone struct {
	ID               uint       `gorm:"column:id;primaryKey" json:"id"`
	EnrollmentID     uint       `gorm:"column:enrollment_id;not null;uniqueIndex:idx_milestone_enrollment_name,priority:1" json:"enrollment_id"`
	Milestone        string     `gorm:"column:milestone;type:varchar(16);not null;uniqueIndex:idx_milestone_enrollment_name,priority:2" json:"milestone"`
	DueOn            time.Time  `gorm:"column:due_on;not null;index:idx_milestone_status_due,priority:2" json:"due_on"`
	Status           string     `gorm:"column:status;type:varchar(16);not null;default:'DUE';index:idx_milestone_status_due,priority:1" json:"status"`
	CompletedEventID *uint      `gorm:"column:completed_event_id" json:"completed_event_id,omitempty"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Enrollment     *Enrollment     `gorm:"foreignKey:EnrollmentID" json:"-"`
	CompletedEvent *ScreeningEvent `gorm:"foreignKey:CompletedEventID" json:"-"`
}

func (ScreeningMilestone) TableName() string { return "screening_milestones" }
