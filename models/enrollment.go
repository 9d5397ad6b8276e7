package models

import "time"

const (
	EnrollmentStatusActive    = "ACTIVE"
	EnrollmentStatusCompleted = "COMPLETED"
	EnrollmentStatusStopped   = "STOPPED"
)

// ProgramDays is the length of a program run; end_date = start_date + ProgramDays.
const ProgramDays = 180

// Enrollment is one approved beneficiary's program run. Exactly one per approving decision.
type Enrollment struct {
	ID             uint      `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index:idx_enrollment_org_status,priority:1" json:"organization_id"`
	BeneficiaryID  uint      `gorm:"column:beneficiary_id;not null;index" json:"beneficiary_id"`
	DecisionID     uint      `gorm:"column:decision_id;not null;uniqueIndex" json:"decision_id"`
	StartDate      time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"column:end_date;not null" json:"end_date"`
	Status         string    `gorm:"column:status;type:varchar(16);not null;default:'ACTIVE';index:idx_enrollment_org_status,priority:2" json:"status"`
	ApprovedBy     *uint     `gorm:"column:approved_by" json:"approved_by,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Organization *Organization        `gorm:"foreignKey:OrganizationID" json:"-"`
	Supplies     []MonthlySupply      `gorm:"foreignKey:EnrollmentID" json:"supplies,omitempty"`
	Milestones   []ScreeningMilestone `gorm:"foreignKey:EnrollmentID" json:"milestones,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }

func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
