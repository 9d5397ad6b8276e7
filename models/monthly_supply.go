package models

import (
	"time"

	"gorm.io/gorm"
)

// SuppliesPerEnrollment is the number of monthly supplies bootstrapped for each enrollment.
const SuppliesPerEnrollment = 6

// MonthlySupply is one month's physical allocation. Token is printed on the package label
// and is the only credential needed to look the supply up or submit its compliance.
type MonthlySupply struct {
	ID                    uint       `gorm:"column:id;primaryKey" json:"id"`
	EnrollmentID          uint       `gorm:"column:enrollment_id;not null;uniqueIndex:idx_supply_enrollment_month,priority:1" json:"enrollment_id"`
	MonthIndex            int        `gorm:"column:month_index;not null;uniqueIndex:idx_supply_enrollment_month,priority:2" json:"month_index"`
	ScheduledDeliveryDate *time.Time `gorm:"column:scheduled_delivery_date" json:"scheduled_delivery_date,omitempty"`
	DeliveredOn           *time.Time `gorm:"column:delivered_on;index" json:"delivered_on,omitempty"`
	ComplianceDueAt       *time.Time `gorm:"column:compliance_due_at;index" json:"compliance_due_at,omitempty"`
	Token                 string     `gorm:"column:token;size:96;not null;uniqueIndex" json:"-"`
	OkToShipNext          bool       `gorm:"column:ok_to_ship_next;not null;default:false" json:"ok_to_ship_next"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Enrollment *Enrollment           `gorm:"foreignKey:EnrollmentID" json:"-"`
	Compliance *ComplianceSubmission `gorm:"foreignKey:MonthlySupplyID" json:"compliance,omitempty"`
}

func (MonthlySupply) TableName() string { return "monthly_supplies" }

// AfterCreate guarantees every supply has exactly one compliance record from the moment it exists.
func (s *MonthlySupply) AfterCreate(tx *gorm.DB) error {
	comp := ComplianceSubmission{MonthlySupplyID: s.ID, Status: ComplianceStatusNotSubmitted}
	return tx.Where(ComplianceSubmission{MonthlySupplyID: s.ID}).FirstOrCreate(&comp).Error
}

func (s *MonthlySupply) IsDelivered() bool {
	return s.DeliveredOn != nil
}
