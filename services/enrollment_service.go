package services

import (
	"context"
	"errors"
	"fmt"

	"supplement-program-api/config"
	"supplement-program-api/models"
	"supplement-program-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApprovalDecision is the approved request handed over by the approval workflow.
type ApprovalDecision struct {
	DecisionID     uint `json:"decision_id"`
	OrganizationID uint `json:"organization_id"`
	BeneficiaryID  uint `json:"beneficiary_id"`
}

func (d ApprovalDecision) validate() error {
	switch {
	case d.DecisionID == 0:
		return fmt.Errorf("%w: decision_id is required", ErrInvalidInput)
	case d.OrganizationID == 0:
		return fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	case d.BeneficiaryID == 0:
		return fmt.Errorf("%w: beneficiary_id is required", ErrInvalidInput)
	}
	return nil
}

// BackfillSummary counts rows created by a backfill pass.
type BackfillSummary struct {
	Enrollments       int `json:"enrollments"`
	SuppliesCreated   int `json:"supplies_created"`
	MilestonesCreated int `json:"milestones_created"`
	Failed            int `json:"failed"`
}

type EnrollmentService struct {
	db         *gorm.DB
	opts       ProgramOptions
	milestones *MilestoneService
}

func NewEnrollmentService(db *gorm.DB, opts ProgramOptions, milestones *MilestoneService) *EnrollmentService {
	if db == nil {
		db = config.DB
	}
	opts = opts.withDefaults()
	if milestones == nil {
		milestones = NewMilestoneService(db, opts, nil)
	}
	return &EnrollmentService{db: db, opts: opts, milestones: milestones}
}

// CreateEnrollment turns an approved decision into an enrollment with its six monthly
// supplies, their compliance records and both screening milestones, all or nothing.
func (s *EnrollmentService) CreateEnrollment(ctx context.Context, decision ApprovalDecision, approverID *uint) (*models.Enrollment, error) {
	if err := decision.validate(); err != nil {
		return nil, err
	}

	start := s.opts.today()
	enrollment := &models.Enrollment{
		OrganizationID: decision.OrganizationID,
		BeneficiaryID:  decision.BeneficiaryID,
		DecisionID:     decision.DecisionID,
		StartDate:      start,
		EndDate:        utils.AddDays(start, models.ProgramDays),
		Status:         models.EnrollmentStatusActive,
		ApprovedBy:     approverID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.Select("id").First(&org, decision.OrganizationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Enrollment{}).Where("decision_id = ?", decision.DecisionID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEnrollmentExists
		}

		if err := tx.Create(enrollment).Error; err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		if _, err := s.BootstrapSupplies(tx, enrollment); err != nil {
			return err
		}
		if _, err := s.milestones.Bootstrap(tx, enrollment); err != nil {
			return err
		}
		return recordAudit(tx, enrollment.OrganizationID, approverID, models.AuditEnrollmentCreated, "Enrollment", enrollment.ID,
			map[string]interface{}{"decision_id": decision.DecisionID, "beneficiary_id": decision.BeneficiaryID})
	})
	if err != nil {
		return nil, err
	}

	EnrollmentsCreatedCounter.Inc()
	s.opts.Logger.Info("enrollment created",
		zap.Uint("enrollment_id", enrollment.ID),
		zap.Uint("organization_id", enrollment.OrganizationID),
		zap.Uint("decision_id", enrollment.DecisionID))
	return enrollment, nil
}

// BootstrapSupplies creates the monthly supplies the enrollment is missing. Each new supply
// gets a fresh token; its compliance record is created by the model hook.
func (s *EnrollmentService) BootstrapSupplies(tx *gorm.DB, enrollment *models.Enrollment) (int, error) {
	var existing []int
	if err := tx.Model(&models.MonthlySupply{}).
		Where("enrollment_id = ?", enrollment.ID).
		Pluck("month_index", &existing).Error; err != nil {
		return 0, err
	}
	have := make(map[int]bool, len(existing))
	for _, m := range existing {
		have[m] = true
	}

	minter := NewSupplyTokenMinter(tx)
	created := 0
	for month := 1; month <= models.SuppliesPerEnrollment; month++ {
		if have[month] {
			continue
		}
		token, err := minter.Mint(tx.Statement.Context)
		if err != nil {
			return created, fmt.Errorf("mint token: %w", err)
		}
		supply := models.MonthlySupply{
			EnrollmentID: enrollment.ID,
			MonthIndex:   month,
			Token:        token,
		}
		if month == 1 {
			start := utils.DateOnly(enrollment.StartDate, nil)
			supply.ScheduledDeliveryDate = &start
		}
		if err := tx.Create(&supply).Error; err != nil {
			return created, fmt.Errorf("create supply month %d for enrollment %d: %w", month, enrollment.ID, err)
		}
		enrollment.Supplies = append(enrollment.Supplies, supply)
		created++
	}
	return created, nil
}

// BackfillAll re-runs both bootstraps for every enrollment, one transaction per enrollment.
func (s *EnrollmentService) BackfillAll(ctx context.Context) (*BackfillSummary, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Enrollment{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	summary := &BackfillSummary{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var supplies, milestones int
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var enrollment models.Enrollment
			if err := tx.First(&enrollment, id).Error; err != nil {
				return err
			}
			var err error
			if supplies, err = s.BootstrapSupplies(tx, &enrollment); err != nil {
				return err
			}
			if milestones, err = s.milestones.Bootstrap(tx, &enrollment); err != nil {
				return err
			}
			return ensureComplianceRecords(tx, enrollment.ID)
		})
		if err != nil {
			summary.Failed++
			s.opts.Logger.Error("backfill failed", zap.Uint("enrollment_id", id), zap.Error(err))
			continue
		}
		summary.Enrollments++
		summary.SuppliesCreated += supplies
		summary.MilestonesCreated += milestones
	}

	s.opts.Logger.Info("backfill finished",
		zap.Int("enrollments", summary.Enrollments),
		zap.Int("supplies_created", summary.SuppliesCreated),
		zap.Int("milestones_created", summary.MilestonesCreated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// ensureComplianceRecords repairs supplies that predate the compliance hook.
func ensureComplianceRecords(tx *gorm.DB, enrollmentID uint) error {
	var orphanIDs []uint
	if err := tx.Model(&models.MonthlySupply{}).
		Joins("LEFT JOIN compliance_submissions ON compliance_submissions.monthly_supply_id = monthly_supplies.id").
		Where("monthly_supplies.enrollment_id = ? AND compliance_submissions.id IS NULL", enrollmentID).
		Pluck("monthly_supplies.id", &orphanIDs).Error; err != nil {
		return err
	}
	for _, supplyID := range orphanIDs {
		comp := models.ComplianceSubmission{MonthlySupplyID: supplyID, Status: models.ComplianceStatusNotSubmitted}
		if err := tx.Create(&comp).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetEnrollment loads an enrollment with its supplies and milestones.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Supplies", func(db *gorm.DB) *gorm.DB { return db.Order("month_index ASC") }).
		Preload("Supplies.Compliance").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("due_on ASC") }).
		First(&enrollment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &enrollment, nil
}
