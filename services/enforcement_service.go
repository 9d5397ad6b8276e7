package services

import (
	"context"
	"errors"
	"fmt"

	"supplement-program-api/config"
	"supplement-program-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnforcementResult is the outcome of evaluating one organization.
type EnforcementResult struct {
	OrganizationID uint `json:"organization_id"`
	Suspended      bool `json:"suspended"`
	Changed        bool `json:"changed"`
}

// EnforcementSummary tallies an EvaluateAll pass.
type EnforcementSummary struct {
	Evaluated   int `json:"evaluated"`
	Suspended   int `json:"suspended"`
	Unsuspended int `json:"unsuspended"`
	Failed      int `json:"failed"`
}

// EnforcementService is the only writer of the organization assistance_* columns.
type EnforcementService struct {
	db   *gorm.DB
	opts ProgramOptions
}

func NewEnforcementService(db *gorm.DB, opts ProgramOptions) *EnforcementService {
	if db == nil {
		db = config.DB
	}
	return &EnforcementService{db: db, opts: opts.withDefaults()}
}

// Evaluate recomputes the suspension flag of one organization from its milestones.
func (s *EnforcementService) Evaluate(ctx context.Context, orgID uint) (*EnforcementResult, error) {
	var result *EnforcementResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.evaluateTx(tx, orgID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *EnforcementService) evaluateTx(tx *gorm.DB, orgID uint) (*EnforcementResult, error) {
	var org models.Organization
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}

	overdue, err := hasOverdueMilestones(tx, orgID)
	if err != nil {
		return nil, fmt.Errorf("check overdue milestones: %w", err)
	}

	result := &EnforcementResult{OrganizationID: orgID, Suspended: overdue}
	switch {
	case overdue && (!org.AssistanceSuspended || org.AssistanceSuspendedAt == nil || org.AssistanceSuspensionReason == ""):
		suspendedAt := s.opts.now()
		if org.AssistanceSuspended && org.AssistanceSuspendedAt != nil {
			suspendedAt = *org.AssistanceSuspendedAt
		}
		updates := map[string]interface{}{
			"assistance_suspended":         true,
			"assistance_suspended_at":      suspendedAt,
			"assistance_suspension_reason": models.SuspensionReasonOverdueMilestones,
		}
		if err := tx.Model(&models.Organization{}).Where("id = ?", orgID).Updates(updates).Error; err != nil {
			return nil, err
		}
		result.Changed = !org.AssistanceSuspended
		if result.Changed {
			if err := recordAudit(tx, orgID, nil, models.AuditOrgSuspended, "Organization", orgID,
				map[string]interface{}{"reason": models.SuspensionReasonOverdueMilestones}); err != nil {
				return nil, err
			}
		}
	case !overdue && (org.AssistanceSuspended || org.AssistanceSuspendedAt != nil || org.AssistanceSuspensionReason != ""):
		updates := map[string]interface{}{
			"assistance_suspended":         false,
			"assistance_suspended_at":      nil,
			"assistance_suspension_reason": "",
		}
		if err := tx.Model(&models.Organization{}).Where("id = ?", orgID).Updates(updates).Error; err != nil {
			return nil, err
		}
		result.Changed = org.AssistanceSuspended
		if result.Changed {
			if err := recordAudit(tx, orgID, nil, models.AuditOrgUnsuspended, "Organization", orgID, nil); err != nil {
				return nil, err
			}
		}
	}

	if result.Changed {
		direction := "unsuspended"
		if result.Suspended {
			direction = "suspended"
		}
		SuspensionTransitionsCounter.WithLabelValues(direction).Inc()
		s.opts.Logger.Info("organization suspension changed",
			zap.Uint("organization_id", orgID), zap.Bool("suspended", result.Suspended))
	}
	return result, nil
}

func hasOverdueMilestones(tx *gorm.DB, orgID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.ScreeningMilestone{}).
		Joins("JOIN enrollments ON enrollments.id = screening_milestones.enrollment_id").
		Where("enrollments.organization_id = ? AND enrollments.status = ?", orgID, models.EnrollmentStatusActive).
		Where("screening_milestones.status = ?", models.MilestoneStatusOverdue).
		Count(&count).Error
	return count > 0, err
}

// EvaluateAll evaluates every organization. A failure for one organization is logged and
// counted; the pass continues.
func (s *EnforcementService) EvaluateAll(ctx context.Context) (*EnforcementSummary, error) {
	var orgIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Order("id ASC").Pluck("id", &orgIDs).Error; err != nil {
		return nil, err
	}

	summary := &EnforcementSummary{}
	for _, id := range orgIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := s.Evaluate(ctx, id)
		if err != nil {
			summary.Failed++
			s.opts.Logger.Error("enforcement evaluation failed", zap.Uint("organization_id", id), zap.Error(err))
			continue
		}
		summary.Evaluated++
		if res.Changed && res.Suspended {
			summary.Suspended++
		} else if res.Changed {
			summary.Unsuspended++
		}
	}
	return summary, nil
}

// GetOrganization returns the organization with its current suspension state.
func (s *EnforcementService) GetOrganization(ctx context.Context, orgID uint) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// EnsureCanShip refuses shipment creation for a suspended organization.
func (s *EnforcementService) EnsureCanShip(ctx context.Context, orgID uint) error {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if org.AssistanceSuspended {
		return ErrOrganizationSuspended
	}
	return nil
}

// ShippableSupplies lists the supplies of monthIndex that shipment assembly may pick up:
// undelivered, on ACTIVE enrollments, and for month > 1 unlocked by the compliance gate.
func (s *EnforcementService) ShippableSupplies(ctx context.Context, orgID uint, monthIndex int) ([]models.MonthlySupply, error) {
	if monthIndex < 1 || monthIndex > models.SuppliesPerEnrollment {
		return nil, fmt.Errorf("%w: month must be between 1 and %d", ErrInvalidInput, models.SuppliesPerEnrollment)
	}
	if err := s.EnsureCanShip(ctx, orgID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.id = monthly_supplies.enrollment_id").
		Where("enrollments.organization_id = ? AND enrollments.status = ?", orgID, models.EnrollmentStatusActive).
		Where("monthly_supplies.month_index = ? AND monthly_supplies.delivered_on IS NULL", monthIndex)
	if monthIndex > 1 {
		query = query.Where("monthly_supplies.ok_to_ship_next = ?", true)
	}

	var supplies []models.MonthlySupply
	if err := query.Order("monthly_supplies.enrollment_id ASC").Find(&supplies).Error; err != nil {
		return nil, err
	}
	return supplies, nil
}
