package services

import (
	"context"
	"errors"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/models"
	"supplement-program-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	complianceWindowDays = 27
	complianceDueHour    = 9
)

// ComplianceDueAt is delivered-on + 27 days at 09:00 local time in loc, returned in UTC.
func ComplianceDueAt(deliveredOn time.Time, loc *time.Location) time.Time {
	return utils.AtLocalTime(utils.AddDays(utils.DateOnly(deliveredOn, nil), complianceWindowDays), complianceDueHour, 0, loc)
}

type DeliveryService struct {
	db   *gorm.DB
	opts ProgramOptions
}

func NewDeliveryService(db *gorm.DB, opts ProgramOptions) *DeliveryService {
	if db == nil {
		db = config.DB
	}
	return &DeliveryService{db: db, opts: opts.withDefaults()}
}

// MarkDelivered records the delivery date of a supply (today when deliveredOn is nil) and
// starts its compliance window. The due time is kept on redelivery unless
// RecomputeDueOnRedelivery is set.
func (s *DeliveryService) MarkDelivered(ctx context.Context, supplyID uint, deliveredOn *time.Time, actorID *uint) (*models.MonthlySupply, error) {
	day := s.opts.today()
	if deliveredOn != nil && !deliveredOn.IsZero() {
		day = utils.DateOnly(*deliveredOn, nil)
	}

	var supply models.MonthlySupply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Enrollment").
			First(&supply, supplyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplyNotFound
			}
			return err
		}

		updates := map[string]interface{}{"delivered_on": day}
		supply.DeliveredOn = &day
		if supply.ComplianceDueAt == nil || s.opts.RecomputeDueOnRedelivery {
			due := ComplianceDueAt(day, s.opts.Location)
			updates["compliance_due_at"] = due
			supply.ComplianceDueAt = &due
		}
		if err := tx.Model(&models.MonthlySupply{}).Where("id = ?", supply.ID).Updates(updates).Error; err != nil {
			return err
		}

		if actorID != nil && supply.Enrollment != nil {
			return recordAudit(tx, supply.Enrollment.OrganizationID, actorID, models.AuditSupplyDelivered, "MonthlySupply", supply.ID,
				map[string]interface{}{"delivered_on": day.Format(utils.DateLayout), "month_index": supply.MonthIndex})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("supply delivered",
		zap.Uint("supply_id", supply.ID),
		zap.Int("month_index", supply.MonthIndex),
		zap.String("delivered_on", day.Format(utils.DateLayout)))
	return &supply, nil
}

// SupplyOrganization returns the organization that owns a supply through its enrollment.
func (s *DeliveryService) SupplyOrganization(ctx context.Context, supplyID uint) (uint, error) {
	var orgIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.MonthlySupply{}).
		Joins("JOIN enrollments ON enrollments.id = monthly_supplies.enrollment_id").
		Where("monthly_supplies.id = ?", supplyID).
		Limit(1).
		Pluck("enrollments.organization_id", &orgIDs).Error; err != nil {
		return 0, err
	}
	if len(orgIDs) == 0 {
		return 0, ErrSupplyNotFound
	}
	return orgIDs[0], nil
}
