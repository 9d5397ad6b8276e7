package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"supplement-program-api/config"
	"supplement-program-api/models"
	"supplement-program-api/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxComplianceNotes = 2000

type ComplianceService struct {
	db   *gorm.DB
	opts ProgramOptions
}

func NewComplianceService(db *gorm.DB, opts ProgramOptions) *ComplianceService {
	if db == nil {
		db = config.DB
	}
	return &ComplianceService{db: db, opts: opts.withDefaults()}
}

func normalizeComplianceStatus(status string) (string, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case models.ComplianceStatusCompliant, models.ComplianceStatusUnable:
		return status, nil
	}
	return "", ErrInvalidComplianceStatus
}

// SubmitCompliance stores the beneficiary's answer for the supply identified by token and
// applies the gate to the following month in the same transaction.
func (s *ComplianceService) SubmitCompliance(ctx context.Context, token, status, notes string) (*models.ComplianceSubmission, error) {
	status, err := normalizeComplianceStatus(status)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if !utils.ValidatePackageToken(token) {
		return nil, ErrSupplyNotFound
	}
	notes = utils.TruncateRunes(utils.SanitizeInput(notes), maxComplianceNotes)
	responses, err := json.Marshal(map[string]string{"notes": notes})
	if err != nil {
		return nil, err
	}

	var comp models.ComplianceSubmission
	var supply models.MonthlySupply
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Enrollment").Where("token = ?", token).First(&supply).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplyNotFound
			}
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(models.ComplianceSubmission{MonthlySupplyID: supply.ID}).
			Attrs(models.ComplianceSubmission{Status: models.ComplianceStatusNotSubmitted}).
			FirstOrCreate(&comp).Error; err != nil {
			return err
		}
		if comp.IsSubmitted() && !s.opts.AllowResubmission {
			return ErrComplianceAlreadySubmitted
		}

		now := s.opts.now()
		comp.Status = status
		comp.SubmittedAt = &now
		comp.Responses = datatypes.JSON(responses)
		if err := tx.Model(&models.ComplianceSubmission{}).Where("id = ?", comp.ID).Updates(map[string]interface{}{
			"status":       comp.Status,
			"submitted_at": now,
			"responses":    comp.Responses,
		}).Error; err != nil {
			return err
		}
		supply.Compliance = &comp

		if err := s.ApplyGating(tx, &supply); err != nil {
			return fmt.Errorf("apply gating: %w", err)
		}

		orgID := uint(0)
		if supply.Enrollment != nil {
			orgID = supply.Enrollment.OrganizationID
		}
		return recordAudit(tx, orgID, nil, models.AuditComplianceSubmitted, "MonthlySupply", supply.ID,
			map[string]interface{}{"status": status, "month_index": supply.MonthIndex})
	})
	if err != nil {
		return nil, err
	}

	ComplianceSubmittedCounter.WithLabelValues(status).Inc()
	s.opts.Logger.Info("compliance submitted",
		zap.Uint("supply_id", supply.ID), zap.Int("month_index", supply.MonthIndex), zap.String("status", status))
	return &comp, nil
}

// ApplyGating sets ok_to_ship_next on the following month from this supply's compliance
// status. Month 6 has no successor and is left alone.
func (s *ComplianceService) ApplyGating(tx *gorm.DB, supply *models.MonthlySupply) error {
	if supply.MonthIndex >= models.SuppliesPerEnrollment {
		return nil
	}

	status := models.ComplianceStatusNotSubmitted
	if supply.Compliance != nil {
		status = supply.Compliance.Status
	} else {
		var comp models.ComplianceSubmission
		err := tx.Where("monthly_supply_id = ?", supply.ID).First(&comp).Error
		switch {
		case err == nil:
			status = comp.Status
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}

	return tx.Model(&models.MonthlySupply{}).
		Where("enrollment_id = ? AND month_index = ?", supply.EnrollmentID, supply.MonthIndex+1).
		Update("ok_to_ship_next", status == models.ComplianceStatusCompliant).Error
}

// RecomputeGating re-applies the gate for every supply. Failures are logged and counted.
func (s *ComplianceService) RecomputeGating(ctx context.Context) (*JobResult, error) {
	result := &JobResult{}
	var batch []models.MonthlySupply
	err := s.db.WithContext(ctx).
		Preload("Compliance").
		Where("month_index < ?", models.SuppliesPerEnrollment).
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				supply := &batch[i]
				err := s.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
					return s.ApplyGating(inner, supply)
				})
				if err != nil {
					result.Failed++
					s.opts.Logger.Error("recompute gating failed", zap.Uint("supply_id", supply.ID), zap.Error(err))
					continue
				}
				result.Processed++
			}
			return ctx.Err()
		}).Error
	if err != nil {
		return result, err
	}
	s.opts.Logger.Info("gating recomputed", zap.Int("processed", result.Processed), zap.Int("failed", result.Failed))
	return result, nil
}

// LookupPackage resolves a package token for the public landing page and records the scan.
func (s *ComplianceService) LookupPackage(ctx context.Context, token string) (*models.MonthlySupply, error) {
	token = strings.TrimSpace(token)
	if !utils.ValidatePackageToken(token) {
		return nil, ErrSupplyNotFound
	}
	var supply models.MonthlySupply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Enrollment").Preload("Compliance").Where("token = ?", token).First(&supply).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplyNotFound
			}
			return err
		}
		orgID := uint(0)
		if supply.Enrollment != nil {
			orgID = supply.Enrollment.OrganizationID
		}
		return recordAudit(tx, orgID, nil, models.AuditQROpened, "MonthlySupply", supply.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return &supply, nil
}
