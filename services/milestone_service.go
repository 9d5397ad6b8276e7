package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/events"
	"supplement-program-api/models"
	"supplement-program-api/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sweepUpdateBatch = 500

// ScreeningOutcome reports what a screening event changed.
type ScreeningOutcome struct {
	Event       *models.ScreeningEvent      `json:"event"`
	Completed   []models.ScreeningMilestone `json:"completed"`
	Enforcement *EnforcementResult          `json:"enforcement"`
}

type MilestoneService struct {
	db          *gorm.DB
	opts        ProgramOptions
	enforcement *EnforcementService
}

func NewMilestoneService(db *gorm.DB, opts ProgramOptions, enforcement *EnforcementService) *MilestoneService {
	if db == nil {
		db = config.DB
	}
	opts = opts.withDefaults()
	if enforcement == nil {
		enforcement = NewEnforcementService(db, opts)
	}
	return &MilestoneService{db: db, opts: opts, enforcement: enforcement}
}

// Bootstrap creates the checkpoints the enrollment is missing and returns how many were added.
func (s *MilestoneService) Bootstrap(tx *gorm.DB, enrollment *models.Enrollment) (int, error) {
	var existing []string
	if err := tx.Model(&models.ScreeningMilestone{}).
		Where("enrollment_id = ?", enrollment.ID).
		Pluck("milestone", &existing).Error; err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var missing []models.ScreeningMilestone
	for _, offset := range models.MilestoneOffsets {
		if have[offset.Name] {
			continue
		}
		missing = append(missing, models.ScreeningMilestone{
			EnrollmentID: enrollment.ID,
			Milestone:    offset.Name,
			DueOn:        utils.AddDays(utils.DateOnly(enrollment.StartDate, nil), offset.Days),
			Status:       models.MilestoneStatusDue,
		})
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := tx.Create(&missing).Error; err != nil {
		return 0, fmt.Errorf("create milestones for enrollment %d: %w", enrollment.ID, err)
	}
	enrollment.Milestones = append(enrollment.Milestones, missing...)
	return len(missing), nil
}

// SweepOverdue marks every DUE milestone whose due date is before today (less the grace
// period) as OVERDUE. A zero today means the current date in the program time zone.
func (s *MilestoneService) SweepOverdue(ctx context.Context, today time.Time) (int64, error) {
	if today.IsZero() {
		today = s.opts.today()
	} else {
		today = utils.DateOnly(today, nil)
	}
	threshold := utils.AddDays(today, -s.opts.GraceDays)

	var changed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.ScreeningMilestone{}).
			Clauses(clause.Locking{Strength: "SHARE"}).
			Where("status = ? AND due_on < ?", models.MilestoneStatusDue, threshold).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		for start := 0; start < len(ids); start += sweepUpdateBatch {
			end := start + sweepUpdateBatch
			if end > len(ids) {
				end = len(ids)
			}
			// status stays in the predicate so rows completed meanwhile are left alone.
			res := tx.Model(&models.ScreeningMilestone{}).
				Where("id IN ? AND status = ?", ids[start:end], models.MilestoneStatusDue).
				Update("status", models.MilestoneStatusOverdue)
			if res.Error != nil {
				return res.Error
			}
			changed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	MilestonesOverdueCounter.Add(float64(changed))
	s.opts.Logger.Info("milestone overdue sweep finished",
		zap.String("threshold", threshold.Format(utils.DateLayout)), zap.Int64("marked_overdue", changed))
	return changed, nil
}

// Complete closes a DUE or OVERDUE milestone with the qualifying event. It reports false
// when the milestone was already COMPLETED.
func (s *MilestoneService) Complete(tx *gorm.DB, milestone *models.ScreeningMilestone, event *models.ScreeningEvent) (bool, error) {
	if milestone.Status == models.MilestoneStatusCompleted {
		return false, nil
	}
	now := s.opts.now()
	res := tx.Model(&models.ScreeningMilestone{}).
		Where("id = ? AND status IN ?", milestone.ID, []string{models.MilestoneStatusDue, models.MilestoneStatusOverdue}).
		Updates(map[string]interface{}{
			"status":             models.MilestoneStatusCompleted,
			"completed_event_id": event.ID,
			"completed_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	eventID := event.ID
	milestone.Status = models.MilestoneStatusCompleted
	milestone.CompletedEventID = &eventID
	milestone.CompletedAt = &now

	if err := recordAudit(tx, event.OrganizationID, nil, models.AuditMilestoneCompleted, "ScreeningMilestone", milestone.ID,
		map[string]interface{}{"milestone": milestone.Milestone, "event_id": event.ID}); err != nil {
		return false, err
	}
	MilestonesCompletedCounter.WithLabelValues(milestone.Milestone).Inc()
	return true, nil
}

// HandleScreeningEvent records the event, completes every open milestone it satisfies and
// re-evaluates the organization's suspension in the same transaction.
func (s *MilestoneService) HandleScreeningEvent(ctx context.Context, ev events.ScreeningCompleted) (*ScreeningOutcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	payload, err := screeningPayload(ev)
	if err != nil {
		return nil, err
	}

	outcome := &ScreeningOutcome{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.ScreeningEvent{
			ExternalRef:    ev.ExternalRef,
			OrganizationID: ev.OrganizationID,
			BeneficiaryID:  ev.BeneficiaryID,
			OccurredAt:     ev.OccurredAt.UTC(),
			Payload:        payload,
		}
		if err := tx.Where(models.ScreeningEvent{ExternalRef: ev.ExternalRef}).FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("record screening event: %w", err)
		}
		outcome.Event = &record

		eventDate := utils.DateOnly(record.OccurredAt, s.opts.Location)
		var open []models.ScreeningMilestone
		if err := tx.Joins("JOIN enrollments ON enrollments.id = screening_milestones.enrollment_id").
			Where("enrollments.organization_id = ? AND enrollments.beneficiary_id = ? AND enrollments.status = ?",
				record.OrganizationID, record.BeneficiaryID, models.EnrollmentStatusActive).
			Where("screening_milestones.status IN ? AND screening_milestones.due_on <= ?",
				[]string{models.MilestoneStatusDue, models.MilestoneStatusOverdue}, eventDate).
			Order("screening_milestones.due_on ASC").
			Find(&open).Error; err != nil {
			return err
		}

		for i := range open {
			done, err := s.Complete(tx, &open[i], &record)
			if err != nil {
				return fmt.Errorf("complete milestone %d: %w", open[i].ID, err)
			}
			if done {
				outcome.Completed = append(outcome.Completed, open[i])
			}
		}

		result, err := s.enforcement.evaluateTx(tx, record.OrganizationID)
		if err != nil {
			if errors.Is(err, ErrOrganizationNotFound) && len(outcome.Completed) == 0 {
				return nil
			}
			return err
		}
		outcome.Enforcement = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("screening event applied",
		zap.String("external_ref", ev.ExternalRef),
		zap.Uint("organization_id", ev.OrganizationID),
		zap.Int("milestones_completed", len(outcome.Completed)))
	return outcome, nil
}

// Subscribe registers the milestone tracker on the screening event bus.
func (s *MilestoneService) Subscribe(bus *events.Bus) {
	bus.Subscribe(func(ctx context.Context, ev events.ScreeningCompleted) error {
		_, err := s.HandleScreeningEvent(ctx, ev)
		return err
	})
}

func screeningPayload(ev events.ScreeningCompleted) (datatypes.JSON, error) {
	if len(ev.Record) == 0 {
		return nil, nil
	}
	if !json.Valid(ev.Record) {
		return nil, fmt.Errorf("%w: record is not valid JSON", ErrInvalidInput)
	}
	return datatypes.JSON(ev.Record), nil
}
