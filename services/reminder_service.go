package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reminderDedupWindow = 24 * time.Hour

type ReminderService struct {
	db            *gorm.DB
	opts          ProgramOptions
	notifier      Notifier
	publicBaseURL string
}

func NewReminderService(db *gorm.DB, opts ProgramOptions, notifier Notifier, publicBaseURL string) *ReminderService {
	if db == nil {
		db = config.DB
	}
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = NewLogNotifier(opts.Logger)
	}
	return &ReminderService{
		db:            db,
		opts:          opts,
		notifier:      notifier,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// dueReminders lists delivered supplies on ACTIVE enrollments whose compliance is past due
// and still NOT_SUBMITTED, skipping those reminded within the last 24 hours.
func (s *ReminderService) dueReminders(ctx context.Context, now time.Time) ([]models.MonthlySupply, error) {
	since := now.Add(-reminderDedupWindow)
	var supplies []models.MonthlySupply
	err := s.db.WithContext(ctx).
		Joins("JOIN compliance_submissions ON compliance_submissions.monthly_supply_id = monthly_supplies.id").
		Joins("JOIN enrollments ON enrollments.id = monthly_supplies.enrollment_id").
		Preload("Enrollment").
		Where("monthly_supplies.delivered_on IS NOT NULL AND monthly_supplies.compliance_due_at <= ?", now).
		Where("compliance_submissions.status = ? AND enrollments.status = ?",
			models.ComplianceStatusNotSubmitted, models.EnrollmentStatusActive).
		Where("NOT EXISTS (SELECT 1 FROM reminder_logs WHERE reminder_logs.monthly_supply_id = monthly_supplies.id AND reminder_logs.sent_at >= ? AND reminder_logs.status <> ?)",
			since, models.ReminderStatusFailed).
		Order("monthly_supplies.compliance_due_at ASC").
		Find(&supplies).Error
	return supplies, err
}

// RunComplianceReminders hands every due reminder to the notifier and logs each hand-off.
// A failure for one supply is recorded and the sweep continues.
func (s *ReminderService) RunComplianceReminders(ctx context.Context) (*JobResult, error) {
	now := s.opts.now()
	supplies, err := s.dueReminders(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load due reminders: %w", err)
	}

	result := &JobResult{}
	for i := range supplies {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++
		if err := s.remind(ctx, &supplies[i], now); err != nil {
			result.Failed++
			s.opts.Logger.Warn("compliance reminder failed", zap.Uint("supply_id", supplies[i].ID), zap.Error(err))
			continue
		}
		result.Changed++
	}

	s.opts.Logger.Info("compliance reminder sweep finished",
		zap.Int("candidates", result.Processed), zap.Int("sent", result.Changed), zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ReminderService) remind(ctx context.Context, supply *models.MonthlySupply, now time.Time) error {
	if supply.Enrollment == nil {
		return fmt.Errorf("supply %d has no enrollment", supply.ID)
	}
	reminder := ComplianceReminder{
		IdempotencyKey: uuid.NewString(),
		TemplateCode:   models.ReminderTemplateCompliance,
		OrganizationID: supply.Enrollment.OrganizationID,
		EnrollmentID:   supply.EnrollmentID,
		BeneficiaryID:  supply.Enrollment.BeneficiaryID,
		SupplyID:       supply.ID,
		MonthIndex:     supply.MonthIndex,
		Link:           s.packageLink(supply.Token),
	}
	if supply.ComplianceDueAt != nil {
		reminder.DueAt = supply.ComplianceDueAt.UTC()
	}

	entry := models.ReminderLog{
		IdempotencyKey:  reminder.IdempotencyKey,
		OrganizationID:  reminder.OrganizationID,
		MonthlySupplyID: supply.ID,
		TemplateCode:    reminder.TemplateCode,
		Channel:         s.notifier.Channel(),
		Status:          models.ReminderStatusSent,
		SentAt:          now,
	}
	providerID, sendErr := s.notifier.Notify(ctx, reminder)
	if sendErr != nil {
		entry.Status = models.ReminderStatusFailed
		entry.Error = truncateError(sendErr, 255)
	} else {
		entry.ProviderMessageID = providerID
	}
	RemindersCounter.WithLabelValues(entry.Channel, entry.Status).Inc()

	if err := s.db.WithContext(persistentContext(ctx)).Create(&entry).Error; err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	return sendErr
}

func (s *ReminderService) packageLink(token string) string {
	return fmt.Sprintf("%s/api/v1/public/packages/%s", s.publicBaseURL, token)
}

func truncateError(err error, max int) string {
	msg := err.Error()
	if len(msg) > max {
		return msg[:max-3] + "..."
	}
	return msg
}
