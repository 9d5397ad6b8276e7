package services

import (
	"context"

	"supplement-program-api/config"
	"supplement-program-api/models"
	"supplement-program-api/utils"

	"gorm.io/gorm"
)

const upcomingWindowDays = 14

type MilestoneCounts struct {
	Due       int64 `json:"due"`
	Overdue   int64 `json:"overdue"`
	Completed int64 `json:"completed"`
}

// OrganizationMilestones is the organization dashboard: checkpoints due within the next
// two weeks, everything overdue, and the current suspension state.
type OrganizationMilestones struct {
	Organization models.Organization         `json:"organization"`
	Today        string                      `json:"today"`
	Counts       MilestoneCounts             `json:"counts"`
	DueSoon      []models.ScreeningMilestone `json:"due_soon"`
	Overdue      []models.ScreeningMilestone `json:"overdue"`
}

// OrganizationMilestoneRow is one line of the cross-organization overview.
type OrganizationMilestoneRow struct {
	OrganizationID   uint   `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Suspended        bool   `json:"suspended"`
	Due              int64  `json:"due"`
	Overdue          int64  `json:"overdue"`
	Completed        int64  `json:"completed"`
}

type DashboardService struct {
	db   *gorm.DB
	opts ProgramOptions
}

func NewDashboardService(db *gorm.DB, opts ProgramOptions) *DashboardService {
	if db == nil {
		db = config.DB
	}
	return &DashboardService{db: db, opts: opts.withDefaults()}
}

func (s *DashboardService) orgMilestones(ctx context.Context, orgID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.ScreeningMilestone{}).
		Joins("JOIN enrollments ON enrollments.id = screening_milestones.enrollment_id").
		Where("enrollments.organization_id = ?", orgID)
}

func (s *DashboardService) OrganizationMilestones(ctx context.Context, orgID uint) (*OrganizationMilestones, error) {
	org, err := NewEnforcementService(s.db, s.opts).GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	today := s.opts.today()
	upcoming := utils.AddDays(today, upcomingWindowDays)

	out := &OrganizationMilestones{Organization: *org, Today: today.Format(utils.DateLayout)}

	if err := s.orgMilestones(ctx, orgID).
		Where("screening_milestones.status = ? AND screening_milestones.due_on <= ?", models.MilestoneStatusDue, upcoming).
		Order("screening_milestones.due_on ASC").
		Find(&out.DueSoon).Error; err != nil {
		return nil, err
	}
	if err := s.orgMilestones(ctx, orgID).
		Where("screening_milestones.status = ?", models.MilestoneStatusOverdue).
		Order("screening_milestones.due_on ASC").
		Find(&out.Overdue).Error; err != nil {
		return nil, err
	}
	for status, dst := range map[string]*int64{
		models.MilestoneStatusDue:       &out.Counts.Due,
		models.MilestoneStatusCompleted: &out.Counts.Completed,
	} {
		if err := s.orgMilestones(ctx, orgID).
			Where("screening_milestones.status = ?", status).
			Count(dst).Error; err != nil {
			return nil, err
		}
	}
	out.Counts.Overdue = int64(len(out.Overdue))
	return out, nil
}

// Overview aggregates milestone states per organization over ACTIVE enrollments.
func (s *DashboardService) Overview(ctx context.Context) ([]OrganizationMilestoneRow, error) {
	var rows []OrganizationMilestoneRow
	err := s.db.WithContext(ctx).
		Table("screening_milestones").
		Select(`organizations.id AS organization_id,
			organizations.name AS organization_name,
			organizations.assistance_suspended AS suspended,
			SUM(CASE WHEN screening_milestones.status = ? THEN 1 ELSE 0 END) AS due,
			SUM(CASE WHEN screening_milestones.status = ? THEN 1 ELSE 0 END) AS overdue,
			SUM(CASE WHEN screening_milestones.status = ? THEN 1 ELSE 0 END) AS completed`,
			models.MilestoneStatusDue, models.MilestoneStatusOverdue, models.MilestoneStatusCompleted).
		Joins("JOIN enrollments ON enrollments.id = screening_milestones.enrollment_id").
		Joins("JOIN organizations ON organizations.id = enrollments.organization_id").
		Where("enrollments.status = ?", models.EnrollmentStatusActive).
		Group("organizations.id, organizations.name, organizations.assistance_suspended").
		Order("organizations.name ASC").
		Scan(&rows).Error
	return rows, err
}
