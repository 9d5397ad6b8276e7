package services

import (
	"context"
	"fmt"
	"time"

	"supplement-program-api/config"
	"supplement-program-api/models"

	"gorm.io/gorm"
)

// JobResult is the per-run tally stored on a SweepRun.
type JobResult struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Failed    int `json:"failed"`
}

type SweepRunService struct {
	db *gorm.DB
}

func NewSweepRunService(db *gorm.DB) *SweepRunService {
	if db == nil {
		db = config.DB
	}
	return &SweepRunService{db: db}
}

func (s *SweepRunService) Start(ctx context.Context, jobName, trigger string) (*models.SweepRun, error) {
	if trigger == "" {
		trigger = "unknown"
	}
	run := &models.SweepRun{
		JobName:       jobName,
		TriggerSource: trigger,
		Status:        models.SweepRunStatusRunning,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SweepRunService) MarkSuccess(ctx context.Context, runID uint, result *JobResult) error {
	return s.finish(ctx, runID, models.SweepRunStatusSuccess, result, nil)
}

func (s *SweepRunService) MarkFailure(ctx context.Context, runID uint, result *JobResult, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return s.finish(ctx, runID, models.SweepRunStatusFailed, result, &msg)
}

func (s *SweepRunService) finish(ctx context.Context, runID uint, status string, result *JobResult, errMsg *string) error {
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	if result != nil {
		updates["items_processed"] = result.Processed
		updates["items_changed"] = result.Changed
		updates["items_failed"] = result.Failed
	}
	if errMsg != nil {
		if len(*errMsg) > 1000 {
			updates["error_message"] = fmt.Sprintf("%s...", (*errMsg)[:997])
		} else {
			updates["error_message"] = *errMsg
		}
	}
	res := s.db.WithContext(ctx).Model(&models.SweepRun{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSweepRunNotFound
	}
	return nil
}

// List returns the most recent runs, newest first. An empty jobName lists every job.
func (s *SweepRunService) List(ctx context.Context, jobName string, limit, offset int) ([]models.SweepRun, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := s.db.WithContext(ctx).Model(&models.SweepRun{})
	if jobName != "" {
		query = query.Where("job_name = ?", jobName)
	}
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var runs []models.SweepRun
	if err := query.Order("started_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// persistentContext keeps ctx values but drops its cancellation, for bookkeeping writes
// that must land after the caller gave up.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
