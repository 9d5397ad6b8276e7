package services

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"supplement-program-api/models"
	"supplement-program-api/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

// newTestDB opens a private in-memory SQLite database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testEnv bundles a database, a controllable clock and the services built on them.
type testEnv struct {
	db      *gorm.DB
	clock   *fixedClock
	loc     *time.Location
	program *Program
}

// newTestEnv starts the clock at 2025-01-01 10:00 in Asia/Kolkata.
func newTestEnv(t *testing.T, tweak ...func(*ProgramOptions)) *testEnv {
	t.Helper()
	db := newTestDB(t)
	loc := mustLocation(t, "Asia/Kolkata")
	clock := &fixedClock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, loc)}
	opts := ProgramOptions{
		Location:          loc,
		Clock:             clock,
		AllowResubmission: true,
	}
	for _, f := range tweak {
		f(&opts)
	}
	return &testEnv{
		db:      db,
		clock:   clock,
		loc:     loc,
		program: NewProgram(db, opts, nil, "https://program.test", false),
	}
}

func (e *testEnv) today() time.Time {
	return utils.DateOnly(e.clock.Now(), e.loc)
}

// advanceDays moves the clock forward by whole days.
func (e *testEnv) advanceDays(days int) {
	e.clock.Set(e.clock.Now().AddDate(0, 0, days))
}

func (e *testEnv) createOrganization(t *testing.T, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name}
	if err := e.db.Create(org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return org
}

var decisionSeq uint

func (e *testEnv) enroll(t *testing.T, orgID, beneficiaryID uint) *models.Enrollment {
	t.Helper()
	decisionSeq++
	enrollment, err := e.program.Enrollments.CreateEnrollment(context.Background(), ApprovalDecision{
		DecisionID:     decisionSeq,
		OrganizationID: orgID,
		BeneficiaryID:  beneficiaryID,
	}, nil)
	if err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	return enrollment
}

func (e *testEnv) supply(t *testing.T, enrollmentID uint, month int) models.MonthlySupply {
	t.Helper()
	var s models.MonthlySupply
	if err := e.db.Preload("Compliance").
		Where("enrollment_id = ? AND month_index = ?", enrollmentID, month).
		First(&s).Error; err != nil {
		t.Fatalf("load supply %d/%d: %v", enrollmentID, month, err)
	}
	return s
}

func (e *testEnv) milestone(t *testing.T, enrollmentID uint, name string) models.ScreeningMilestone {
	t.Helper()
	var m models.ScreeningMilestone
	if err := e.db.Where("enrollment_id = ? AND milestone = ?", enrollmentID, name).First(&m).Error; err != nil {
		t.Fatalf("load milestone %s: %v", name, err)
	}
	return m
}

func (e *testEnv) organization(t *testing.T, id uint) models.Organization {
	t.Helper()
	var org models.Organization
	if err := e.db.First(&org, id).Error; err != nil {
		t.Fatalf("load organization: %v", err)
	}
	return org
}

func (e *testEnv) countAudit(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	return n
}
