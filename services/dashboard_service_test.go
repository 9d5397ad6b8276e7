package services

import (
	"context"
	"testing"
	"time"

	"supplement-program-api/models"
)

func TestOrganizationMilestonesDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(time.Date(2024, 1, 1, 10, 0, 0, 0, env.loc))
	org := env.createOrganization(t, "Govt School 1")
	first := env.enroll(t, org.ID, 1)
	env.enroll(t, org.ID, 2)
	env.setMilestoneStatus(t, first.ID, models.MilestoneMonth6, models.MilestoneStatusCompleted)

	// MONTH_3 is due 2024-03-31, inside the two-week window
	env.clock.Set(time.Date(2024, 3, 20, 10, 0, 0, 0, env.loc))
	env.setMilestoneStatus(t, first.ID, models.MilestoneMonth3, models.MilestoneStatusOverdue)

	dash, err := env.program.Dashboards.OrganizationMilestones(context.Background(), org.ID)
	if err != nil {
		t.Fatalf("OrganizationMilestones returned error: %v", err)
	}
	if dash.Today != "2024-03-20" {
		t.Fatalf("today = %s", dash.Today)
	}
	if len(dash.DueSoon) != 1 || dash.DueSoon[0].Milestone != models.MilestoneMonth3 {
		t.Fatalf("unexpected due soon: %+v", dash.DueSoon)
	}
	if len(dash.Overdue) != 1 || dash.Overdue[0].EnrollmentID != first.ID {
		t.Fatalf("unexpected overdue: %+v", dash.Overdue)
	}
	want := MilestoneCounts{Due: 2, Overdue: 1, Completed: 1}
	if dash.Counts != want {
		t.Fatalf("counts = %+v, want %+v", dash.Counts, want)
	}
}

func TestMilestonesOverview(t *testing.T) {
	env := newTestEnv(t)
	a := env.createOrganization(t, "Alpha School")
	b := env.createOrganization(t, "Beta School")
	ea := env.enroll(t, a.ID, 1)
	env.enroll(t, b.ID, 2)
	env.setMilestoneStatus(t, ea.ID, models.MilestoneMonth3, models.MilestoneStatusOverdue)

	rows, err := env.program.Dashboards.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].OrganizationName != "Alpha School" || rows[0].Overdue != 1 || rows[0].Due != 1 {
		t.Fatalf("unexpected alpha row: %+v", rows[0])
	}
	if rows[1].OrganizationID != b.ID || rows[1].Due != 2 || rows[1].Overdue != 0 {
		t.Fatalf("unexpected beta row: %+v", rows[1])
	}
}
