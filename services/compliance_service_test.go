package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"supplement-program-api/models"
)

func TestSubmitComplianceGatesFollowingMonth(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)

	env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, nil, nil)
	comp, err := env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, "compliant", "  took all doses  ")
	if err != nil {
		t.Fatalf("SubmitCompliance returned error: %v", err)
	}
	if comp.Status != models.ComplianceStatusCompliant || comp.SubmittedAt == nil {
		t.Fatalf("unexpected compliance record: %+v", comp)
	}

	if !env.supply(t, enrollment.ID, 2).OkToShipNext {
		t.Fatalf("month 2 should be unlocked after a COMPLIANT month 1")
	}
	if env.supply(t, enrollment.ID, 3).OkToShipNext {
		t.Fatalf("month 3 must stay gated")
	}

	stored := env.supply(t, enrollment.ID, 1)
	var responses map[string]string
	if err := json.Unmarshal(stored.Compliance.Responses, &responses); err != nil {
		t.Fatalf("responses are not JSON: %v", err)
	}
	if responses["notes"] != "took all doses" {
		t.Fatalf("expected trimmed notes, got %q", responses["notes"])
	}
	if n := env.countAudit(t, models.AuditComplianceSubmitted); n != 1 {
		t.Fatalf("expected 1 COMPLIANCE_SUBMITTED audit row, got %d", n)
	}
}

func TestSubmitComplianceOverwritesGateOnResubmission(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)

	steps := []struct {
		status string
		want   bool
	}{
		{models.ComplianceStatusUnable, false},
		{models.ComplianceStatusCompliant, true},
		{models.ComplianceStatusUnable, false},
	}
	for _, step := range steps {
		if _, err := env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, step.status, ""); err != nil {
			t.Fatalf("SubmitCompliance(%s) returned error: %v", step.status, err)
		}
		if got := env.supply(t, enrollment.ID, 2).OkToShipNext; got != step.want {
			t.Fatalf("after %s month 2 ok_to_ship_next = %v, want %v", step.status, got, step.want)
		}
	}
}

func TestSubmitComplianceMonthSixTouchesNothingElse(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month6 := env.supply(t, enrollment.ID, 6)

	if _, err := env.program.Compliance.SubmitCompliance(context.Background(), month6.Token, models.ComplianceStatusCompliant, ""); err != nil {
		t.Fatalf("SubmitCompliance returned error: %v", err)
	}
	var unlocked int64
	env.db.Model(&models.MonthlySupply{}).Where("ok_to_ship_next = ?", true).Count(&unlocked)
	if unlocked != 0 {
		t.Fatalf("month 6 compliance must not unlock anything, %d rows unlocked", unlocked)
	}
}

func TestSubmitComplianceErrors(t *testing.T) {
	env := newTestEnv(t, func(o *ProgramOptions) { o.AllowResubmission = false })
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)

	if _, err := env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, "MAYBE", ""); !errors.Is(err, ErrInvalidComplianceStatus) {
		t.Fatalf("expected ErrInvalidComplianceStatus, got %v", err)
	}
	if _, err := env.program.Compliance.SubmitCompliance(context.Background(), strings.Repeat("x", 32), models.ComplianceStatusCompliant, ""); !errors.Is(err, ErrSupplyNotFound) {
		t.Fatalf("expected ErrSupplyNotFound for unknown token, got %v", err)
	}
	if _, err := env.program.Compliance.SubmitCompliance(context.Background(), "bad token!", models.ComplianceStatusCompliant, ""); !errors.Is(err, ErrSupplyNotFound) {
		t.Fatalf("expected ErrSupplyNotFound for malformed token, got %v", err)
	}

	if _, err := env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, models.ComplianceStatusCompliant, ""); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	_, err := env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, models.ComplianceStatusUnable, "")
	if !errors.Is(err, ErrComplianceAlreadySubmitted) {
		t.Fatalf("expected ErrComplianceAlreadySubmitted, got %v", err)
	}
	if !env.supply(t, enrollment.ID, 2).OkToShipNext {
		t.Fatalf("rejected resubmission must not change the gate")
	}
}

func TestRecomputeGatingRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)
	env.program.Compliance.SubmitCompliance(context.Background(), month1.Token, models.ComplianceStatusCompliant, "")

	// simulate drift: month 2 relocked, month 4 unlocked without compliance
	env.db.Model(&models.MonthlySupply{}).Where("enrollment_id = ? AND month_index = ?", enrollment.ID, 2).Update("ok_to_ship_next", false)
	env.db.Model(&models.MonthlySupply{}).Where("enrollment_id = ? AND month_index = ?", enrollment.ID, 4).Update("ok_to_ship_next", true)

	result, err := env.program.Compliance.RecomputeGating(context.Background())
	if err != nil {
		t.Fatalf("RecomputeGating returned error: %v", err)
	}
	if result.Processed != 5 || result.Failed != 0 {
		t.Fatalf("expected 5 supplies processed, got %+v", result)
	}
	if !env.supply(t, enrollment.ID, 2).OkToShipNext {
		t.Fatalf("month 2 should be unlocked again")
	}
	if env.supply(t, enrollment.ID, 4).OkToShipNext {
		t.Fatalf("month 4 should be gated again")
	}
}

func TestLookupPackageRecordsScan(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month3 := env.supply(t, enrollment.ID, 3)

	supply, err := env.program.Compliance.LookupPackage(context.Background(), month3.Token)
	if err != nil {
		t.Fatalf("LookupPackage returned error: %v", err)
	}
	if supply.ID != month3.ID || supply.Compliance == nil {
		t.Fatalf("unexpected supply: %+v", supply)
	}
	if n := env.countAudit(t, models.AuditQROpened); n != 1 {
		t.Fatalf("expected 1 QR_OPENED audit row, got %d", n)
	}
}
