package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"supplement-program-api/models"
)

func TestComplianceDueAt(t *testing.T) {
	loc := mustLocation(t, "Asia/Kolkata")
	cases := []struct {
		name      string
		delivered time.Time
		want      time.Time
	}{
		{
			name:      "mid month",
			delivered: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 2, 6, 9, 0, 0, 0, loc),
		},
		{
			name:      "crosses leap day",
			delivered: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2024, 3, 8, 9, 0, 0, 0, loc),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComplianceDueAt(tc.delivered, loc)
			if !got.Equal(tc.want) {
				t.Fatalf("got %s want %s", got, tc.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("expected UTC result, got %s", got.Location())
			}
		})
	}
}

func TestMarkDeliveredDefaultsToTodayAndStartsWindow(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)
	actor := uint(3)

	supply, err := env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, nil, &actor)
	if err != nil {
		t.Fatalf("MarkDelivered returned error: %v", err)
	}
	today := env.today()
	if supply.DeliveredOn == nil || !supply.DeliveredOn.Equal(today) {
		t.Fatalf("expected delivered today, got %v", supply.DeliveredOn)
	}

	stored := env.supply(t, enrollment.ID, 1)
	wantDue := ComplianceDueAt(today, env.loc)
	if stored.ComplianceDueAt == nil || !stored.ComplianceDueAt.Equal(wantDue) {
		t.Fatalf("expected due %s, got %v", wantDue, stored.ComplianceDueAt)
	}
	if n := env.countAudit(t, models.AuditSupplyDelivered); n != 1 {
		t.Fatalf("expected 1 SUPPLY_DELIVERED audit row, got %d", n)
	}
}

func TestMarkDeliveredKeepsDueOnRedelivery(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)

	first := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	if _, err := env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, &first, nil); err != nil {
		t.Fatalf("first MarkDelivered: %v", err)
	}
	if _, err := env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, &second, nil); err != nil {
		t.Fatalf("second MarkDelivered: %v", err)
	}

	stored := env.supply(t, enrollment.ID, 1)
	if !stored.DeliveredOn.Equal(second) {
		t.Fatalf("delivered_on should follow the latest call, got %s", stored.DeliveredOn)
	}
	if !stored.ComplianceDueAt.Equal(ComplianceDueAt(first, env.loc)) {
		t.Fatalf("due time must stay anchored to the first delivery, got %s", stored.ComplianceDueAt)
	}
	if n := env.countAudit(t, models.AuditSupplyDelivered); n != 0 {
		t.Fatalf("no actor means no audit row, got %d", n)
	}
}

func TestMarkDeliveredRecomputesDueWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(o *ProgramOptions) { o.RecomputeDueOnRedelivery = true })
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)
	month1 := env.supply(t, enrollment.ID, 1)

	first := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, &first, nil)
	if _, err := env.program.Deliveries.MarkDelivered(context.Background(), month1.ID, &second, nil); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	stored := env.supply(t, enrollment.ID, 1)
	if !stored.ComplianceDueAt.Equal(ComplianceDueAt(second, env.loc)) {
		t.Fatalf("expected due recomputed from the redelivery, got %s", stored.ComplianceDueAt)
	}
}

func TestMarkDeliveredUnknownSupply(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.program.Deliveries.MarkDelivered(context.Background(), 404, nil, nil); !errors.Is(err, ErrSupplyNotFound) {
		t.Fatalf("expected ErrSupplyNotFound, got %v", err)
	}
}

func TestSupplyOrganization(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "Govt School 1")
	enrollment := env.enroll(t, org.ID, 1)

	got, err := env.program.Deliveries.SupplyOrganization(context.Background(), env.supply(t, enrollment.ID, 4).ID)
	if err != nil {
		t.Fatalf("SupplyOrganization returned error: %v", err)
	}
	if got != org.ID {
		t.Fatalf("organization = %d, want %d", got, org.ID)
	}
	if _, err := env.program.Deliveries.SupplyOrganization(context.Background(), 404); !errors.Is(err, ErrSupplyNotFound) {
		t.Fatalf("expected ErrSupplyNotFound, got %v", err)
	}
}
