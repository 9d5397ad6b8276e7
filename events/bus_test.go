package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func validEvent() ScreeningCompleted {
	return ScreeningCompleted{
		ExternalRef:    " scr-1 ",
		OrganizationID: 3,
		BeneficiaryID:  7,
		OccurredAt:     time.Date(2024, 7, 5, 4, 30, 0, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*ScreeningCompleted){
		"missing ref":          func(e *ScreeningCompleted) { e.ExternalRef = "  " },
		"missing organization": func(e *ScreeningCompleted) { e.OrganizationID = 0 },
		"missing beneficiary":  func(e *ScreeningCompleted) { e.BeneficiaryID = 0 },
		"missing occurred_at":  func(e *ScreeningCompleted) { e.OccurredAt = time.Time{} },
		"ref too long": func(e *ScreeningCompleted) {
			e.ExternalRef = string(make([]byte, 129))
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ev := validEvent()
			mutate(&ev)
			if err := ev.Validate(); !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}

	ev := validEvent()
	if err := ev.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if ev.ExternalRef != "scr-1" {
		t.Fatalf("external ref not trimmed: %q", ev.ExternalRef)
	}
}

func TestDecodeScreeningCompleted(t *testing.T) {
	ev, err := DecodeScreeningCompleted([]byte(`{"external_ref":"scr-9","organization_id":2,"beneficiary_id":5,"occurred_at":"2024-07-05T10:00:00+05:30","record":{"hb":10.9}}`))
	if err != nil {
		t.Fatalf("DecodeScreeningCompleted returned error: %v", err)
	}
	if ev.ExternalRef != "scr-9" || ev.OrganizationID != 2 || ev.BeneficiaryID != 5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.OccurredAt.Equal(time.Date(2024, 7, 5, 4, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected occurred_at: %s", ev.OccurredAt)
	}
	if string(ev.Record) != `{"hb":10.9}` {
		t.Fatalf("unexpected record: %s", ev.Record)
	}

	if _, err := DecodeScreeningCompleted([]byte(`{`)); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for bad JSON, got %v", err)
	}
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(func(_ context.Context, ev ScreeningCompleted) error {
		got = append(got, "first:"+ev.ExternalRef)
		return nil
	})
	bus.Subscribe(func(_ context.Context, ev ScreeningCompleted) error {
		got = append(got, "second:"+ev.ExternalRef)
		return errors.New("boom")
	})

	err := bus.Publish(context.Background(), validEvent())
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected handler error, got %v", err)
	}
	if len(got) != 2 || got[0] != "first:scr-1" || got[1] != "second:scr-1" {
		t.Fatalf("handlers not run in order: %v", got)
	}

	got = nil
	if err := bus.Publish(context.Background(), ScreeningCompleted{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("handlers ran for an invalid event")
	}
}
