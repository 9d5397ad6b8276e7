package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidEvent = errors.New("invalid screening event")

// ScreeningCompleted is published by the screening service when a beneficiary has been
// re-screened. Every such event counts as qualifying for milestone completion.
type ScreeningCompleted struct {
	ExternalRef    string          `json:"external_ref"`
	OrganizationID uint            `json:"organization_id"`
	BeneficiaryID  uint            `json:"beneficiary_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Record         json.RawMessage `json:"record,omitempty"`
}

func (e *ScreeningCompleted) Validate() error {
	e.ExternalRef = strings.TrimSpace(e.ExternalRef)
	switch {
	case e.ExternalRef == "":
		return fmt.Errorf("%w: external_ref is required", ErrInvalidEvent)
	case len(e.ExternalRef) > 128:
		return fmt.Errorf("%w: external_ref is longer than 128 characters", ErrInvalidEvent)
	case e.OrganizationID == 0:
		return fmt.Errorf("%w: organization_id is required", ErrInvalidEvent)
	case e.BeneficiaryID == 0:
		return fmt.Errorf("%w: beneficiary_id is required", ErrInvalidEvent)
	case e.OccurredAt.IsZero():
		return fmt.Errorf("%w: occurred_at is required", ErrInvalidEvent)
	}
	return nil
}

// DecodeScreeningCompleted parses and validates a JSON payload.
func DecodeScreeningCompleted(data []byte) (ScreeningCompleted, error) {
	var ev ScreeningCompleted
	if err := json.Unmarshal(data, &ev); err != nil {
		return ScreeningCompleted{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return ScreeningCompleted{}, err
	}
	return ev, nil
}
