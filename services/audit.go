package services

import (
	"encoding/json"
	"strconv"

	"supplement-program-api/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recordAudit writes an audit row inside the caller's transaction.
func recordAudit(tx *gorm.DB, orgID uint, actorID *uint, action, targetModel string, targetID uint, payload map[string]interface{}) error {
	var raw datatypes.JSON
	if len(payload) > 0 {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	entry := &models.AuditLog{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		TargetModel:    targetModel,
		TargetID:       strconv.FormatUint(uint64(targetID), 10),
		Payload:        raw,
	}
	return tx.Create(entry).Error
}
