package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AuditEntryResponse entrada de la bitácora. old_value falta en las altas.
type AuditEntryResponse struct {
	ID            string            `json:"id"`
	Action        string            `json:"action"`
	EntityType    string            `json:"entity_type"`
	EntityID      string            `json:"entity_id"`
	ChangedFields []string          `json:"changed_fields"`
	OldValue      map[string]string `json:"old_value,omitempty"`
	NewValue      map[string]string `json:"new_value,omitempty"`
	PerformedBy   string            `json:"performed_by"`
	PerformedAt   time.Time         `json:"performed_at"`
}

// AuditEntriesResponse página de la bitácora.
type AuditEntriesResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

func AuditFromEntity(e *entity.AuditEntry) AuditEntryResponse {
	fields := e.ChangedFields
	if fields == nil {
		fields = []string{}
	}
	return AuditEntryResponse{
		ID:            e.ID,
		Action:        string(e.Action),
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		ChangedFields: fields,
		OldValue:      e.OldValue,
		NewValue:      e.NewValue,
		PerformedBy:   e.PerformedBy,
		PerformedAt:   e.PerformedAt,
	}
}
