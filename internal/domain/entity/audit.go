package entity

import "time"

// AuditAction tipo de cambio registrado en la bitácora.
type AuditAction string

const (
	AuditCreate     AuditAction = "CREATE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditDelete     AuditAction = "DELETE"
	AuditTransition AuditAction = "TRANSITION"
)

// Valid indica si la acción es conocida.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditDelete, AuditTransition:
		return true
	}
	return false
}

// Tipos de entidad auditados.
const (
	AuditEntityProduct = "product"
	AuditEntityReorder = "reorder_request"
)

// AuditEntry cambio sobre una entidad del catálogo o del flujo de reposición. Se escribe
// en la misma transacción que la mutación. OldValue y NewValue solo llevan los campos
// de ChangedFields.
type AuditEntry struct {
	ID            string
	Action        AuditAction
	EntityType    string
	EntityID      string
	ChangedFields []string
	OldValue      map[string]string
	NewValue      map[string]string
	PerformedBy   string
	PerformedAt   time.Time
}

// AuditFilter filtros del listado; vacíos no filtran.
type AuditFilter struct {
	EntityType  string
	EntityID    string
	Action      AuditAction
	PerformedBy string
	Limit       int
	Offset      int
}
