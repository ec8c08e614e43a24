// Package auth autoriza cada llamada mutante contra un conjunto de capacidades
// derivado del rol del actor. El motor lo aplica siempre, aunque la UI oculte la acción.
package auth

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Capability permiso atómico del motor.
type Capability string

const (
	CapStockWrite         Capability = "stock:write"
	CapProductManage      Capability = "product:manage"
	CapProductDelete      Capability = "product:delete" // elevado
	CapReorderCreate      Capability = "reorder:create"
	CapReorderApprove     Capability = "reorder:approve" // aprobador
	CapReorderSend        Capability = "reorder:send"
	CapReorderAcknowledge Capability = "reorder:acknowledge" // originado por proveedor
	CapReorderReceive     Capability = "reorder:receive"
	CapReorderCancel      Capability = "reorder:cancel"
	CapReorderClose       Capability = "reorder:close" // elevado
	CapReorderGenerate    Capability = "reorder:generate"
	CapForecastWrite      Capability = "forecast:write"
	CapEventsRead         Capability = "events:read"
	CapTasksRun           Capability = "tasks:run"
	CapAuditRead          Capability = "audit:read"
	CapStatsRead          Capability = "stats:read" // un proveedor solo ve las suyas
)

var roleCapabilities = map[string][]Capability{
	entity.RoleAdmin: {
		CapStockWrite, CapProductManage, CapProductDelete,
		CapReorderCreate, CapReorderApprove, CapReorderSend, CapReorderReceive,
		CapReorderCancel, CapReorderClose, CapReorderGenerate,
		CapForecastWrite, CapEventsRead, CapTasksRun, CapAuditRead, CapStatsRead,
	},
	entity.RoleManager: {
		CapStockWrite, CapProductManage,
		CapReorderCreate, CapReorderApprove, CapReorderSend, CapReorderReceive,
		CapReorderCancel, CapReorderGenerate,
		CapEventsRead, CapTasksRun, CapAuditRead, CapStatsRead,
	},
	entity.RoleClerk: {
		CapStockWrite, CapReorderCreate, CapReorderReceive, CapEventsRead, CapStatsRead,
	},
	entity.RoleVendor: {
		CapReorderAcknowledge, CapEventsRead, CapStatsRead,
	},
	entity.RoleSystem: {
		CapStockWrite, CapReorderGenerate, CapReorderAcknowledge, CapForecastWrite, CapTasksRun,
	},
}

// Capabilities devuelve el conjunto de capacidades de un rol (vacío si el rol no existe).
func Capabilities(role string) map[Capability]bool {
	out := make(map[Capability]bool, len(roleCapabilities[role]))
	for _, c := range roleCapabilities[role] {
		out[c] = true
	}
	return out
}

// Authorize devuelve ErrUnauthorized si no hay identidad y ErrForbidden si el rol no tiene la capacidad.
func Authorize(actor entity.Actor, capability Capability) error {
	if actor.UserID == "" || actor.Role == "" {
		return domain.ErrUnauthorized
	}
	for _, c := range roleCapabilities[actor.Role] {
		if c == capability {
			return nil
		}
	}
	return fmt.Errorf("%w: el rol %q no tiene %s", domain.ErrForbidden, actor.Role, capability)
}

// AuthorizeVendor exige además que un proveedor solo actúe sobre sus propias solicitudes.
func AuthorizeVendor(actor entity.Actor, capability Capability, vendorID string) error {
	if err := Authorize(actor, capability); err != nil {
		return err
	}
	if actor.Role == entity.RoleVendor && actor.VendorID != vendorID {
		return fmt.Errorf("%w: la solicitud pertenece a otro proveedor", domain.ErrForbidden)
	}
	return nil
}
