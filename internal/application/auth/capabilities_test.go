package auth_test

import (
	"testing"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize_PorRol(t *testing.T) {
	admin := entity.Actor{UserID: "u1", Role: entity.RoleAdmin}
	manager := entity.Actor{UserID: "u2", Role: entity.RoleManager}
	clerk := entity.Actor{UserID: "u3", Role: entity.RoleClerk}

	assert.NoError(t, auth.Authorize(admin, auth.CapReorderClose))
	assert.NoError(t, auth.Authorize(manager, auth.CapReorderApprove))
	assert.ErrorIs(t, auth.Authorize(manager, auth.CapReorderClose), domain.ErrForbidden)
	assert.ErrorIs(t, auth.Authorize(manager, auth.CapProductDelete), domain.ErrForbidden)
	assert.ErrorIs(t, auth.Authorize(clerk, auth.CapReorderApprove), domain.ErrForbidden)
	assert.NoError(t, auth.Authorize(clerk, auth.CapStockWrite))

	assert.NoError(t, auth.Authorize(manager, auth.CapAuditRead))
	assert.ErrorIs(t, auth.Authorize(clerk, auth.CapAuditRead), domain.ErrForbidden)
	assert.NoError(t, auth.Authorize(clerk, auth.CapStatsRead))
}

func TestAuthorize_SinIdentidad(t *testing.T) {
	assert.ErrorIs(t, auth.Authorize(entity.Actor{}, auth.CapStockWrite), domain.ErrUnauthorized)
	assert.ErrorIs(t, auth.Authorize(entity.Actor{UserID: "x"}, auth.CapStockWrite), domain.ErrUnauthorized)
}

func TestAuthorize_RolDesconocido(t *testing.T) {
	err := auth.Authorize(entity.Actor{UserID: "x", Role: "superuser"}, auth.CapStockWrite)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, auth.Capabilities("superuser"))
}

func TestAuthorizeVendor(t *testing.T) {
	vendor := entity.Actor{UserID: "v", Role: entity.RoleVendor, VendorID: "acme"}
	assert.NoError(t, auth.AuthorizeVendor(vendor, auth.CapReorderAcknowledge, "acme"))
	assert.ErrorIs(t, auth.AuthorizeVendor(vendor, auth.CapReorderAcknowledge, "otro"), domain.ErrForbidden)
	assert.ErrorIs(t, auth.AuthorizeVendor(vendor, auth.CapReorderApprove, "acme"), domain.ErrForbidden)

	// el sistema (consumidor de eventos del proveedor) no se ata a un vendor
	assert.NoError(t, auth.AuthorizeVendor(entity.SystemActor(), auth.CapReorderAcknowledge, "acme"))
}
