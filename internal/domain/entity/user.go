package entity

// Roles válidos del colaborador de sesión.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager" // jefe de bodega: aprueba solicitudes
	RoleClerk   = "clerk"   // operario: movimientos y recepción
	RoleVendor  = "vendor"  // proveedor externo: confirma pedidos
	RoleSystem  = "system"  // tareas programadas y consumidores internos
)

// Actor identidad que ejecuta una operación mutante. La entrega el colaborador
// de sesión (JWT) y se autoriza en el motor en cada llamada.
type Actor struct {
	UserID   string
	Role     string
	VendorID string // solo RoleVendor
}

// SystemActor actor usado por cron y consumidores de eventos.
func SystemActor() Actor {
	return Actor{UserID: "system", Role: RoleSystem}
}
