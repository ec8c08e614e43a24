package entity

import "time"

// EventKind tipo de evento emitido hacia el puente de notificaciones.
type EventKind string

const (
	EventStockStatusChanged  EventKind = "STOCK_STATUS_CHANGED"
	EventReorderTransitioned EventKind = "REORDER_TRANSITIONED"
)

// Event registro del outbox. Se escribe en la misma transacción que la mutación
// y se entrega de forma asíncrona. Seq es el cursor para polling de clientes.
type Event struct {
	Seq         int64
	ID          string
	Kind        EventKind
	ProductID   string
	RequestID   string // solo REORDER_TRANSITIONED
	From        string
	To          string
	OccurredAt  time.Time
	DeliveredAt *time.Time
}

// Key clave de partición para brokers: el agregado afectado.
func (e *Event) Key() string {
	if e.RequestID != "" {
		return "reorder-" + e.RequestID
	}
	return "product-" + e.ProductID
}
