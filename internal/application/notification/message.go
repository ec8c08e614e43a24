package notification

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Message forma serializada de un evento para brokers y clientes.
type Message struct {
	Seq        int64     `json:"seq"`
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ProductID  string    `json:"product_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMessage convierte un evento del outbox.
func NewMessage(e *entity.Event) Message {
	return Message{
		Seq:        e.Seq,
		ID:         e.ID,
		Kind:       string(e.Kind),
		ProductID:  e.ProductID,
		RequestID:  e.RequestID,
		From:       e.From,
		To:         e.To,
		OccurredAt: e.OccurredAt,
	}
}
