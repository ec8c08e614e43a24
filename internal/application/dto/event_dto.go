package dto

import "github.com/jhoicas/stock-ledger/internal/application/notification"

// EventsResponse página de eventos para polling. next_seq es el cursor de la siguiente llamada.
type EventsResponse struct {
	Events  []notification.Message `json:"events"`
	NextSeq int64                  `json:"next_seq"`
}
