// Package reorder contiene la máquina de estados de las solicitudes de reposición.
// Es pura: no conoce repositorios ni transacciones.
package reorder

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Action acción del flujo de reposición.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionSend        Action = "send"
	ActionAcknowledge Action = "acknowledge"
	ActionReceive     Action = "receive"
	ActionCancel      Action = "cancel"
	ActionClose       Action = "close"
)

// transitions tabla origen -> destino por acción. receive se resuelve en NextOnReceive.
var transitions = map[Action]map[entity.ReorderStatus]entity.ReorderStatus{
	ActionSubmit: {
		entity.ReorderDraft: entity.ReorderPending,
	},
	ActionApprove: {
		entity.ReorderPending: entity.ReorderApproved,
	},
	ActionReject: {
		entity.ReorderPending: entity.ReorderRejected,
	},
	ActionSend: {
		entity.ReorderApproved: entity.ReorderSent,
	},
	ActionAcknowledge: {
		entity.ReorderSent: entity.ReorderAcknowledged,
	},
	ActionCancel: {
		entity.ReorderPending:  entity.ReorderCancelled,
		entity.ReorderApproved: entity.ReorderCancelled,
		entity.ReorderSent:     entity.ReorderCancelled,
	},
	ActionClose: {
		entity.ReorderReceived: entity.ReorderClosed,
	},
}

// Next devuelve el estado destino de una acción sin guardas de cantidad.
func Next(current entity.ReorderStatus, action Action) (entity.ReorderStatus, error) {
	if action == ActionReceive {
		return current, fmt.Errorf("%w: usar NextOnReceive", domain.ErrInvalidInput)
	}
	byState, ok := transitions[action]
	if !ok {
		return current, domain.ErrInvalidInput
	}
	to, ok := byState[current]
	if !ok {
		return current, &domain.StateTransitionError{Current: string(current), Action: string(action)}
	}
	return to, nil
}

// NextOnReceive resuelve receive(qty):
//
//	SENT/ACKNOWLEDGED,                    0 < qty < remaining -> PARTIALLY_RECEIVED
//	SENT/ACKNOWLEDGED/PARTIALLY_RECEIVED, qty == remaining    -> RECEIVED
func NextOnReceive(current entity.ReorderStatus, qty, remaining decimal.Decimal) (entity.ReorderStatus, error) {
	partialSource := current == entity.ReorderSent || current == entity.ReorderAcknowledged
	completeSource := partialSource || current == entity.ReorderPartiallyReceived
	if !completeSource {
		return current, &domain.StateTransitionError{Current: string(current), Action: string(ActionReceive)}
	}
	if !qty.IsPositive() {
		return current, domain.ErrInvalidQuantity
	}
	switch {
	case qty.Equal(remaining):
		return entity.ReorderReceived, nil
	case qty.GreaterThan(remaining):
		return current, fmt.Errorf("%w: se reciben %s y quedan %s pendientes", domain.ErrInvalidInput, qty, remaining)
	case partialSource:
		return entity.ReorderPartiallyReceived, nil
	}
	// una recepción parcial adicional no está en la tabla de transiciones
	return current, &domain.StateTransitionError{Current: string(current), Action: string(ActionReceive)}
}

// Allowed lista las acciones disponibles desde un estado (para clientes).
func Allowed(current entity.ReorderStatus) []Action {
	var out []Action
	for _, a := range []Action{ActionSubmit, ActionApprove, ActionReject, ActionSend, ActionAcknowledge, ActionCancel, ActionClose} {
		if _, ok := transitions[a][current]; ok {
			out = append(out, a)
		}
	}
	switch current {
	case entity.ReorderSent, entity.ReorderAcknowledged, entity.ReorderPartiallyReceived:
		out = append(out, ActionReceive)
	}
	return out
}
