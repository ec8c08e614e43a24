package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrInvalidQuantity        = fmt.Errorf("%w: la cantidad debe ser mayor que cero", ErrInvalidInput)
	ErrInvalidThresholds      = fmt.Errorf("%w: se requiere 0 <= min <= punto de reorden <= max", ErrInvalidInput)
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrConcurrentModification = errors.New("el recurso fue modificado concurrentemente")
)

// StateTransitionError detalla una acción rechazada por la máquina de estados.
// errors.Is(err, ErrInvalidStateTransition) es verdadero.
type StateTransitionError struct {
	Current string
	Action  string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("transición de estado inválida: acción %q no permitida desde %s", e.Action, e.Current)
}

func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// InsufficientStockError informa la cantidad disponible frente a la solicitada.
type InsufficientStockError struct {
	ProductID string
	Available string
	Requested string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %s, solicitado %s", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsRetryable indica si el llamador puede reintentar la operación con estado refrescado.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
