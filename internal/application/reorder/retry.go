package reorder

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RetryOnConflict reintenta fn mientras falle con un error reintentable
// (ErrConcurrentModification), hasta attempts veces con espera lineal.
func RetryOnConflict(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !domain.IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return err
}

// AcknowledgeFromVendor confirma una solicitud a partir de un mensaje del proveedor
// (broker). Actúa con la identidad del proveedor, así que el vendor del mensaje debe
// coincidir con el de la solicitud. Reintenta ante escrituras concurrentes.
func (s *Service) AcknowledgeFromVendor(ctx context.Context, requestID, vendorID string) (*entity.ReorderRequest, error) {
	actor := entity.Actor{UserID: "vendor:" + vendorID, Role: entity.RoleVendor, VendorID: vendorID}
	var out *entity.ReorderRequest
	err := RetryOnConflict(ctx, ackAttempts, ackBackoff, func() error {
		var err error
		out, err = s.Acknowledge(ctx, actor, requestID)
		return err
	})
	return out, err
}

const (
	ackAttempts = 5
	ackBackoff  = 50 * time.Millisecond
)
