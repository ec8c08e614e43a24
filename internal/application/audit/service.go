// Package audit registra y consulta la bitácora de cambios del catálogo y del flujo de
// reposición. Los movimientos de stock no pasan por aquí: el ledger ya es su historial.
package audit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Record escribe una entrada con los campos que difieren entre before y after. before nil
// es un alta y registra todos los campos de after. Si nada cambió no escribe.
func Record(ctx context.Context, repo repository.AuditRepository, actor entity.Actor, action entity.AuditAction,
	entityType, entityID string, before, after map[string]string, now time.Time) error {
	fields := diff(before, after)
	if len(fields) == 0 {
		return nil
	}
	entry := &entity.AuditEntry{
		ID:            uuid.New().String(),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		ChangedFields: fields,
		NewValue:      pick(after, fields),
		PerformedBy:   actor.UserID,
		PerformedAt:   now,
	}
	if before != nil {
		entry.OldValue = pick(before, fields)
	}
	if err := repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("registrar auditoría: %w", err)
	}
	return nil
}

func diff(before, after map[string]string) []string {
	var fields []string
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			fields = append(fields, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}

func pick(values map[string]string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := values[f]; ok {
			out[f] = v
		}
	}
	return out
}

// ProductFields datos maestros y umbrales auditables. Cantidad, estado y costo quedan
// fuera porque los escribe el ledger.
func ProductFields(p *entity.Product) map[string]string {
	return map[string]string{
		"sku":           p.SKU,
		"name":          p.Name,
		"category_id":   p.CategoryID,
		"vendor_id":     p.VendorID,
		"unit_price":    p.UnitPrice.String(),
		"min_quantity":  p.MinQuantity.String(),
		"reorder_point": p.ReorderPoint.String(),
		"max_quantity":  p.MaxQuantity.String(),
		"active":        strconv.FormatBool(p.Active),
	}
}

// ReorderFields campos auditables de una solicitud.
func ReorderFields(r *entity.ReorderRequest) map[string]string {
	return map[string]string{
		"product_id":         r.ProductID,
		"status":             string(r.Status),
		"priority":           string(r.Priority),
		"vendor_id":          r.VendorID,
		"requested_quantity": r.RequestedQuantity.String(),
		"received_quantity":  r.ReceivedQuantity.String(),
		"approved_by":        r.ApprovedBy,
		"rejection_reason":   r.RejectionReason,
		"notes":              r.Notes,
	}
}

// Service consulta de la bitácora.
type Service struct {
	repo repository.AuditRepository
}

// NewService construye el servicio.
func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

// List entradas más recientes primero, filtradas por entidad, acción o autor.
func (s *Service) List(ctx context.Context, actor entity.Actor, filter entity.AuditFilter) ([]*entity.AuditEntry, error) {
	if err := auth.Authorize(actor, auth.CapAuditRead); err != nil {
		return nil, err
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, fmt.Errorf("%w: acción %q", domain.ErrInvalidInput, filter.Action)
	}
	if filter.EntityID != "" && filter.EntityType == "" {
		return nil, fmt.Errorf("%w: entity_id requiere entity_type", domain.ErrInvalidInput)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset negativo", domain.ErrInvalidInput)
	}
	if filter.Limit <= 0 || filter.Limit > maxLimit {
		filter.Limit = defaultLimit
	}
	return s.repo.List(ctx, filter)
}
