package jobs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ImportReport resultado de una importación confirmada.
type ImportReport struct {
	Rows     int `json:"rows"`
	Products int `json:"products"`
}

type importRow struct {
	line int
	sku  string
	cmd  inventory.MovementCommand
}

// Importer aplica archivos CSV de movimientos en una sola transacción.
type Importer struct {
	txRunner inventory.TxRunner
	log      zerolog.Logger
}

// NewImporter construye el importador.
func NewImporter(txRunner inventory.TxRunner, log zerolog.Logger) *Importer {
	return &Importer{txRunner: txRunner, log: log.With().Str("component", "import").Logger()}
}

// ImportMovements aplica las filas sku,type,quantity,reason,reference[,idempotency_key].
// Todo o nada: una fila inválida o la cancelación de ctx revierten el archivo completo.
func (i *Importer) ImportMovements(ctx context.Context, actor entity.Actor, src io.Reader) (ImportReport, error) {
	var rep ImportReport
	if err := auth.Authorize(actor, auth.CapStockWrite); err != nil {
		return rep, err
	}
	rows, err := parseMovementsCSV(src)
	if err != nil {
		return rep, err
	}
	ctx, span := tracing.Start(ctx, "jobs.import", attribute.Int("rows", len(rows)))

	err = i.txRunner.Run(ctx, func(r inventory.Repos) error {
		products := make(map[string]string)
		for k := range rows {
			id, ok := products[rows[k].sku]
			if !ok {
				p, err := r.Products.GetBySKU(ctx, rows[k].sku)
				if err != nil {
					return fmt.Errorf("fila %d: %w", rows[k].line, err)
				}
				if p == nil {
					return fmt.Errorf("fila %d: sku %s: %w", rows[k].line, rows[k].sku, domain.ErrNotFound)
				}
				id = p.ID
				products[rows[k].sku] = id
			}
			rows[k].cmd.ProductID = id
		}
		// orden estable por producto: los bloqueos se toman siempre en el mismo orden
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].cmd.ProductID < rows[b].cmd.ProductID })

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := inventory.AppendInTx(ctx, r, actor, row.cmd); err != nil {
				return fmt.Errorf("fila %d: %w", row.line, err)
			}
		}
		rep = ImportReport{Rows: len(rows), Products: len(products)}
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		i.log.Warn().Err(err).Int("rows", len(rows)).Str("actor", actor.UserID).Msg("importación revertida")
		return ImportReport{}, err
	}
	i.log.Info().Int("rows", rep.Rows).Int("products", rep.Products).Str("actor", actor.UserID).Msg("importación confirmada")
	return rep, nil
}

func parseMovementsCSV(src io.Reader) ([]importRow, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []importRow
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", domain.ErrInvalidInput, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: fila %d: se esperan al menos sku,type,quantity", domain.ErrInvalidInput, line)
		}
		t := entity.MovementType(strings.ToUpper(strings.TrimSpace(rec[1])))
		if !t.Valid() || t == entity.MovementTransfer {
			return nil, fmt.Errorf("%w: fila %d: tipo %q no importable", domain.ErrInvalidInput, line, rec[1])
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: fila %d: cantidad %q", domain.ErrInvalidInput, line, rec[2])
		}
		row := importRow{
			line: line,
			sku:  strings.TrimSpace(rec[0]),
			cmd:  inventory.MovementCommand{Type: t, Quantity: qty},
		}
		if row.sku == "" {
			return nil, fmt.Errorf("%w: fila %d: sku requerido", domain.ErrInvalidInput, line)
		}
		if len(rec) > 3 {
			row.cmd.Reason = strings.TrimSpace(rec[3])
		}
		if len(rec) > 4 {
			row.cmd.Reference = strings.TrimSpace(rec[4])
		}
		if len(rec) > 5 {
			row.cmd.IdempotencyKey = strings.TrimSpace(rec[5])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: archivo sin filas", domain.ErrInvalidInput)
	}
	return rows, nil
}
