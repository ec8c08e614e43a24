package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

var errInconsistent = errors.New("hay productos con el ledger descuadrado")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operación del ledger de inventario",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(),
		verifyCmd(),
		autoGenerateCmd(),
		importCmd(),
		dispatchCmd(),
		tokenCmd(),
	)
	return root
}

// boot carga configuración y arma el contenedor. El caller cierra.
func boot(ctx context.Context) (*bootstrap.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "ledgerctl", Out: os.Stderr})
	return bootstrap.Build(ctx, cfg, log.Zerolog())
}

// ledgerctl migrate [--down N]
func migrateCmd() *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplicar migraciones pendientes de PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if down < 0 {
				return fmt.Errorf("--down debe ser positivo: %d", down)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.StorePostgres {
				return fmt.Errorf("migrate requiere STORE_DRIVER=postgres")
			}
			pool, err := postgres.NewPool(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			var res postgres.MigrationResult
			if down > 0 {
				res, err = postgres.MigrateDown(ctx, pool, down)
			} else {
				res, err = postgres.Migrate(ctx, pool)
			}
			if err != nil {
				return err
			}
			if !res.Applied() {
				fmt.Fprintf(cmd.OutOrStdout(), "sin migraciones pendientes (v%d)\n", res.To)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "esquema: v%d -> v%d\n", res.From, res.To)
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "revertir N versiones")
	return cmd
}

// ledgerctl verify [product-id]
func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [product-id]",
		Short: "Reconstruir cantidades desde el ledger y compararlas con el agregado",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			return runVerify(cmd, c.Ledger, args)
		},
	}
}

func runVerify(cmd *cobra.Command, ledger *inventory.LedgerService, args []string) error {
	var reports []*inventory.VerifyReport
	if len(args) == 1 {
		r, err := ledger.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		reports = append(reports, r)
	} else {
		all, err := ledger.VerifyAll(cmd.Context())
		if err != nil {
			return err
		}
		reports = all
	}
	bad := 0
	for _, r := range reports {
		mark := "ok"
		if !r.Consistent {
			mark = "DESCUADRE"
			bad++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s agregado=%s ledger=%s movimientos=%d\n",
			mark, r.SKU, r.Aggregate, r.Replayed, r.Movements)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d productos, %d descuadrados\n", len(reports), bad)
	if bad > 0 {
		return errInconsistent
	}
	return nil
}

// ledgerctl auto-generate
func autoGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-generate",
		Short: "Crear solicitudes de reposición para SKUs en o bajo su punto de reorden",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			created, err := c.Reorders.AutoGeneratePurchaseOrders(cmd.Context(), entity.SystemActor())
			if err != nil {
				return err
			}
			for _, r := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s producto=%s cantidad=%s prioridad=%s\n", r.ID, r.ProductID, r.RequestedQuantity, r.Priority)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d solicitudes creadas\n", len(created))
			return nil
		},
	}
}

// ledgerctl import <archivo.csv>
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <archivo.csv>",
		Short: "Importar movimientos (sku,type,quantity[,reason,reference,idempotency_key]) en una transacción",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			c, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			rep, err := jobs.NewImporter(c.TxRunner, c.Log).ImportMovements(cmd.Context(), entity.SystemActor(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d filas importadas sobre %d productos\n", rep.Rows, rep.Products)
			return nil
		},
	}
}

// ledgerctl dispatch
func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Entregar una vez los eventos pendientes del outbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			total := 0
			for {
				n, err := c.Dispatcher.DispatchOnce(cmd.Context())
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d eventos entregados\n", total)
			return nil
		},
	}
}

// ledgerctl token --user u --role r [--vendor v]
func tokenCmd() *cobra.Command {
	var userID, role, vendorID string
	var minutes int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emitir un JWT firmado con JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			switch role {
			case entity.RoleAdmin, entity.RoleManager, entity.RoleClerk, entity.RoleSystem:
			case entity.RoleVendor:
				if vendorID == "" {
					return fmt.Errorf("el rol vendor requiere --vendor")
				}
			default:
				return fmt.Errorf("rol desconocido: %q", role)
			}
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, role, vendorID, cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "ID del usuario")
	cmd.Flags().StringVar(&role, "role", "", "admin | manager | clerk | vendor | system")
	cmd.Flags().StringVar(&vendorID, "vendor", "", "ID del proveedor (solo rol vendor)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "vigencia en minutos (default JWT_EXPIRATION_MINUTES)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
