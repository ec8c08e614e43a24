package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// migrationsTable tabla de control de golang-migrate (version, dirty).
const migrationsTable = "stock_ledger_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationResult versión del esquema antes y después de migrar. 0 = esquema vacío.
type MigrationResult struct {
	From uint
	To   uint
}

// Applied indica si la corrida cambió la versión.
func (r MigrationResult) Applied() bool { return r.From != r.To }

// Migrate lleva el esquema a la última versión embebida en migrations/.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationResult, error) {
	return runMigrations(ctx, pool, func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown revierte steps versiones (steps > 0).
func MigrateDown(ctx context.Context, pool *pgxpool.Pool, steps int) (MigrationResult, error) {
	if steps <= 0 {
		return MigrationResult{}, fmt.Errorf("steps debe ser positivo: %d", steps)
	}
	return runMigrations(ctx, pool, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, run func(m *migrate.Migrate) error) (MigrationResult, error) {
	var res MigrationResult

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return res, fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = db.Close()
		return res, fmt.Errorf("driver de migraciones: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return res, fmt.Errorf("iniciar migraciones: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("cierre de migraciones")
		}
	}()
	m.Log = migrateLogger{}

	res.From, err = currentVersion(m)
	if err != nil {
		return res, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("aplicar migraciones: %w", err)
	}
	res.To, err = currentVersion(m)
	if err != nil {
		return res, err
	}
	log.Info().Uint("from", res.From).Uint("to", res.To).Msg("esquema migrado")
	return res, nil
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("leer versión del esquema: %w", err)
	case dirty:
		return v, fmt.Errorf("esquema en versión %d marcado dirty: corregir a mano y forzar la versión", v)
	}
	return v, nil
}

// embeddedVersions versiones disponibles en migrations/ en orden ascendente.
func embeddedVersions() ([]uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var out []uint
	v, err := src.First()
	for err == nil {
		out = append(out, v)
		v, err = src.Next(v)
	}
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	return out, err
}

// migrateLogger adapta el logger de golang-migrate a zerolog.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Debug().Str("component", "migrate").Msgf(format, v...)
}

func (migrateLogger) Verbose() bool { return false }
