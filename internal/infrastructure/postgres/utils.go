package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que el motor traduce a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03" // lock_timeout vencido esperando un FOR UPDATE
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único.
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// wrapPgError envuelve err con op. Bloqueos vencidos, deadlocks y fallas de
// serialización se reportan como ErrConcurrentModification (reintentable); una
// FK rota como ErrNotFound.
func wrapPgError(op string, err error) error {
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConcurrentModification, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
