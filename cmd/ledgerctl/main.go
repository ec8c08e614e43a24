// Command ledgerctl tareas operativas sobre el ledger: migraciones, conciliación,
// importación de movimientos, generación de órdenes de compra y emisión de tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
