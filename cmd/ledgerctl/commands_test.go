package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestToken_EmiteJWTValido(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--user", "u-1", "--role", "vendor", "--vendor", "acme")
	require.NoError(t, err)

	claims, err := jwt.Parse("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "vendor", claims.Role)
	assert.Equal(t, "acme", claims.VendorID)
}

func TestToken_Validaciones(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := execute(t, "token", "--user", "u-1", "--role", "vendor")
	assert.Error(t, err, "vendor sin proveedor")

	_, err = execute(t, "token", "--user", "u-1", "--role", "root")
	assert.Error(t, err)

	_, err = execute(t, "token", "--role", "admin")
	assert.Error(t, err, "--user es obligatorio")
}

func TestVerify_MemoriaVacia(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	out, err := execute(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "0 productos, 0 descuadrados")
}

func TestMigrate_RequierePostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	_, err := execute(t, "migrate")
	assert.ErrorContains(t, err, "STORE_DRIVER=postgres")
}

func TestMigrate_DownNegativo(t *testing.T) {
	_, err := execute(t, "migrate", "--down", "-1")
	assert.ErrorContains(t, err, "--down debe ser positivo")
}
