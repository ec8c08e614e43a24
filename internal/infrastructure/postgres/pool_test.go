package postgres

import (
	"testing"

	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig_DesdeCampos(t *testing.T) {
	cfg := config.DBConfig{
		Host: "db", Port: 5433, User: "ledger", Password: "p@ss", DBName: "stock", SSLMode: "disable",
		MaxConns: 7, MinConns: 1,
	}
	pc, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss", pc.ConnConfig.Password)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "10s", pc.ConnConfig.RuntimeParams["lock_timeout"])
	assert.NotNil(t, pc.AfterConnect)
}

func TestPoolConfig_DatabaseURLTienePrioridad(t *testing.T) {
	cfg := config.DBConfig{
		DatabaseURL: "postgres://u:p@remote:5432/other?sslmode=disable&application_name=ledgerctl",
		Host:        "ignored",
	}
	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "remote", pc.ConnConfig.Host)
	assert.Equal(t, "other", pc.ConnConfig.Database)
	assert.Equal(t, "ledgerctl", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_DSNInvalido(t *testing.T) {
	_, err := poolConfig(config.DBConfig{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}
