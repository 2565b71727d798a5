package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("CAVALI_BATCH_SIZE", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Cavali.BatchSize, "tamaño de lote por defecto")
	assert.Equal(t, 60*time.Second, cfg.Cavali.SubmitTimeout)
	assert.Equal(t, 30*time.Second, cfg.Cavali.StatusTimeout)
	assert.Equal(t, "Confirmación de Facturas Negociables", cfg.Mail.Subject)
	assert.Equal(t, "CE", cfg.Pipeline.DefaultInitials)
}

func TestLoad_EnvTienePrioridad(t *testing.T) {
	t.Setenv("CAVALI_BATCH_SIZE", "10")
	t.Setenv("CAVALI_SUBMIT_TIMEOUT_SECONDS", "90")
	t.Setenv("CAVALI_WORKERS", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Cavali.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Cavali.SubmitTimeout)
	assert.Equal(t, 1, cfg.Cavali.Workers, "workers <= 0 se corrige a 1")
}

func TestLoad_BatchSizeInvalido(t *testing.T) {
	t.Setenv("CAVALI_BATCH_SIZE", "-5")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "factoring", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/factoring?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
