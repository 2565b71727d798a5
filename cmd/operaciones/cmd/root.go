package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/postgres"
	"github.com/jhoicas/operaciones-factoring/pkg/config"
	"github.com/jhoicas/operaciones-factoring/pkg/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "operaciones",
	Short: "Procesa operaciones de factoring (XML UBL → Cavali → base de datos)",
	Long: `operaciones recibe las facturas de una operación de factoring, las valida en
lotes con Cavali, concilia los resultados y persiste la operación con un id
OP-YYYYMMDD-NNN.

Ejemplos:
  # Procesar los archivos subidos a una carpeta temporal
  operaciones process --dir /tmp/op-123 --metadata '{"user_email":"kevin.tupac@capitalexpress.cl","tasaOperacion":1.5}'

  # Aplicar el esquema de base de datos
  operaciones migrate

  # Levantar la API de consulta
  operaciones serve`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

// runtime configuración y logger compartidos por los subcomandos.
type runtime struct {
	cfg *config.Config
	log *logger.Logger
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log.Info().Str("env", cfg.App.Env).Str("app", cfg.App.Name).Msg("configuración cargada")
	return &runtime{cfg: cfg, log: log}, nil
}

func (rt *runtime) pool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, rt.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	return pool, nil
}
