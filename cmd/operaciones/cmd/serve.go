package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/operaciones-factoring/internal/interfaces/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Levanta la API de consulta de operaciones",
	Long: `Levanta la API HTTP de consulta:
  - GET /health                 - estado del servicio
  - GET /api/operations/:id     - operación con sus facturas (Bearer JWT)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	log := rt.log

	pool, err := rt.pool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewOperationRepository(pool, log.Component("postgres"))

	app := fiber.New(fiber.Config{
		AppName:      rt.cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:      rt.cfg.App.Name,
		GetOperation: operations.NewGetOperationUseCase(repo),
		JWTSecret:    rt.cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(rt.cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("servidor detenido")
	return nil
}
