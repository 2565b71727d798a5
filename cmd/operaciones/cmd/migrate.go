package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el esquema de base de datos (idempotente)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		pool, err := rt.pool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()
		return postgres.Migrate(cmd.Context(), pool, rt.log.Component("migrate"))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
