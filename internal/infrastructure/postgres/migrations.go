package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Migrate aplica el esquema. Idempotente gracias a IF NOT EXISTS.
func Migrate(ctx context.Context, q Querier, log zerolog.Logger) error {
	log.Info().Int("statements", len(migrations)).Msg("aplicando migraciones")
	for _, stmt := range migrations {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración fallida: %w\nsentencia: %s", err, stmt)
		}
	}
	log.Info().Msg("migraciones completas")
	return nil
}

var migrations = []string{
	// Empresas: clientes (cedentes) y deudores, identificadas por RUC
	`CREATE TABLE IF NOT EXISTS companies (
		ruc           TEXT PRIMARY KEY,
		business_name TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS operations (
		id             TEXT PRIMARY KEY,
		run_id         TEXT NOT NULL,
		client_ruc     TEXT NOT NULL REFERENCES companies(ruc),
		user_email     TEXT NOT NULL,
		executive_name TEXT NOT NULL,
		archive_url    TEXT,
		total_amount   NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_currency TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id                    UUID PRIMARY KEY,
		operation_id          TEXT NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
		document_id           TEXT NOT NULL,
		debtor_ruc            TEXT REFERENCES companies(ruc),
		issue_date            DATE,
		due_date              DATE,
		currency              TEXT NOT NULL,
		total_amount          NUMERIC(18,2) NOT NULL,
		net_amount            NUMERIC(18,4) NOT NULL,
		validation_message    TEXT,
		validation_process_id TEXT
	)`,

	// Contador diario de ids OP-YYYYMMDD-NNN (incremento atómico dentro de la tx de guardado)
	`CREATE TABLE IF NOT EXISTS operation_counters (
		day        DATE PRIMARY KEY,
		last_value INTEGER NOT NULL CHECK (last_value > 0)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invoices_operation ON invoices(operation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_operations_created_at ON operations(created_at)`,
}
