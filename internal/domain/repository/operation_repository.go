package repository

import (
	"context"
	"time"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
)

// SaveOperationInput datos finales de una operación ya conciliada.
type SaveOperationInput struct {
	RunID      string
	Metadata   entity.OperationMetadata
	ArchiveURL string
	Invoices   []entity.Invoice
	// Results mapeo de conciliación; las facturas ya vienen enriquecidas, se guarda para trazabilidad.
	Results map[entity.ReconciliationKey]entity.ValidationResult
}

// OperationRepository define el puerto de persistencia para Operation.
// Save asigna el id y persiste la operación y todas sus facturas en una sola transacción.
type OperationRepository interface {
	Save(ctx context.Context, in SaveOperationInput) (entity.OperationID, error)
	FindByID(ctx context.Context, id entity.OperationID) (*entity.Operation, error)
}

// DailyCounter primitiva atómica de numeración diaria.
// Next devuelve el siguiente número del día; dos llamadas concurrentes nunca reciben el mismo.
type DailyCounter interface {
	Next(ctx context.Context, day time.Time) (int, error)
}
