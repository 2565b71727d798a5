package factoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

// Allocator asigna ids OP-YYYYMMDD-NNN sobre un contador diario atómico.
// Debe construirse con el contador atado a la misma transacción que persiste la operación.
type Allocator struct {
	counter repository.DailyCounter
}

// NewAllocator construye el asignador.
func NewAllocator(counter repository.DailyCounter) *Allocator {
	return &Allocator{counter: counter}
}

// Allocate devuelve el siguiente id del día calendario de now (en su zona horaria).
func (a *Allocator) Allocate(ctx context.Context, now time.Time) (entity.OperationID, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	seq, err := a.counter.Next(ctx, day)
	if err != nil {
		return "", fmt.Errorf("allocator: next: %w", err)
	}
	if seq <= 0 {
		return "", fmt.Errorf("allocator: secuencia inválida %d", seq)
	}
	return entity.FormatOperationID(day, seq), nil
}
