package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

var _ repository.DailyCounter = (*DailyCounter)(nil)

// DailyCounter contador por día sobre operation_counters. Usar con la tx de guardado
// para que una operación revertida también revierta su número.
type DailyCounter struct {
	q Querier
}

// NewDailyCounter construye el contador. Pasar pool o tx (Querier).
func NewDailyCounter(q Querier) *DailyCounter {
	return &DailyCounter{q: q}
}

// Next incrementa y devuelve el número del día en una sola sentencia (upsert).
// La primera vez en el día parte del máximo OP-<día>-NNN ya existente en operations,
// así los ids anteriores a la tabla de contadores nunca se reutilizan.
func (c *DailyCounter) Next(ctx context.Context, day time.Time) (int, error) {
	prefix := entity.OperationIDPrefix(day)
	query := `
		INSERT INTO operation_counters (day, last_value)
		VALUES ($1, COALESCE((
			SELECT MAX(CAST(SUBSTRING(id FROM $3::int) AS INTEGER))
			FROM operations
			WHERE id LIKE $2 AND SUBSTRING(id FROM $3::int) ~ '^[0-9]+$'
		), 0) + 1)
		ON CONFLICT (day) DO UPDATE SET last_value = operation_counters.last_value + 1
		RETURNING last_value`
	var next int
	err := c.q.QueryRow(ctx, query,
		day, prefix+"%", len(prefix)+1,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("counter next: %w", err)
	}
	return next, nil
}
