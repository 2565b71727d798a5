package repository

import (
	"context"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company.
// La implementación vive en infrastructure.
type CompanyRepository interface {
	// Ensure crea la empresa si no existe; nunca cambia la razón social ya registrada.
	Ensure(ctx context.Context, ruc, businessName string) error
	GetByRUC(ctx context.Context, ruc string) (*entity.Company, error)
}
