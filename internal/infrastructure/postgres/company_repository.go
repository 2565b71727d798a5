package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
// Recibe un Querier para poder correr dentro de la transacción de la operación.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// Ensure busca o crea la empresa por RUC. Un RUC vacío no se registra.
func (r *CompanyRepo) Ensure(ctx context.Context, ruc, businessName string) error {
	if ruc == "" {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO companies (ruc, business_name) VALUES ($1, $2)
		ON CONFLICT (ruc) DO NOTHING`, ruc, businessName)
	if err != nil {
		return fmt.Errorf("upsert company %s: %w", ruc, err)
	}
	return nil
}

// GetByRUC obtiene una empresa por RUC, o domain.ErrNotFound.
func (r *CompanyRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Company, error) {
	var c entity.Company
	err := r.q.QueryRow(ctx,
		`SELECT ruc, business_name, created_at FROM companies WHERE ruc = $1`, ruc,
	).Scan(&c.RUC, &c.BusinessName, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
