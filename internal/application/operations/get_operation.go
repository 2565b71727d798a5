package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/operaciones-factoring/internal/application/dto"
	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

// GetOperationUseCase consulta de operaciones ya persistidas.
type GetOperationUseCase struct {
	repo repository.OperationRepository
}

// NewGetOperationUseCase construye el caso de uso.
func NewGetOperationUseCase(repo repository.OperationRepository) *GetOperationUseCase {
	return &GetOperationUseCase{repo: repo}
}

// Get devuelve la operación por id. Un id mal formado es domain.ErrInvalidInput.
func (uc *GetOperationUseCase) Get(ctx context.Context, id string) (*dto.OperationResponse, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if _, _, err := entity.ParseOperationID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	op, err := uc.repo.FindByID(ctx, entity.OperationID(id))
	if err != nil {
		return nil, err
	}
	out := dto.FromOperation(op)
	return &out, nil
}
