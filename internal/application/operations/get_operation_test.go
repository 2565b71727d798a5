package operations_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

type storedRepo struct {
	ops map[entity.OperationID]*entity.Operation
}

func (r storedRepo) Save(context.Context, repository.SaveOperationInput) (entity.OperationID, error) {
	return "", domain.ErrPersistence
}

func (r storedRepo) FindByID(_ context.Context, id entity.OperationID) (*entity.Operation, error) {
	op, ok := r.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return op, nil
}

func TestGetOperation(t *testing.T) {
	issue := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	msg := "Conforme"
	repo := storedRepo{ops: map[entity.OperationID]*entity.Operation{
		"OP-20240601-001": {
			ID: "OP-20240601-001", ClientName: "Cliente EIRL", TotalCurrency: "PEN",
			Invoices: []entity.Invoice{
				{DocumentID: "F001-1", Currency: "PEN", IssueDate: &issue, TotalAmount: decimal.NewFromInt(100), NetAmount: decimal.NewFromInt(88), ValidationMessage: &msg},
				{DocumentID: "F001-2", Currency: "USD", TotalAmount: decimal.NewFromInt(10), NetAmount: decimal.NewFromInt(10)},
			},
		},
	}}
	uc := operations.NewGetOperationUseCase(repo)

	got, err := uc.Get(context.Background(), " op-20240601-001 ")
	require.NoError(t, err)
	assert.Equal(t, "OP-20240601-001", got.ID)
	require.Len(t, got.Invoices, 2)
	require.NotNil(t, got.Invoices[0].IssueDate)
	assert.Equal(t, "2024-06-01", *got.Invoices[0].IssueDate)
	assert.Nil(t, got.Invoices[1].DueDate)
	require.Len(t, got.Totals, 2)
	assert.Equal(t, "PEN", got.Totals[0].Currency)

	_, err = uc.Get(context.Background(), "OP-20240601-002")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Get(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
