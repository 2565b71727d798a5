package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/pdf"
)

func TestRender_GeneraPDF(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	invoices := []entity.Invoice{
		{DocumentID: "F001-1", Currency: "PEN", DueDate: &due, ClientName: "Cliente EIRL", ClientRUC: "20123456789",
			DebtorName: "Deudor SAC", TotalAmount: decimal.NewFromInt(1000), NetAmount: decimal.NewFromInt(880)},
		{DocumentID: "F001-2", Currency: "USD", ClientName: "Cliente EIRL", ClientRUC: "20123456789",
			DebtorName: "Otro SA", TotalAmount: decimal.NewFromInt(20), NetAmount: decimal.NewFromInt(20)},
	}
	req := operations.NotificationRequest{
		RunID:      "run-1",
		ClientName: "Cliente EIRL",
		Invoices:   invoices,
		Amounts:    factoring.SummarizeByCurrency(invoices),
		ArchiveURL: "https://docs.example.com/Operacion_F001-1_run-1",
	}

	out, err := pdf.NewSummaryGenerator().Render(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "debe ser un documento PDF")
}

func TestRender_SinCarpetaNiFacturas(t *testing.T) {
	out, err := pdf.NewSummaryGenerator().Render(context.Background(), operations.NotificationRequest{RunID: "r"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
