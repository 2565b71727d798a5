package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
)

// InvoiceResponse factura de una operación (GET /api/operations/:id).
type InvoiceResponse struct {
	DocumentID          string          `json:"document_id"`
	IssueDate           *string         `json:"issue_date,omitempty"`
	DueDate             *string         `json:"due_date,omitempty"`
	Currency            string          `json:"currency"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	NetAmount           decimal.Decimal `json:"net_amount"`
	DebtorName          string          `json:"debtor_name"`
	DebtorRUC           string          `json:"debtor_ruc"`
	ValidationMessage   *string         `json:"validation_message,omitempty"`
	ValidationProcessID *string         `json:"validation_process_id,omitempty"`
}

// CurrencyTotalResponse totales de una moneda.
type CurrencyTotalResponse struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}

// OperationResponse operación persistida con sus facturas.
type OperationResponse struct {
	ID            string                  `json:"id"`
	RunID         string                  `json:"run_id"`
	ClientRUC     string                  `json:"client_ruc"`
	ClientName    string                  `json:"client_name"`
	UserEmail     string                  `json:"user_email"`
	ExecutiveName string                  `json:"executive_name"`
	ArchiveURL    string                  `json:"archive_url,omitempty"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	TotalCurrency string                  `json:"total_currency"`
	CreatedAt     time.Time               `json:"created_at"`
	Totals        []CurrencyTotalResponse `json:"totals"`
	Invoices      []InvoiceResponse       `json:"invoices"`
}

// FromOperation arma la respuesta a partir de la entidad.
func FromOperation(op *entity.Operation) OperationResponse {
	out := OperationResponse{
		ID:            string(op.ID),
		RunID:         op.RunID,
		ClientRUC:     op.ClientRUC,
		ClientName:    op.ClientName,
		UserEmail:     op.UserEmail,
		ExecutiveName: op.ExecutiveName,
		ArchiveURL:    op.ArchiveURL,
		TotalAmount:   op.TotalAmount,
		TotalCurrency: op.TotalCurrency,
		CreatedAt:     op.CreatedAt,
		Invoices:      make([]InvoiceResponse, 0, len(op.Invoices)),
	}
	for _, ct := range factoring.SummarizeByCurrency(op.Invoices) {
		out.Totals = append(out.Totals, CurrencyTotalResponse{Currency: ct.Currency, Total: ct.Total, Net: ct.Net, Count: ct.Count})
	}
	for _, inv := range op.Invoices {
		out.Invoices = append(out.Invoices, InvoiceResponse{
			DocumentID:          inv.DocumentID,
			IssueDate:           isoDate(inv.IssueDate),
			DueDate:             isoDate(inv.DueDate),
			Currency:            inv.Currency,
			TotalAmount:         inv.TotalAmount,
			NetAmount:           inv.NetAmount,
			DebtorName:          inv.DebtorName,
			DebtorRUC:           inv.DebtorRUC,
			ValidationMessage:   inv.ValidationMessage,
			ValidationProcessID: inv.ValidationProcessID,
		})
	}
	return out
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
