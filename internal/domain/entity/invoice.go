package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice factura extraída de un XML UBL de la operación.
// Solo los campos de validación cambian después de construida (ver AttachValidation).
type Invoice struct {
	DocumentID string // cbc:ID del documento, ej. "F001-00000123"
	IssueDate  *time.Time
	DueDate    *time.Time
	Currency   string // "N/A" si el XML no trae currencyID
	// NetAmount = TotalAmount * (100 - detracción) / 100
	TotalAmount decimal.Decimal
	NetAmount   decimal.Decimal
	DebtorName  string // AccountingCustomerParty
	DebtorRUC   string
	ClientName  string // AccountingSupplierParty (cedente de la operación)
	ClientRUC   string

	// Poblados solo después de la conciliación con Cavali.
	ValidationMessage   *string
	ValidationProcessID *string
}

// ReconciliationKey deriva la clave serie-numeración a partir de DocumentID.
// Devuelve false si el id no tiene la forma SERIE-NUMERO.
func (inv *Invoice) ReconciliationKey() (ReconciliationKey, bool) {
	series, numeration, found := strings.Cut(strings.TrimSpace(inv.DocumentID), "-")
	if !found {
		return ReconciliationKey{}, false
	}
	key := NewReconciliationKey(series, numeration)
	if key.Series == "" || key.Numeration == "" {
		return ReconciliationKey{}, false
	}
	return key, true
}

// AttachValidation adjunta el resultado de la entidad validadora.
func (inv *Invoice) AttachValidation(r ValidationResult) {
	msg := r.Message
	pid := r.ProcessID
	inv.ValidationMessage = &msg
	inv.ValidationProcessID = &pid
}

// IsValidated indica si la factura recibió resultado de conciliación.
func (inv *Invoice) IsValidated() bool {
	return inv.ValidationProcessID != nil
}
