package factoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CashCreditDays plazo asumido para facturas "contado" sin fecha de vencimiento explícita.
const CashCreditDays = 60

var hundred = decimal.NewFromInt(100)

// NetAmount calcula el neto a pagar descontando la detracción.
// Neto = Total * (100 - Detraccion) / 100
func NetAmount(total, detractionPercent decimal.Decimal) decimal.Decimal {
	return total.Mul(hundred.Sub(detractionPercent)).Div(hundred)
}

// ValidateDetraction verifica que el porcentaje esté en [0,100].
func ValidateDetraction(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("porcentaje de detracción fuera de rango: %s", percent.String())
	}
	return nil
}

// ResolveDueDate aplica la política de vencimiento en este orden:
//  1. fecha explícita
//  2. forma de pago "contado" con fecha de emisión: emisión + 60 días
//  3. fecha de emisión
//  4. sin fecha
func ResolveDueDate(explicit, issue *time.Time, paymentMethod string) *time.Time {
	if explicit != nil {
		d := *explicit
		return &d
	}
	if issue == nil {
		return nil
	}
	d := *issue
	if strings.EqualFold(strings.TrimSpace(paymentMethod), "contado") {
		d = d.AddDate(0, 0, CashCreditDays)
	}
	return &d
}
