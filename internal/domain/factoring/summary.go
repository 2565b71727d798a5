package factoring

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
)

// CurrencyTotal monto acumulado de una moneda.
type CurrencyTotal struct {
	Currency string
	Total    decimal.Decimal
	Net      decimal.Decimal
	Count    int
}

// SummarizeByCurrency agrupa montos por moneda, ordenado por código de moneda.
func SummarizeByCurrency(invoices []entity.Invoice) []CurrencyTotal {
	byCurrency := make(map[string]*CurrencyTotal)
	for _, inv := range invoices {
		ct, ok := byCurrency[inv.Currency]
		if !ok {
			ct = &CurrencyTotal{Currency: inv.Currency}
			byCurrency[inv.Currency] = ct
		}
		ct.Total = ct.Total.Add(inv.TotalAmount)
		ct.Net = ct.Net.Add(inv.NetAmount)
		ct.Count++
	}
	out := make([]CurrencyTotal, 0, len(byCurrency))
	for _, ct := range byCurrency {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// OperationTotal suma los totales en la moneda de la primera factura.
// Las facturas en otra moneda no se mezclan en la sumatoria, así que en una operación
// multimoneda operations.total_amount queda por debajo de la suma de todas las facturas
// que guardaba el sistema anterior. El desglose completo sale de SummarizeByCurrency.
func OperationTotal(invoices []entity.Invoice) decimal.Decimal {
	if len(invoices) == 0 {
		return decimal.Zero
	}
	currency := invoices[0].Currency
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.Currency == currency {
			total = total.Add(inv.TotalAmount)
		}
	}
	return total
}

// Debtor deudor único de la operación.
type Debtor struct {
	RUC  string
	Name string
}

// Debtors lista los deudores sin repetir RUC, en el orden en que aparecen.
func Debtors(invoices []entity.Invoice) []Debtor {
	seen := make(map[string]bool, len(invoices))
	var out []Debtor
	for _, inv := range invoices {
		if seen[inv.DebtorRUC] {
			continue
		}
		seen[inv.DebtorRUC] = true
		out = append(out, Debtor{RUC: inv.DebtorRUC, Name: inv.DebtorName})
	}
	return out
}

// ClientName razón social del cedente, tomada de la primera factura.
func ClientName(invoices []entity.Invoice) string {
	if len(invoices) == 0 {
		return ""
	}
	return invoices[0].ClientName
}

// FormatAmount formatea con dos decimales y separador de miles: 1234.5 → "1,234.50".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// FormatMoney antepone la moneda: "PEN 1,180.00".
func FormatMoney(currency string, d decimal.Decimal) string {
	return currency + " " + FormatAmount(d)
}
