// Package pdf genera el resumen en PDF de una operación de factoring, adjunto al
// correo de confirmación.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Cliente + RUC         │  Resumen de operación + fecha│
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Documento | Deudor | Emisión | Vence | Total | Neto  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES por moneda                                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR a la carpeta de documentos + id de ejecución     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// SummaryGenerator arma el resumen de la operación con Maroto v2.
type SummaryGenerator struct {
	now func() time.Time
}

// NewSummaryGenerator construye el generador.
func NewSummaryGenerator() *SummaryGenerator { return &SummaryGenerator{now: time.Now} }

// Render genera el PDF y devuelve sus bytes.
func (g *SummaryGenerator) Render(_ context.Context, req operations.NotificationRequest) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Resumen de operación de factoring", true).
		WithAuthor(req.ClientName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(req, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(req.Invoices)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(req.Amounts)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(req))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar resumen: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(req operations.NotificationRequest, now time.Time) core.Row {
	ruc := ""
	if len(req.Invoices) > 0 {
		ruc = req.Invoices[0].ClientRUC
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(req.ClientName, "—"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+nonEmpty(ruc, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("RESUMEN DE OPERACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%d factura(s)", len(req.Invoices)), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+now.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Documento", 2, align.Left),
		h("Deudor", 4, align.Left),
		h("Vence", 2, align.Center),
		h("Monto", 2, align.Right),
		h("Neto", 2, align.Right),
	)
}

// tableRows: una fila por factura, en el orden de la operación.
func tableRows(invoices []entity.Invoice) []core.Row {
	rows := make([]core.Row, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, row.New(7).Add(
			col.New(2).Add(text.New(inv.DocumentID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(nonEmpty(inv.DebtorName, "—"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatDate(inv.DueDate), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(factoring.FormatMoney(inv.Currency, inv.TotalAmount), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(2).Add(text.New(factoring.FormatMoney(inv.Currency, inv.NetAmount), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return rows
}

// totalsRows: una fila por moneda, alineada a la derecha.
func totalsRows(amounts []factoring.CurrencyTotal) []core.Row {
	rows := make([]core.Row, 0, len(amounts))
	for _, a := range amounts {
		rows = append(rows, row.New(7).Add(
			col.New(6),
			col.New(2).Add(text.New("TOTAL "+a.Currency+":", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 2, Top: 1,
			})),
			col.New(2).Add(text.New(factoring.FormatAmount(a.Total), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: 1,
			})),
			col.New(2).Add(text.New(factoring.FormatAmount(a.Net), props.Text{
				Size: 9, Align: align.Right, Right: 1, Top: 1,
			})),
		))
	}
	return rows
}

func footerRow(req operations.NotificationRequest) core.Row {
	if req.ArchiveURL == "" {
		return row.New(8).Add(col.New(12).Add(
			text.New("Operación "+req.RunID, props.Text{Size: 7, Color: colorGray, Top: 2}),
		))
	}
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(req.ArchiveURL, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Documentos de la operación:", props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 4, Left: 3, Color: colorPrimary,
			}),
			text.New(req.ArchiveURL, props.Text{Size: 7, Top: 10, Left: 3, Color: colorGray}),
			text.New("Operación "+req.RunID, props.Text{Size: 7, Top: 18, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func formatDate(d *time.Time) string {
	if d == nil {
		return "—"
	}
	return d.Format("02/01/2006")
}
