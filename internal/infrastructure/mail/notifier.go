// Package mail envía el correo de confirmación de facturas negociables por SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

var _ operations.Notifier = (*Notifier)(nil)

// Sender abstrae el envío SMTP; *gomail.Dialer lo implementa.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SummaryRenderer genera el PDF de resumen que acompaña al correo.
type SummaryRenderer interface {
	Render(ctx context.Context, req operations.NotificationRequest) ([]byte, error)
}

// Notifier compone y envía el correo de confirmación.
type Notifier struct {
	cfg     config.MailConfig
	sender  Sender
	summary SummaryRenderer // opcional
	now     func() time.Time
	log     zerolog.Logger
}

// NewNotifier construye el notificador con un dialer SMTP a partir de la configuración.
func NewNotifier(cfg config.MailConfig, summary SummaryRenderer, log zerolog.Logger) (*Notifier, error) {
	if cfg.Recipient == "" || cfg.From == "" {
		return nil, errors.New("mail: faltan MAIL_FROM o MAIL_RECIPIENT")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return NewNotifierWithSender(cfg, d, summary, log), nil
}

// NewNotifierWithSender permite inyectar el Sender (pruebas u otros transportes).
func NewNotifierWithSender(cfg config.MailConfig, sender Sender, summary SummaryRenderer, log zerolog.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Notifier{cfg: cfg, sender: sender, summary: summary, now: time.Now, log: log}
}

// SendConfirmation envía el correo con la tabla de facturas, los PDF recibidos y el
// resumen. Devuelve el Message-ID asignado.
func (n *Notifier) SendConfirmation(ctx context.Context, req operations.NotificationRequest) (string, error) {
	if len(req.Invoices) == 0 {
		return "", errors.New("mail: operación sin facturas")
	}
	body, err := RenderBody(req.Invoices)
	if err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s.%d@operaciones-factoring>", req.RunID, n.now().UnixNano())
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.Recipient)
	m.SetHeader("Subject", Subject(n.cfg.Subject, req.ClientName))
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", body)

	for _, f := range req.Attachments {
		attach(m, f.Filename, f.Content)
	}
	if n.summary != nil {
		doc, err := n.summary.Render(ctx, req)
		if err != nil {
			return "", fmt.Errorf("mail: resumen PDF: %w", err)
		}
		attach(m, "Resumen_"+shortID(req.RunID)+".pdf", doc)
	}

	// gomail no recibe contexto: el envío corre aparte y se abandona al vencer el plazo.
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.sender.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("mail: enviar: %w", err)
		}
	case <-ctx.Done():
		return "", fmt.Errorf("mail: enviar: %w", ctx.Err())
	}

	n.log.Info().Str("message_id", messageID).Str("to", n.cfg.Recipient).Int("invoices", len(req.Invoices)).Msg("correo de confirmación enviado")
	return messageID, nil
}

// Subject asunto del correo: "<asunto> de su proveedor <cliente>".
func Subject(base, client string) string {
	return fmt.Sprintf("%s de su proveedor %s", base, strings.TrimSpace(client))
}

func attach(m *gomail.Message, filename string, content []byte) {
	m.Attach(filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ── Cuerpo HTML ──────────────────────────────────────────────────────────────

type invoiceRow struct {
	DebtorRUC  string
	DebtorName string
	DocumentID string
	Total      string
	Net        string
	DueDate    string
}

type bodyData struct {
	ClientName string
	ClientRUC  string
	Rows       []invoiceRow
}

var bodyTemplate = template.Must(template.New("confirmacion").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; color: #333; line-height: 1.6; }
  .email-container { max-width: 700px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px; background-color: #f9f9f9; }
  table.invoices_table { border-collapse: collapse; width: 100%; margin: 25px 0; }
  th, td { text-align: left; padding: 12px; border-bottom: 1px solid #eee; }
  th { background-color: #f2f2f2; font-weight: 600; color: #555; }
  .highlight { font-weight: 600; color: #0056b3; }
  .disclaimer { font-style: italic; color: #777; font-size: 11px; margin-top: 30px; border-top: 1px solid #eee; padding-top: 15px; }
</style>
</head>
<body>
<div class="email-container">
  <p>Estimados señores,</p>
  <p>
    Por medio de la presente, les informamos que los señores de
    <span class="highlight">{{.ClientName}}</span> (RUC: {{.ClientRUC}}) nos han transferido la(s) siguiente(s)
    factura(s) negociable(s). Agradeceríamos su amable confirmación.
  </p>
  <h3>Detalle de las facturas:</h3>
  <table class="invoices_table">
    <thead>
      <tr><th>RUC Emisor</th><th>Empresa Emisora</th><th>Documento</th><th>Monto Factura</th><th>Monto Neto</th><th>Fecha de Pago</th></tr>
    </thead>
    <tbody>
{{- range .Rows}}
      <tr><td>{{.DebtorRUC}}</td><td>{{.DebtorName}}</td><td>{{.DocumentID}}</td><td>{{.Total}}</td><td>{{.Net}}</td><td>{{.DueDate}}</td></tr>
{{- end}}
    </tbody>
  </table>
  <p class="disclaimer"><strong>Cláusula Legal:</strong> Sin perjuicio de lo anteriormente mencionado, nos permitimos recordarles que toda acción tendiente a simular
  la emisión de la referida factura negociable para obtener un beneficio, teniendo pleno conocimiento de que la misma no proviene de una relación comercial verdadera,
  se encuentra sancionada penalmente como delito de estafa en nuestro ordenamiento jurídico. Asimismo, en caso de que vuestra representada cometa un delito de forma
  conjunta con el emitente de la factura, dicha acción podría tipificarse como delito de asociación ilícita para delinquir, según el artículo 317 del Código Penal,
  por lo que nos reservamos el derecho de iniciar las acciones penales correspondientes.</p>
</div>
</body>
</html>
`))

// RenderBody arma el HTML del correo; cliente y RUC salen de la primera factura.
func RenderBody(invoices []entity.Invoice) (string, error) {
	if len(invoices) == 0 {
		return "<p>No se encontraron datos de facturas válidos para procesar en esta operación.</p>", nil
	}
	data := bodyData{
		ClientName: invoices[0].ClientName,
		ClientRUC:  invoices[0].ClientRUC,
		Rows:       make([]invoiceRow, 0, len(invoices)),
	}
	for _, inv := range invoices {
		due := ""
		if inv.DueDate != nil {
			due = inv.DueDate.Format("02/01/2006")
		}
		data.Rows = append(data.Rows, invoiceRow{
			DebtorRUC:  inv.DebtorRUC,
			DebtorName: inv.DebtorName,
			DocumentID: inv.DocumentID,
			Total:      strings.TrimSpace(factoring.FormatMoney(inv.Currency, inv.TotalAmount)),
			Net:        strings.TrimSpace(factoring.FormatMoney(inv.Currency, inv.NetAmount)),
			DueDate:    due,
		})
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: renderizar cuerpo: %w", err)
	}
	return buf.String(), nil
}
