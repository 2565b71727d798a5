// Package trello crea la tarjeta de seguimiento de cada operación en el tablero de Trello.
package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

var _ operations.TaskBoard = (*Client)(nil)

const maxResponseBytes = 1 << 20

// Client adaptador REST del tablero de operaciones.
type Client struct {
	cfg        config.TrelloConfig
	httpClient *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient construye el cliente. Falla si faltan key, token o lista destino.
func NewClient(cfg config.TrelloConfig, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APIToken == "" || cfg.ListID == "" {
		return nil, errors.New("trello: faltan TRELLO_API_KEY, TRELLO_API_TOKEN o TRELLO_LIST_ID")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		log:        log,
	}, nil
}

type cardPayload struct {
	IDList   string `json:"idList"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	Pos      string `json:"pos"`
	IDLabels string `json:"idLabels,omitempty"`
}

type cardResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateOperationCard crea la tarjeta y le adjunta los PDF. Un adjunto que falla se
// registra y no invalida la tarjeta ya creada.
func (c *Client) CreateOperationCard(ctx context.Context, req operations.CardRequest) (string, error) {
	payload := cardPayload{
		IDList:   c.cfg.ListID,
		Name:     CardTitle(c.now(), req),
		Desc:     CardDescription(req),
		Pos:      "bottom",
		IDLabels: c.cfg.LabelIDs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("trello: serializar tarjeta: %w", err)
	}

	respBody, err := c.do(ctx, c.cfg.BaseURL+"/cards", "application/json", body)
	if err != nil {
		return "", fmt.Errorf("trello: crear tarjeta: %w", err)
	}
	var card cardResponse
	if err := json.Unmarshal(respBody, &card); err != nil {
		return "", fmt.Errorf("trello: respuesta inválida: %w", err)
	}
	if card.ID == "" {
		return "", fmt.Errorf("trello: respuesta sin id de tarjeta: %s", respBody)
	}
	c.log.Info().Str("card_url", card.URL).Str("run_id", req.RunID).Msg("tarjeta creada")

	for _, pdf := range req.Attachments {
		if err := c.attach(ctx, card.ID, pdf.Filename, pdf.Content); err != nil {
			c.log.Warn().Err(err).Str("file", pdf.Filename).Msg("no se pudo adjuntar el PDF a la tarjeta")
		}
	}
	return card.URL, nil
}

func (c *Client) attach(ctx context.Context, cardID, filename string, content []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	_, err = c.do(ctx, c.cfg.BaseURL+"/cards/"+url.PathEscape(cardID)+"/attachments", w.FormDataContentType(), buf.Bytes())
	return err
}

// do envía un POST autenticado con key y token como parámetros de query.
func (c *Client) do(ctx context.Context, endpoint, contentType string, body []byte) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	q.Set("token", c.cfg.APIToken)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// ── Contenido de la tarjeta ──────────────────────────────────────────────────

func sanitize(name string) string {
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	return "—"
}

func amountsText(amounts []factoring.CurrencyTotal) string {
	if len(amounts) == 0 {
		return "0.00"
	}
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		parts = append(parts, factoring.FormatMoney(a.Currency, a.Total))
	}
	return strings.Join(parts, ", ")
}

func shortID(id string, n int) string {
	if len(id) > n {
		return id[:n]
	}
	return id
}

// CardTitle arma el título: "🤖 dd.mm // CLIENTE: … // DEUDOR: … // MONTO: … // KT // OP: 1a2b3c4d".
func CardTitle(now time.Time, req operations.CardRequest) string {
	names := make([]string, 0, len(req.Debtors))
	for _, d := range req.Debtors {
		if strings.TrimSpace(d.Name) != "" {
			names = append(names, sanitize(d.Name))
		}
	}
	debtors := strings.Join(names, ", ")
	if debtors == "" {
		debtors = "Ninguno"
	}
	return fmt.Sprintf("🤖 %s // CLIENTE: %s // DEUDOR: %s // MONTO: %s // %s // OP: %s",
		now.Format("02.01"), sanitize(req.ClientName), debtors, amountsText(req.Amounts),
		req.Initials, shortID(req.RunID, 8))
}

// CardDescription arma la descripción en markdown.
func CardDescription(req operations.CardRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**ID Operación:** %s\n\n", req.RunID)
	b.WriteString("**Deudores:**\n")
	if len(req.Debtors) == 0 {
		b.WriteString("- Ninguno\n")
	}
	for _, d := range req.Debtors {
		fmt.Fprintf(&b, "- RUC %s: %s\n", d.RUC, sanitize(d.Name))
	}
	fmt.Fprintf(&b, "\n**Tasa:** %s%%\n", req.Rate.String())
	fmt.Fprintf(&b, "**Comisión:** %s\n", req.Commission.String())
	fmt.Fprintf(&b, "**Monto Operación:** %s\n\n", amountsText(req.Amounts))
	fmt.Fprintf(&b, "**Carpeta:** %s\n\n", req.ArchiveURL)
	errs := "Ninguno"
	if len(req.Errors) > 0 {
		errs = strings.Join(req.Errors, ", ")
	}
	fmt.Fprintf(&b, "**Errores:** %s", errs)
	return b.String()
}
