package cavali

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

const (
	// DefaultBatchSize máximo de XML por lote aceptado por Factrack.
	DefaultBatchSize = 30
	maxResponseBytes = 1 << 20 // 1 MB
	skippedNoFiles   = "sin documentos para validar"
)

// Client implementa el validador por lotes contra la API Factrack de Cavali.
// Cada lote hace dos llamadas: envío (bloqueo) y consulta de estado.
type Client struct {
	cfg        config.CavaliConfig
	creds      CredentialSource
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// Option ajusta el cliente (tests).
type Option func(*Client)

// WithHTTPClient reemplaza el cliente HTTP.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock fija el reloj usado para el número de proceso.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient construye el validador. Los timeouts se aplican por llamada vía contexto.
func NewClient(cfg config.CavaliConfig, creds CredentialSource, log zerolog.Logger, opts ...Option) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.StatusAttempts <= 0 {
		cfg.StatusAttempts = 1
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 30 * time.Second
	}
	c := &Client{
		cfg:        cfg,
		creds:      creds,
		httpClient: &http.Client{},
		log:        log,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate parte los archivos en lotes y devuelve un resultado por lote, en orden de envío.
// Los fallos de cada lote quedan en su resultado; solo la credencial aborta la llamada.
func (c *Client) Validate(ctx context.Context, files []entity.OperationFile) ([]entity.BatchResult, error) {
	if len(files) == 0 {
		c.log.Info().Msg("lote de XML vacío, no se envía a Cavali")
		return []entity.BatchResult{entity.SkippedBatch(skippedNoFiles)}, nil
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCredential, err)
	}

	batches := partition(files, c.cfg.BatchSize)
	base := c.now().Unix()
	c.log.Info().
		Int("files", len(files)).
		Int("batches", len(batches)).
		Int("batch_size", c.cfg.BatchSize).
		Msg("enviando XML a Cavali")

	results := make([]entity.BatchResult, len(batches))
	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, batch := range batches {
		g.Go(func() error {
			number := i + 1
			results[i] = c.sendBatch(ctx, token, number, base+int64(number), batch)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// partition divide en lotes contiguos de hasta size elementos.
func partition(files []entity.OperationFile, size int) [][]entity.OperationFile {
	var out [][]entity.OperationFile
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		out = append(out, files[start:end])
	}
	return out
}

func (c *Client) sendBatch(ctx context.Context, token string, number int, processNumber int64, batch []entity.OperationFile) entity.BatchResult {
	res := entity.BatchResult{Index: number, Size: len(batch), ProcessNumber: processNumber}
	log := c.log.With().Int("batch", number).Int64("process_number", processNumber).Logger()

	processID, err := c.submit(ctx, token, processNumber, batch)
	if err != nil {
		log.Warn().Err(err).Msg("falló el envío del lote")
		res.Submission.Failure = err.Error()
		return res
	}
	res.Submission.ProcessID = processID
	log.Info().Str("process_id", processID).Int("files", len(batch)).Msg("lote enviado")

	status := c.pollStatus(ctx, token, processID)
	if !status.OK() {
		log.Warn().Str("process_id", processID).Str("error", status.Failure).Msg("falló la consulta de estado")
	} else {
		log.Info().Str("process_id", processID).Int("entries", len(status.Payload.Entries)).Msg("estado recibido")
	}
	res.Status = &status
	return res
}

// submit paso 1: envía el lote y devuelve el idProceso.
func (c *Client) submit(ctx context.Context, token string, processNumber int64, batch []entity.OperationFile) (string, error) {
	payload := blockRequest{ProcessDetail: processDetail{ProcessNumber: processNumber}}
	payload.InvoiceXMLDetail.InvoiceXML = make([]invoiceXML, 0, len(batch))
	for _, f := range batch {
		payload.InvoiceXMLDetail.InvoiceXML = append(payload.InvoiceXMLDetail.InvoiceXML, invoiceXML{
			Name:    f.Filename,
			FileXML: base64.StdEncoding.EncodeToString(f.Content),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	var resp blockResponse
	if _, err := c.postJSON(ctx, c.cfg.BlockURL, token, payload, &resp); err != nil {
		return "", err
	}
	if resp.Response.IDProceso == "" {
		return "", errors.New("cavali: la respuesta de bloqueo no contiene idProceso")
	}
	return string(resp.Response.IDProceso), nil
}

// pollStatus paso 2: consulta el estado hasta StatusAttempts veces, deteniéndose en
// la primera respuesta con facturas. Se conserva la última respuesta.
func (c *Client) pollStatus(ctx context.Context, token, processID string) entity.StatusOutcome {
	var last entity.StatusOutcome
	for attempt := 1; attempt <= c.cfg.StatusAttempts; attempt++ {
		last = c.queryStatus(ctx, token, processID)
		if !last.OK() || len(last.Payload.Entries) > 0 || attempt == c.cfg.StatusAttempts {
			return last
		}
		timer := time.NewTimer(c.cfg.StatusInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return entity.StatusOutcome{Failure: fmt.Sprintf("cavali: estado: %v", ctx.Err())}
		case <-timer.C:
		}
	}
	return last
}

func (c *Client) queryStatus(ctx context.Context, token, processID string) entity.StatusOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	var resp statusResponse
	raw, err := c.postJSON(ctx, c.cfg.StatusURL, token, statusRequest{ProcessFilter: processFilter{IDProcess: processID}}, &resp)
	if err != nil {
		return entity.StatusOutcome{Raw: raw, Failure: err.Error()}
	}

	proc := resp.Response.Process
	status := entity.ValidationStatus{ProcessID: string(proc.IDProcess)}
	if status.ProcessID == "" {
		status.ProcessID = processID
	}
	for _, inv := range proc.ProcessInvoiceDetail.Invoice {
		status.Entries = append(status.Entries, entity.ValidationEntry{
			Series:     string(inv.Serie),
			Numeration: string(inv.Numeration),
			Message:    inv.Message,
		})
	}
	return entity.StatusOutcome{Payload: status, Raw: raw}
}

// postJSON envía payload y decodifica la respuesta 2xx en out. Devuelve el cuerpo crudo.
func (c *Client) postJSON(ctx context.Context, url, token string, payload, out any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cavali: serializar payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cavali: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("cavali: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("cavali: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("cavali: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, fmt.Errorf("cavali: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("cavali: decodificar respuesta: %w", err)
	}
	return raw, nil
}

// truncate corta en n bytes sin partir una runa UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
