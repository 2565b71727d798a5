// Package operations orquesta el procesamiento completo de una operación de factoring:
//
//	Preparación → Parseo → Llamadas externas{Archivo ∥ Validación, Tarjeta, Correo} → Conciliación → Persistencia
//
// Cualquier error aborta la operación completa: nada se persiste hasta el último paso
// y ese paso es una sola transacción. El llamador decide si reintenta y limpia la
// carpeta temporal.
package operations

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/ubl"
)

// Stage paso del procesamiento en el que ocurrió una falla.
type Stage string

const (
	StagePreparing     Stage = "preparing"
	StageParsing       Stage = "parsing"
	StageExternalCalls Stage = "external_calls"
	StageReconciling   Stage = "reconciling"
	StagePersisting    Stage = "persisting"
)

// StageError error terminal de la operación junto al paso que lo produjo.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("operación: %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ProcessRequest archivos ya subidos a Folder más los metadatos del ejecutivo.
type ProcessRequest struct {
	RunID     string // id de la ejecución; se genera si viene vacío
	Metadata  entity.OperationMetadata
	Folder    string
	Filenames []string
}

// Outcome resultado de una operación procesada y persistida.
type Outcome struct {
	OperationID    entity.OperationID
	RunID          string
	ArchiveURL     string
	CardURL        string
	NotificationID string
	Invoices       []entity.Invoice
	Warnings       []ubl.Warning
	Batches        []entity.BatchResult
}

// ProcessOperationUseCase caso de uso principal del worker.
type ProcessOperationUseCase struct {
	fs              afero.Fs
	parser          DocumentParser
	validator       BatchValidator
	archiver        Archiver
	board           TaskBoard
	notifier        Notifier
	repo            repository.OperationRepository
	defaultInitials string
	log             zerolog.Logger
}

// NewProcessOperationUseCase construye el caso de uso. fs es donde están los archivos
// recibidos (afero.NewOsFs() en producción).
func NewProcessOperationUseCase(
	fs afero.Fs,
	parser DocumentParser,
	validator BatchValidator,
	archiver Archiver,
	board TaskBoard,
	notifier Notifier,
	repo repository.OperationRepository,
	defaultInitials string,
	log zerolog.Logger,
) *ProcessOperationUseCase {
	if defaultInitials == "" {
		defaultInitials = "CE"
	}
	return &ProcessOperationUseCase{
		fs:              fs,
		parser:          parser,
		validator:       validator,
		archiver:        archiver,
		board:           board,
		notifier:        notifier,
		repo:            repo,
		defaultInitials: defaultInitials,
		log:             log,
	}
}

// inputFiles archivos de la operación clasificados por tipo.
type inputFiles struct {
	xml []entity.OperationFile
	pdf []entity.OperationFile
}

// Execute procesa la operación de punta a punta.
func (uc *ProcessOperationUseCase) Execute(ctx context.Context, req ProcessRequest) (*Outcome, error) {
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	if strings.TrimSpace(req.Metadata.UserInitials) == "" {
		req.Metadata.UserInitials = uc.defaultInitials
	}
	log := uc.log.With().Str("run_id", req.RunID).Logger()
	out := &Outcome{RunID: req.RunID}

	fail := func(stage Stage, err error) (*Outcome, error) {
		log.Error().Err(err).Str("stage", string(stage)).Msg("operación fallida")
		return nil, &StageError{Stage: stage, Err: err}
	}

	// ── 1. Preparación ──────────────────────────────────────────────────────
	log.Info().Str("stage", string(StagePreparing)).Int("files", len(req.Filenames)).Msg("preparando archivos")
	files, err := uc.readFiles(req.Folder, req.Filenames)
	if err != nil {
		return fail(StagePreparing, err)
	}

	// ── 2. Parseo ───────────────────────────────────────────────────────────
	log.Info().Str("stage", string(StageParsing)).Int("xml", len(files.xml)).Msg("parseando XML")
	parsed := uc.parser.Parse(files.xml)
	for _, w := range parsed.Warnings {
		log.Warn().Str("file", w.Filename).Str("reason", w.Reason).Msg("XML omitido")
	}
	out.Warnings = parsed.Warnings
	out.Invoices = parsed.Invoices()
	if len(out.Invoices) == 0 {
		return fail(StageParsing, domain.ErrNoInvoicesParsed)
	}

	// ── 3. Llamadas externas ────────────────────────────────────────────────
	log.Info().Str("stage", string(StageExternalCalls)).Int("invoices", len(out.Invoices)).Msg("ejecutando integraciones")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := uc.archiver.Archive(gctx, req.RunID, req.Folder, req.Filenames)
		if err != nil {
			return fmt.Errorf("archivo: %w", err)
		}
		out.ArchiveURL = url
		return nil
	})
	g.Go(func() error {
		batches, err := uc.validator.Validate(gctx, files.xml)
		if err != nil {
			return fmt.Errorf("validación: %w", err)
		}
		out.Batches = batches
		return nil
	})
	if err := g.Wait(); err != nil {
		return fail(StageExternalCalls, err)
	}

	amounts := factoring.SummarizeByCurrency(out.Invoices)
	clientName := factoring.ClientName(out.Invoices)

	out.CardURL, err = uc.board.CreateOperationCard(ctx, CardRequest{
		RunID:       req.RunID,
		ClientName:  clientName,
		Debtors:     factoring.Debtors(out.Invoices),
		Amounts:     amounts,
		Initials:    req.Metadata.UserInitials,
		Rate:        req.Metadata.Rate,
		Commission:  req.Metadata.Commission,
		ArchiveURL:  out.ArchiveURL,
		Attachments: files.pdf,
		Errors:      operationErrors(out.Warnings, out.Batches),
	})
	if err != nil {
		return fail(StageExternalCalls, fmt.Errorf("tarjeta: %w", err))
	}

	out.NotificationID, err = uc.notifier.SendConfirmation(ctx, NotificationRequest{
		RunID:       req.RunID,
		ClientName:  clientName,
		Invoices:    out.Invoices,
		Amounts:     amounts,
		ArchiveURL:  out.ArchiveURL,
		Attachments: files.pdf,
	})
	if err != nil {
		return fail(StageExternalCalls, fmt.Errorf("correo: %w", err))
	}

	// ── 4. Conciliación ─────────────────────────────────────────────────────
	mapping := factoring.Reconcile(out.Batches)
	merged := factoring.MergeResults(out.Invoices, mapping)
	log.Info().Str("stage", string(StageReconciling)).
		Int("results", len(mapping)).
		Int("enriched", merged).
		Int("unenriched", len(out.Invoices)-merged).
		Msg("resultados conciliados")

	// ── 5. Persistencia ─────────────────────────────────────────────────────
	out.OperationID, err = uc.repo.Save(ctx, repository.SaveOperationInput{
		RunID:      req.RunID,
		Metadata:   req.Metadata,
		ArchiveURL: out.ArchiveURL,
		Invoices:   out.Invoices,
		Results:    mapping,
	})
	if err != nil {
		return fail(StagePersisting, err)
	}

	log.Info().Str("operation_id", string(out.OperationID)).Str("card_url", out.CardURL).Msg("operación completada")
	return out, nil
}

// readFiles lee todos los archivos en memoria y los clasifica por extensión.
func (uc *ProcessOperationUseCase) readFiles(folder string, filenames []string) (inputFiles, error) {
	var files inputFiles
	for _, name := range filenames {
		kind := entity.KindOf(name)
		if kind == entity.FileKindOther {
			continue
		}
		content, err := afero.ReadFile(uc.fs, filepath.Join(folder, name))
		if err != nil {
			return inputFiles{}, fmt.Errorf("leer %s: %w", name, err)
		}
		f := entity.NewOperationFile(name, content)
		if kind == entity.FileKindXML {
			files.xml = append(files.xml, f)
		} else {
			files.pdf = append(files.pdf, f)
		}
	}
	return files, nil
}

// operationErrors junta los XML omitidos y los lotes fallidos para la tarjeta.
func operationErrors(warnings []ubl.Warning, batches []entity.BatchResult) []string {
	var errs []string
	for _, w := range warnings {
		errs = append(errs, w.String())
	}
	for _, b := range batches {
		if msg := b.Failure(); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}
