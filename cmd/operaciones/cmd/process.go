package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jhoicas/operaciones-factoring/internal/application/operations"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/cavali"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/mail"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/pdf"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/postgres"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/storage"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/trello"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/ubl"
)

var (
	processDir      string
	processMetadata string
	processRunID    string
	keepFiles       bool
	processTimeout  time.Duration
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Procesa una operación a partir de una carpeta con XML y PDF",
	Long: `Procesa una operación completa:
  1. Lee los XML y PDF de la carpeta
  2. Extrae las facturas de los XML UBL
  3. Archiva los documentos y valida los XML con Cavali (en paralelo)
  4. Crea la tarjeta en Trello y envía el correo de confirmación
  5. Concilia los resultados de Cavali y guarda la operación

La carpeta se elimina al terminar, salvo con --keep-files.
--metadata acepta JSON en línea o @ruta a un archivo JSON.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processDir, "dir", "", "Carpeta con los archivos de la operación")
	processCmd.Flags().StringVar(&processMetadata, "metadata", "{}", "Metadatos de la operación (JSON o @archivo)")
	processCmd.Flags().StringVar(&processRunID, "run-id", "", "Id de la ejecución (por defecto un UUID nuevo)")
	processCmd.Flags().BoolVar(&keepFiles, "keep-files", false, "No eliminar la carpeta al terminar")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 10*time.Minute, "Tiempo máximo de la operación")
	_ = processCmd.MarkFlagRequired("dir")
}

func runProcess(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	log := rt.log
	cfg := rt.cfg
	osFs := afero.NewOsFs()

	if !keepFiles {
		defer func() {
			if err := osFs.RemoveAll(processDir); err != nil {
				log.Warn().Err(err).Str("dir", processDir).Msg("no se pudo eliminar la carpeta temporal")
			}
		}()
	}

	meta, err := parseMetadata(osFs, processMetadata)
	if err != nil {
		return err
	}
	filenames, err := listFiles(osFs, processDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	pool, err := rt.pool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	board, err := trello.NewClient(cfg.Trello, log.Component("trello"))
	if err != nil {
		return err
	}
	notifier, err := mail.NewNotifier(cfg.Mail, pdf.NewSummaryGenerator(), log.Component("mail"))
	if err != nil {
		return err
	}
	validator := cavali.NewClient(cfg.Cavali, cavali.NewClientCredentials(cfg.Cavali, nil), log.Component("cavali"))
	archiver := storage.NewArchive(osFs, osFs, cfg.Archive, log.Component("storage"))
	repo := postgres.NewOperationRepository(pool, log.Component("postgres"))

	uc := operations.NewProcessOperationUseCase(
		osFs, ubl.NewParser(), validator, archiver, board, notifier, repo,
		cfg.Pipeline.DefaultInitials, log.Component("operations"),
	)
	out, err := uc.Execute(ctx, operations.ProcessRequest{
		RunID:     processRunID,
		Metadata:  meta,
		Folder:    processDir,
		Filenames: filenames,
	})
	if err != nil {
		return err
	}
	return writeSummary(cmd, out)
}

// parseMetadata acepta JSON en línea o "@ruta" a un archivo JSON.
func parseMetadata(fs afero.Fs, raw string) (entity.OperationMetadata, error) {
	var meta entity.OperationMetadata
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return meta, nil
	}
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			return meta, fmt.Errorf("leer metadatos: %w", err)
		}
		data = b
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("metadatos inválidos: %w", err)
	}
	return meta, nil
}

// listFiles nombres de los archivos regulares de la carpeta, ordenados.
func listFiles(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("leer carpeta %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("la carpeta %s no tiene archivos", dir)
	}
	return names, nil
}

type processSummary struct {
	OperationID    string   `json:"operation_id"`
	RunID          string   `json:"run_id"`
	ArchiveURL     string   `json:"archive_url"`
	CardURL        string   `json:"card_url"`
	NotificationID string   `json:"notification_id"`
	Invoices       int      `json:"invoices"`
	Validated      int      `json:"validated"`
	Warnings       []string `json:"warnings,omitempty"`
	BatchFailures  []string `json:"batch_failures,omitempty"`
}

func summarize(out *operations.Outcome) processSummary {
	s := processSummary{
		OperationID:    string(out.OperationID),
		RunID:          out.RunID,
		ArchiveURL:     out.ArchiveURL,
		CardURL:        out.CardURL,
		NotificationID: out.NotificationID,
		Invoices:       len(out.Invoices),
	}
	for _, inv := range out.Invoices {
		if inv.IsValidated() {
			s.Validated++
		}
	}
	for _, w := range out.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	for _, b := range out.Batches {
		if msg := b.Failure(); msg != "" {
			s.BatchFailures = append(s.BatchFailures, msg)
		}
	}
	return s
}

func writeSummary(cmd *cobra.Command, out *operations.Outcome) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(out))
}
