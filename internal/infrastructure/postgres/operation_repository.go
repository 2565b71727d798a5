package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/operaciones-factoring/internal/domain"
	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/internal/domain/repository"
)

var _ repository.OperationRepository = (*OperationRepo)(nil)

const (
	defaultSaveAttempts = 3
	unknownUserEmail    = "unknown@example.com"
)

type txRunner interface {
	Run(ctx context.Context, fn func(q Querier) error) error
}

// OperationRepo implementación de OperationRepository sobre PostgreSQL.
type OperationRepo struct {
	q        Querier
	tx       txRunner
	now      func() time.Time
	attempts int
	log      zerolog.Logger
}

// NewOperationRepository construye el repositorio. Las lecturas van al pool; Save usa su propia tx.
func NewOperationRepository(pool *pgxpool.Pool, log zerolog.Logger) *OperationRepo {
	return &OperationRepo{
		q:        pool,
		tx:       NewTxRunner(pool),
		now:      time.Now,
		attempts: defaultSaveAttempts,
		log:      log,
	}
}

// Save asigna el id del día y persiste operación, empresas y facturas en una sola transacción.
// Los conflictos de concurrencia (serialización, deadlock, id duplicado) reintentan la
// unidad de trabajo completa; cualquier otro error revierte todo y se devuelve.
func (r *OperationRepo) Save(ctx context.Context, in repository.SaveOperationInput) (entity.OperationID, error) {
	if len(in.Invoices) == 0 {
		return "", fmt.Errorf("%w: no se puede guardar una operación sin facturas", domain.ErrInvalidInput)
	}
	for attempt := 1; ; attempt++ {
		var id entity.OperationID
		err := r.tx.Run(ctx, func(q Querier) error {
			var err error
			id, err = r.saveTx(ctx, q, in)
			return err
		})
		if err == nil {
			r.log.Info().Str("operation_id", string(id)).Int("invoices", len(in.Invoices)).Msg("operación guardada")
			return id, nil
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if attempt >= r.attempts {
			return "", fmt.Errorf("%w: %w: %w", domain.ErrPersistence, domain.ErrAllocationConflict, err)
		}
		r.log.Warn().Err(err).
			Int("attempt", attempt).
			Bool("duplicate_id", isUniqueViolation(err)).
			Msg("conflicto al guardar la operación, reintentando")
	}
}

func (r *OperationRepo) saveTx(ctx context.Context, q Querier, in repository.SaveOperationInput) (entity.OperationID, error) {
	id, err := factoring.NewAllocator(NewDailyCounter(q)).Allocate(ctx, r.now())
	if err != nil {
		return "", err
	}

	companies := NewCompanyRepository(q)
	first := in.Invoices[0]
	if err := companies.Ensure(ctx, first.ClientRUC, first.ClientName); err != nil {
		return "", err
	}

	email := in.Metadata.UserEmail
	if email == "" {
		email = unknownUserEmail
	}
	total := factoring.OperationTotal(in.Invoices)

	query := `
		INSERT INTO operations (id, run_id, client_ruc, user_email, executive_name, archive_url, total_amount, total_currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = q.Exec(ctx, query,
		string(id), in.RunID, first.ClientRUC, email, factoring.ExecutiveName(email),
		nullIfEmpty(in.ArchiveURL), total, first.Currency, r.now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert operation: %w", err)
	}

	for i := range in.Invoices {
		inv := in.Invoices[i]
		if err := companies.Ensure(ctx, inv.DebtorRUC, inv.DebtorName); err != nil {
			return "", err
		}
		msg, pid := validationFields(inv, in.Results)
		_, err := q.Exec(ctx, `
			INSERT INTO invoices (id, operation_id, document_id, debtor_ruc, issue_date, due_date, currency,
			                      total_amount, net_amount, validation_message, validation_process_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), string(id), inv.DocumentID, nullIfEmpty(inv.DebtorRUC), inv.IssueDate, inv.DueDate, inv.Currency,
			inv.TotalAmount, inv.NetAmount, msg, pid,
		)
		if err != nil {
			return "", fmt.Errorf("insert invoice %s: %w", inv.DocumentID, err)
		}
	}
	return id, nil
}

// validationFields toma el resultado ya adjunto a la factura o, si falta, lo busca en el mapeo.
func validationFields(inv entity.Invoice, results map[entity.ReconciliationKey]entity.ValidationResult) (*string, *string) {
	if inv.IsValidated() {
		return inv.ValidationMessage, inv.ValidationProcessID
	}
	key, ok := inv.ReconciliationKey()
	if !ok {
		return nil, nil
	}
	if res, found := results[key]; found {
		return &res.Message, &res.ProcessID
	}
	return nil, nil
}

// FindByID devuelve la operación con sus facturas, o domain.ErrNotFound.
func (r *OperationRepo) FindByID(ctx context.Context, id entity.OperationID) (*entity.Operation, error) {
	op := &entity.Operation{ID: id}
	var archiveURL *string
	err := r.q.QueryRow(ctx, `
		SELECT o.run_id, o.client_ruc, c.business_name, o.user_email, o.executive_name,
		       o.archive_url, o.total_amount, o.total_currency, o.created_at
		FROM operations o
		JOIN companies c ON c.ruc = o.client_ruc
		WHERE o.id = $1`, string(id),
	).Scan(&op.RunID, &op.ClientRUC, &op.ClientName, &op.UserEmail, &op.ExecutiveName,
		&archiveURL, &op.TotalAmount, &op.TotalCurrency, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select operation: %w", err)
	}
	if archiveURL != nil {
		op.ArchiveURL = *archiveURL
	}

	rows, err := r.q.Query(ctx, `
		SELECT i.document_id, COALESCE(i.debtor_ruc, ''), COALESCE(d.business_name, ''),
		       i.issue_date, i.due_date, i.currency, i.total_amount, i.net_amount,
		       i.validation_message, i.validation_process_id
		FROM invoices i
		LEFT JOIN companies d ON d.ruc = i.debtor_ruc
		WHERE i.operation_id = $1
		ORDER BY i.document_id`, string(id))
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inv := entity.Invoice{ClientRUC: op.ClientRUC, ClientName: op.ClientName}
		if err := rows.Scan(&inv.DocumentID, &inv.DebtorRUC, &inv.DebtorName,
			&inv.IssueDate, &inv.DueDate, &inv.Currency, &inv.TotalAmount, &inv.NetAmount,
			&inv.ValidationMessage, &inv.ValidationProcessID); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		op.Invoices = append(op.Invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return op, nil
}
