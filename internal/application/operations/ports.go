package operations

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/ubl"
)

// DocumentParser convierte los XML de la operación en facturas; nunca falla como un todo.
type DocumentParser interface {
	Parse(files []entity.OperationFile) ubl.Result
}

// BatchValidator envía los XML a la entidad validadora en lotes.
// Solo devuelve error si no pudo obtener la credencial; las fallas por lote
// viajan dentro de cada entity.BatchResult.
type BatchValidator interface {
	Validate(ctx context.Context, files []entity.OperationFile) ([]entity.BatchResult, error)
}

// Archiver guarda los documentos en una carpeta propia de la operación y devuelve su URL.
type Archiver interface {
	Archive(ctx context.Context, runID, localPath string, filenames []string) (string, error)
}

// TaskBoard crea la tarjeta de seguimiento de la operación y devuelve su URL.
type TaskBoard interface {
	CreateOperationCard(ctx context.Context, req CardRequest) (string, error)
}

// Notifier envía el correo de confirmación al deudor y devuelve el id del mensaje.
type Notifier interface {
	SendConfirmation(ctx context.Context, req NotificationRequest) (string, error)
}

// CardRequest datos de la tarjeta de seguimiento.
type CardRequest struct {
	RunID       string
	ClientName  string
	Debtors     []factoring.Debtor
	Amounts     []factoring.CurrencyTotal
	Initials    string
	Rate        decimal.Decimal
	Commission  decimal.Decimal
	ArchiveURL  string
	Attachments []entity.OperationFile // solo PDF
	Errors      []string
}

// NotificationRequest datos del correo de confirmación.
type NotificationRequest struct {
	RunID       string
	ClientName  string
	Invoices    []entity.Invoice
	Amounts     []factoring.CurrencyTotal
	ArchiveURL  string
	Attachments []entity.OperationFile // solo PDF
}
