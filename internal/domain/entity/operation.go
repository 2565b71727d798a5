package entity

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FileKind clasificación de un archivo de la operación por extensión.
type FileKind string

const (
	FileKindXML   FileKind = "XML"
	FileKindPDF   FileKind = "PDF"
	FileKindOther FileKind = "OTHER"
)

// KindOf clasifica un nombre de archivo por su extensión (sin distinguir mayúsculas).
func KindOf(filename string) FileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return FileKindXML
	case ".pdf":
		return FileKindPDF
	default:
		return FileKindOther
	}
}

// OperationFile archivo recibido en la operación; vive solo durante el procesamiento.
type OperationFile struct {
	Filename string
	Content  []byte
	Kind     FileKind
}

// NewOperationFile construye el archivo clasificándolo por extensión.
func NewOperationFile(filename string, content []byte) OperationFile {
	return OperationFile{Filename: filename, Content: content, Kind: KindOf(filename)}
}

// OperationMetadata datos que acompañan la operación al ser enviada por el ejecutivo.
type OperationMetadata struct {
	UserEmail    string          `json:"user_email"`
	UserInitials string          `json:"user_initials"`
	Rate         decimal.Decimal `json:"tasaOperacion"`
	Commission   decimal.Decimal `json:"comision"`
}

// Operation operación persistida con sus facturas.
type Operation struct {
	ID            OperationID
	RunID         string
	ClientRUC     string
	ClientName    string
	UserEmail     string
	ExecutiveName string
	ArchiveURL    string
	TotalAmount   decimal.Decimal
	TotalCurrency string
	CreatedAt     time.Time
	Invoices      []Invoice
}

// OperationID identificador legible OP-YYYYMMDD-NNN, secuencial por día.
type OperationID string

const (
	operationIDPrefix = "OP-"
	operationIDLayout = "20060102"
)

// FormatOperationID construye el id para el día y la secuencia indicados (NNN con 3 dígitos mínimo).
func FormatOperationID(day time.Time, seq int) OperationID {
	return OperationID(fmt.Sprintf("%s%s-%03d", operationIDPrefix, day.Format(operationIDLayout), seq))
}

// OperationIDPrefix devuelve el prefijo "OP-YYYYMMDD-" del día.
func OperationIDPrefix(day time.Time) string {
	return operationIDPrefix + day.Format(operationIDLayout) + "-"
}

// ParseOperationID separa el día y la secuencia de un id.
func ParseOperationID(id string) (time.Time, int, error) {
	rest, ok := strings.CutPrefix(id, operationIDPrefix)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("id de operación inválido: %q", id)
	}
	datePart, seqPart, ok := strings.Cut(rest, "-")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("id de operación inválido: %q", id)
	}
	day, err := time.Parse(operationIDLayout, datePart)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("fecha inválida en id %q: %w", id, err)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq <= 0 {
		return time.Time{}, 0, fmt.Errorf("secuencia inválida en id %q", id)
	}
	return day, seq, nil
}
