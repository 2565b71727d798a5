package entity

import "fmt"

// BatchResult resultado de un lote enviado a la entidad validadora.
// Un lote cuyo envío falla nunca consulta estado; un lote con estado fallido conserva su envío.
type BatchResult struct {
	Index         int // 1-based, en orden de envío
	Size          int
	ProcessNumber int64
	Skipped       bool
	SkipReason    string
	Submission    SubmissionOutcome
	Status        *StatusOutcome // nil si no se llegó a consultar
}

// SubmissionOutcome fase 1: envío del lote. OK implica ProcessID no vacío.
type SubmissionOutcome struct {
	ProcessID string
	Failure   string
}

func (o SubmissionOutcome) OK() bool { return o.Failure == "" && o.ProcessID != "" }

// StatusOutcome fase 2: consulta de estado del proceso.
type StatusOutcome struct {
	Payload ValidationStatus
	Raw     []byte // cuerpo de la respuesta tal como llegó
	Failure string
}

func (o StatusOutcome) OK() bool { return o.Failure == "" }

// ValidationStatus estado de un proceso: el id de proceso es común a todas sus facturas.
type ValidationStatus struct {
	ProcessID string
	Entries   []ValidationEntry
}

// ValidationEntry resultado por factura dentro de un proceso.
type ValidationEntry struct {
	Series     string
	Numeration string
	Message    string
}

// SkippedBatch resultado sintético cuando no hay nada que validar.
func SkippedBatch(reason string) BatchResult {
	return BatchResult{Skipped: true, SkipReason: reason}
}

// StatusSucceeded indica si el lote aporta resultados a la conciliación.
func (b BatchResult) StatusSucceeded() bool {
	return !b.Skipped && b.Submission.OK() && b.Status != nil && b.Status.OK()
}

// Failure devuelve el mensaje del primer fallo del lote, o "" si no falló.
func (b BatchResult) Failure() string {
	switch {
	case b.Skipped:
		return ""
	case !b.Submission.OK():
		return fmt.Sprintf("lote %d: envío: %s", b.Index, b.Submission.Failure)
	case b.Status != nil && !b.Status.OK():
		return fmt.Sprintf("lote %d: estado: %s", b.Index, b.Status.Failure)
	}
	return ""
}
