package factoring

import "github.com/jhoicas/operaciones-factoring/internal/domain/entity"

// Reconcile construye el mapeo serie-numeración → resultado a partir de los lotes.
// Solo aportan los lotes cuya consulta de estado tuvo éxito. El id de proceso se toma
// del nivel de proceso, no de la entrada. Colisiones: gana la última en orden de lote/entrada.
func Reconcile(results []entity.BatchResult) map[entity.ReconciliationKey]entity.ValidationResult {
	mapping := make(map[entity.ReconciliationKey]entity.ValidationResult)
	for _, b := range results {
		if !b.StatusSucceeded() {
			continue
		}
		processID := b.Status.Payload.ProcessID
		if processID == "" {
			processID = b.Submission.ProcessID
		}
		for _, e := range b.Status.Payload.Entries {
			key := entity.NewReconciliationKey(e.Series, e.Numeration)
			if key.Series == "" && key.Numeration == "" {
				continue
			}
			mapping[key] = entity.ValidationResult{Message: e.Message, ProcessID: processID}
		}
	}
	return mapping
}

// MergeResults adjunta a cada factura su resultado de validación, si existe.
// Las facturas sin resultado quedan sin enriquecer. Devuelve cuántas se enriquecieron.
func MergeResults(invoices []entity.Invoice, mapping map[entity.ReconciliationKey]entity.ValidationResult) int {
	matched := 0
	for i := range invoices {
		key, ok := invoices[i].ReconciliationKey()
		if !ok {
			continue
		}
		r, found := mapping[key]
		if !found {
			continue
		}
		invoices[i].AttachValidation(r)
		matched++
	}
	return matched
}
