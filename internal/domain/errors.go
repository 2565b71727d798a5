package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")

	// ErrNoInvoicesParsed: ningún XML de la operación produjo una factura; aborta la operación.
	ErrNoInvoicesParsed = errors.New("no se pudo extraer información de ningún XML")
	// ErrCredential: no se obtuvo el token de la entidad validadora; aborta la validación completa.
	ErrCredential = errors.New("no se pudo obtener la credencial de validación")
	// ErrAllocationConflict: dos asignaciones concurrentes chocaron; el repositorio reintenta.
	ErrAllocationConflict = errors.New("conflicto al asignar el id de operación")
	// ErrPersistence: falló la unidad de trabajo final; se revierte completa.
	ErrPersistence = errors.New("no se pudo persistir la operación")
)
