package entity

import "strings"

// ReconciliationKey clave natural con la que Cavali identifica cada factura: serie + numeración.
// Se normaliza igual desde ambos lados (respuesta de Cavali y cbc:ID del XML).
type ReconciliationKey struct {
	Series     string
	Numeration string
}

// NewReconciliationKey normaliza serie (mayúsculas, sin espacios) y numeración
// (sin ceros a la izquierda cuando es puramente numérica).
func NewReconciliationKey(series, numeration string) ReconciliationKey {
	return ReconciliationKey{
		Series:     strings.ToUpper(strings.TrimSpace(series)),
		Numeration: normalizeNumeration(numeration),
	}
}

// String devuelve la forma SERIE-NUMERO.
func (k ReconciliationKey) String() string {
	return k.Series + "-" + k.Numeration
}

func normalizeNumeration(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// ValidationResult resultado por factura devuelto por la entidad validadora.
type ValidationResult struct {
	Message   string
	ProcessID string
}
