package entity

import "time"

// Company empresa identificada por RUC: cedente (cliente) o deudor de las facturas.
type Company struct {
	RUC          string
	BusinessName string
	CreatedAt    time.Time
}
