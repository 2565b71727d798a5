package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/operaciones-factoring/internal/application/dto"
	"github.com/jhoicas/operaciones-factoring/internal/domain"
)

// OperationGetter consulta de una operación por id.
type OperationGetter interface {
	Get(ctx context.Context, id string) (*dto.OperationResponse, error)
}

// OperationHandler maneja la consulta de operaciones (protegido).
type OperationHandler struct {
	uc OperationGetter
}

// NewOperationHandler construye el handler.
func NewOperationHandler(uc OperationGetter) *OperationHandler {
	return &OperationHandler{uc: uc}
}

// GetByID devuelve la operación con sus facturas y resultados de validación.
// GET /api/operations/:id
func (h *OperationHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	op, err := h.uc.Get(c.UserContext(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de operación inválido, formato OP-YYYYMMDD-NNN"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "operación no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(op)
}
