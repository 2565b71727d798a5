package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/internal/application/dto"
	"github.com/jhoicas/operaciones-factoring/internal/domain"
	apphttp "github.com/jhoicas/operaciones-factoring/internal/interfaces/http"
)

type fakeGetter struct{}

func (fakeGetter) Get(_ context.Context, id string) (*dto.OperationResponse, error) {
	switch id {
	case "OP-20240601-001":
		return &dto.OperationResponse{
			ID: id, ClientName: "Cliente EIRL", TotalCurrency: "PEN", TotalAmount: decimal.NewFromInt(100),
			Invoices: []dto.InvoiceResponse{{DocumentID: "F001-1", Currency: "PEN"}},
		}, nil
	case "roto":
		return nil, fmt.Errorf("%w: formato", domain.ErrInvalidInput)
	case "OP-20240601-500":
		return nil, fmt.Errorf("select operation: conexión cerrada")
	}
	return nil, domain.ErrNotFound
}

func newRouterApp() *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{AppName: "operaciones-factoring", GetOperation: fakeGetter{}, JWTSecret: testJWTSecret})
	return app
}

func TestHealth_EsPublico(t *testing.T) {
	resp := doRequest(t, newRouterApp(), "/health", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "operaciones-factoring", body["service"])
}

func TestGetOperation_RequiereToken(t *testing.T) {
	resp := doRequest(t, newRouterApp(), "/api/operations/OP-20240601-001", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetOperation_Codigos(t *testing.T) {
	app := newRouterApp()
	auth := bearer(t, testEmail, testExpMin)

	cases := []struct {
		id   string
		want int
	}{
		{"OP-20240601-001", http.StatusOK},
		{"OP-20240601-999", http.StatusNotFound},
		{"roto", http.StatusBadRequest},
		{"OP-20240601-500", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		resp := doRequest(t, app, "/api/operations/"+tc.id, auth)
		assert.Equal(t, tc.want, resp.StatusCode, "código para %s", tc.id)
		resp.Body.Close()
	}
}

func TestGetOperation_Cuerpo(t *testing.T) {
	resp := doRequest(t, newRouterApp(), "/api/operations/OP-20240601-001", bearer(t, testEmail, testExpMin))
	defer resp.Body.Close()

	var body dto.OperationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OP-20240601-001", body.ID)
	assert.Equal(t, "Cliente EIRL", body.ClientName)
	require.Len(t, body.Invoices, 1)
	assert.True(t, body.TotalAmount.Equal(decimal.NewFromInt(100)))
}
