package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invorya/comercial-api/internal/application/dto"
	"github.com/invorya/comercial-api/internal/domain"
)

func TestRespondError_MapeoDeErroresDeDominio(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no encontrado", domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{"duplicado", domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
		{"cantidad inválida", domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
		{"entrada inválida", fmt.Errorf("%w: detalle", domain.ErrInvalidInput), fiber.StatusBadRequest, "VALIDATION"},
		{"stock insuficiente", domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{"ajuste inválido", domain.ErrInvalidAdjustment, fiber.StatusConflict, "INVALID_ADJUSTMENT"},
		{"transición inválida", domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
		{"ya revertido", domain.ErrAlreadyReversed, fiber.StatusConflict, "ALREADY_REVERSED"},
		{"conflicto de concurrencia", domain.ErrConcurrencyConflict, fiber.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"contabilidad caída", fmt.Errorf("%w: timeout", domain.ErrExternalPosting), fiber.StatusBadGateway, "EXTERNAL_POSTING"},
		{"falla interna", errors.New("algo explotó"), fiber.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/x", func(c *fiber.Ctx) error {
				return respondError(c, tc.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body dto.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRespondError_ValidacionConCampos(t *testing.T) {
	verr := &domain.ValidationError{}
	verr.Add("lines[0].quantity", "debe ser mayor que cero")
	verr.Add("lines[0].tax_pct", "debe estar entre 0 y 100")

	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return respondError(c, verr)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "VALIDATION", body.Code)
	require.Len(t, body.Fields, 2)
	assert.Equal(t, "lines[0].quantity", body.Fields[0].Field)
}

func TestGetActorID_DesdeHeader(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return c.SendString(GetActorID(c))
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Actor-Id", "usuario-7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
