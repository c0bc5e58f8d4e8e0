package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*http.Response, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp, body
}

func TestSuccessResponse(t *testing.T) {
	t.Run("defaults to 200", func(t *testing.T) {
		resp, body := performRequest(t, func(c *fiber.Ctx) error {
			return SuccessResponse(c, fiber.Map{"id": "42"}, "ok")
		})

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "ok", body["message"])
	})

	t.Run("honors explicit status", func(t *testing.T) {
		resp, _ := performRequest(t, func(c *fiber.Ctx) error {
			return SuccessResponse(c, nil, "created", fiber.StatusCreated)
		})

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})
}

func TestErrorResponse(t *testing.T) {
	t.Run("defaults to 500", func(t *testing.T) {
		resp, body := performRequest(t, func(c *fiber.Ctx) error {
			return ErrorResponse(c, "boom")
		})

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "boom", body["error"])
	})

	t.Run("honors explicit status", func(t *testing.T) {
		resp, body := performRequest(t, func(c *fiber.Ctx) error {
			return ErrorResponse(c, "invalid credentials", fiber.StatusUnauthorized)
		})

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid credentials", body["error"])
	})
}
