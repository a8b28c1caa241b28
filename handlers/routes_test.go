package handlers

import (
	"net/http/httptest"
	"testing"

	"tournament-arena-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoutedApp() *fiber.App {
	app := fiber.New()
	SetupRoutes(app, nil, nil, nil, nil, workers.NewConnectivityMonitor())
	return app
}

func TestHealthNeedsNoUserContext(t *testing.T) {
	app := newRoutedApp()

	// Infra probes carry no auth context headers; health must answer anyway.
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSecuredRoutesRejectMissingUserContext(t *testing.T) {
	app := newRoutedApp()

	for _, path := range []string{
		"/tournaments/t1/wizard",
		"/tournaments/t1/results/me",
		"/wallet",
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}
