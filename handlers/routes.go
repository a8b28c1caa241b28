package handlers

import (
	"tournament-arena-system/middleware"
	"tournament-arena-system/services"
	"tournament-arena-system/workers"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes wires the full HTTP surface. User routes require the gateway's
// auth context headers; health and the public catalog must be registered
// before the secured group, because the group mounts its middleware on the
// "/" prefix and catches every route added after it.
func SetupRoutes(
	app *fiber.App,
	tournaments *services.TournamentService,
	wizards *services.WizardService,
	wallets *services.WalletService,
	results *services.ResultService,
	connectivity *workers.ConnectivityMonitor,
) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"online": connectivity.Online(),
		})
	})

	// Public catalog (still gateway-authenticated, no user context needed)
	app.Get("/tournaments", tournaments.GetAllTournaments)
	app.Post("/tournaments/refresh", tournaments.RefreshTournaments)
	app.Get("/tournaments/:id", tournaments.GetTournamentByID)

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Registration wizard
	secured.Get("/tournaments/:id/wizard", wizards.GetStateHandler)
	secured.Post("/tournaments/:id/wizard/events", wizards.EventHandler)

	// Direct registration (bypassing the wizard, e.g. a repeat player)
	secured.Post("/tournaments/:id/register", tournaments.RegisterHandler)
	secured.Get("/tournaments/:id/registrations", tournaments.GetRegistrationsHandler)

	// Result submission & verification
	secured.Post("/tournaments/:id/results", results.SubmitResultHandler)
	secured.Get("/tournaments/:id/results/me", results.GetMySubmissionHandler)

	// Wallet
	secured.Get("/wallet", wallets.GetWalletHandler)
	secured.Get("/wallet/transactions", wallets.GetTransactionsHandler)
	secured.Post("/wallet/deposit", wallets.DepositHandler)

	// Admin
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/tournaments", tournaments.CreateTournament)
	admin.Patch("/tournaments/:id/status", tournaments.UpdateTournamentStatus)
}
