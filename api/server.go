/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. Logger:        Per-request access log
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the web frontend
  5. Authenticator: Bearer-token check (everything but signup and the
                    product catalog)

ROUTE GROUPS:
  /api/users            Signup (public)
  /api/products         Catalog (public)
  /api/wallet/*         Balance, history, audit
  /api/cart             Cart read/mutate
  /api/payments/verify  Checkout
  /api/events/*         Event lookup and booking
  /api/games/*          Sudoku, riddles, movies, spin wheel, 2048
  /api/admin/*          Catalog/content management (role=admin)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go:     Token verification and role middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"plaza/coin-engine/games"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/users", h.handleCreateUser)
		r.Get("/products", h.handleListProducts)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticator)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.handleGetWallet)
				r.Get("/history", h.handleWalletHistory)
				r.Get("/audit", h.handleWalletAudit)
			})

			r.Get("/cart", h.handleGetCart)
			r.Post("/cart", h.handleUpdateCart)

			r.Post("/payments/verify", h.handleVerifyPayment)
			r.Get("/orders/{orderID}", h.handleGetOrder)

			r.Route("/events", func(r chi.Router) {
				r.Post("/book", h.handleBookEvent)
				r.Get("/{eventID}", h.handleGetEvent)
			})
			r.Get("/bookings", h.handleListBookings)

			r.Route("/games", func(r chi.Router) {
				r.Post("/sudoku/start", h.handleSudokuStart)
				r.Post("/sudoku/submit", h.handleSudokuSubmit)
				r.Post("/sudoku/hint", h.handleSudokuHint)
				r.Post("/riddles/submit", h.handleGuessSubmit(games.KindRiddle))
				r.Post("/movies/submit", h.handleGuessSubmit(games.KindMovie))
				r.Post("/spin-wheel", h.handleSpinWheel)
				r.Post("/2048/reward", h.handleReward2048)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Post("/products", h.handleSaveProduct)
				r.Post("/events", h.handleSaveEvent)
				r.Post("/sudoku-levels", h.handleSaveSudokuLevel)
				r.Post("/puzzles", h.handleSaveGuessPuzzle)
				r.Post("/bookings/{bookingID}/attended", h.handleMarkAttended)
				r.Post("/adjustments", h.handleAdjustment)
			})
		})
	})

	return r
}
