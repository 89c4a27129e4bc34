package api

import (
	"net/http"
	"slices"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "search-chat/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a new chi router with all the application's routes.
// limiter may be nil to disable rate limiting.
func NewRouter(chatHandler *ChatHandler, historyHandler *HistoryHandler, limiter *RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Browsers reject credentials alongside a wildcard origin, so cookies
	// are only allowed for an explicit origin list.
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
	}).Handler)

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})

	// Page load and form actions are short JSON exchanges with the store.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", historyHandler.Load)
		r.Post("/", historyHandler.HandleAction)
		r.Post("/actions/{action}", historyHandler.HandleAction)
	})

	// The chat stream must NOT have a timeout; it stays open for as long as
	// the provider keeps sending frames.
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/api/chat", chatHandler.HandleChat)
	})

	return r
}
